package core

import (
	"testing"
)

func TestTrack_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected Track
	}{
		{
			name:  "Video ID copied into ID and thumbnail derived",
			track: Track{VideoID: "abc123", Title: "Song"},
			expected: Track{
				ID:        "abc123",
				VideoID:   "abc123",
				Title:     "Song",
				Thumbnail: "https://i.ytimg.com/vi/abc123/mqdefault.jpg",
			},
		},
		{
			name:  "ID copied into VideoID",
			track: Track{ID: "xyz", Thumbnail: "https://img/x.jpg"},
			expected: Track{
				ID:        "xyz",
				VideoID:   "xyz",
				Thumbnail: "https://img/x.jpg",
			},
		},
		{
			name:  "Negative duration clamped",
			track: Track{ID: "d", VideoID: "d", Thumbnail: "t", Duration: -5},
			expected: Track{
				ID:        "d",
				VideoID:   "d",
				Thumbnail: "t",
				Duration:  0,
			},
		},
		{
			name:     "Empty track stays empty",
			track:    Track{},
			expected: Track{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.track.Normalize()
			if got != tt.expected {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestDefaultThumbnailURL(t *testing.T) {
	got := DefaultThumbnailURL("dQw4w9WgXcQ")
	want := "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg"
	if got != want {
		t.Errorf("DefaultThumbnailURL() = %q, want %q", got, want)
	}
}
