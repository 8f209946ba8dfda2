// Package core holds configuration and the domain types shared by the resolver, player and library.
package core

import (
	"fmt"
	"time"
)

// DefaultThumbnailURL is the thumbnail used when a backend does not provide one.
func DefaultThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/mqdefault.jpg", videoID)
}

// Track is a playable item. ID and VideoID are equal for tracks resolved from video platforms.
type Track struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
	VideoID   string `json:"videoId"`
}

// Normalize fills derived fields and clamps invalid values.
func (t Track) Normalize() Track {
	if t.VideoID == "" {
		t.VideoID = t.ID
	}
	if t.ID == "" {
		t.ID = t.VideoID
	}
	if t.Duration < 0 {
		t.Duration = 0
	}
	if t.Thumbnail == "" && t.VideoID != "" {
		t.Thumbnail = DefaultThumbnailURL(t.VideoID)
	}
	return t
}

type Playlist struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Thumbnail string    `json:"thumbnail"`
	Tracks    []Track   `json:"tracks"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ResolvedAudio is a short-lived playable URL. It is never persisted.
type ResolvedAudio struct {
	AudioURL    string
	Source      string
	ContentType string
	ExpiresHint time.Time
}
