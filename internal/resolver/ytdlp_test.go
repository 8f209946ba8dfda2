package resolver

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeFakeYtDlp writes a shell script standing in for yt-dlp.
func writeFakeYtDlp(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYtDlpFetchVideo(t *testing.T) {
	bin := writeFakeYtDlp(t, `cat <<'JSON'
{"id":"abc123","title":"Song","uploader":"","channel":"Artist - Topic","duration":212.5,"thumbnail":"https://img/x.jpg",
 "formats":[
  {"url":"https://f/video","acodec":"none","vcodec":"avc1","abr":0},
  {"url":"https://f/low","acodec":"opus","vcodec":"none","abr":50,"ext":"webm"},
  {"url":"https://f/high","acodec":"mp4a","vcodec":"none","abr":129.5,"ext":"m4a"},
  {"url":"https://f/muxed","acodec":"mp4a","vcodec":"avc1","abr":192}
 ]}
JSON
`)

	info, err := NewYtDlpBackend(bin).FetchVideo(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("FetchVideo() error = %v", err)
	}

	if info.Artist != "Artist" {
		t.Errorf("Artist = %q, want %q", info.Artist, "Artist")
	}
	if info.Duration != 212 {
		t.Errorf("Duration = %d, want 212", info.Duration)
	}
	if len(info.Audio) != 2 {
		t.Fatalf("audio candidates = %d, want 2", len(info.Audio))
	}
	if best, _ := SelectBestAudio(info.Audio); best.URL != "https://f/high" {
		t.Errorf("best audio = %q, want %q", best.URL, "https://f/high")
	}
}

func TestYtDlpFetchVideoUnknownUploader(t *testing.T) {
	bin := writeFakeYtDlp(t, `echo '{"id":"abc123","title":"Song","url":"https://f/direct"}'`)

	info, err := NewYtDlpBackend(bin).FetchVideo(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("FetchVideo() error = %v", err)
	}
	if info.Artist != "Unknown" {
		t.Errorf("Artist = %q, want %q", info.Artist, "Unknown")
	}
	if len(info.Audio) != 1 || info.Audio[0].URL != "https://f/direct" {
		t.Errorf("Audio = %+v, want top-level url", info.Audio)
	}
}

func TestYtDlpFetchPlaylist(t *testing.T) {
	bin := writeFakeYtDlp(t, `echo '{"id":"v1","title":"One","uploader":"First"}'
echo '{"id":"v2","title":"Two","uploader":"Second"}'
echo '{"id":"","title":"[Deleted video]"}'
`)

	info, err := NewYtDlpBackend(bin).FetchPlaylist(context.Background(), "PL1")
	if err != nil {
		t.Fatalf("FetchPlaylist() error = %v", err)
	}

	if info.Title != "Playlist (3 videos)" {
		t.Errorf("Title = %q, want %q", info.Title, "Playlist (3 videos)")
	}
	if info.Author != "First" {
		t.Errorf("Author = %q, want %q", info.Author, "First")
	}
	if len(info.Tracks) != 2 {
		t.Errorf("tracks = %d, want 2", len(info.Tracks))
	}
}

func TestYtDlpSearchArgs(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := writeFakeYtDlp(t, `echo "$@" > `+argsFile+`
echo '{"id":"s1","title":"Hit","uploader":"C"}'
echo '{"id":"s2","title":"Hit 2","uploader":"D"}'
`)

	tracks, err := NewYtDlpBackend(bin).Search(context.Background(), "daft punk", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "s1" {
		t.Errorf("Search() = %+v", tracks)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--dump-json", "--flat-playlist", "ytsearch1:daft punk"} {
		if !strings.Contains(string(args), want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestYtDlpErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   error
	}{
		{"unavailable video", "echo 'ERROR: [youtube] abc: Video unavailable' >&2; exit 1", ErrNotFound},
		{"generic failure", "echo 'ERROR: HTTP Error 429' >&2; exit 1", ErrUnavailable},
		{"bad json", "echo 'not json'", ErrMalformedResponse},
		{"no output", "exit 0", ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := writeFakeYtDlp(t, tt.script)
			_, err := NewYtDlpBackend(bin).FetchVideo(context.Background(), "abc")
			if !errors.Is(err, tt.want) {
				t.Errorf("FetchVideo() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("missing binary", func(t *testing.T) {
		_, err := NewYtDlpBackend(filepath.Join(t.TempDir(), "nope")).FetchVideo(context.Background(), "abc")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("FetchVideo() error = %v, want ErrUnavailable", err)
		}
	})
}

func TestYtDlpVersion(t *testing.T) {
	bin := writeFakeYtDlp(t, `echo "2025.01.15"`)

	version, err := NewYtDlpBackend(bin).Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != "2025.01.15" {
		t.Errorf("Version() = %q, want %q", version, "2025.01.15")
	}
}

func TestYtDlpOpenStream(t *testing.T) {
	bin := writeFakeYtDlp(t, `printf 'audio-bytes'`)

	stream, err := NewYtDlpBackend(bin).OpenStream(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	data, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("body = %q, want %q", data, "audio-bytes")
	}
	if stream.Source != "yt-dlp" || stream.ContentType != "audio/webm" {
		t.Errorf("stream = %+v", stream)
	}
	if err := stream.Body.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestYtDlpOpenStreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   error
	}{
		{"unavailable video", "echo 'ERROR: [youtube] abc: Video unavailable' >&2; exit 1", ErrNotFound},
		{"network failure", "echo 'ERROR: unable to download webpage' >&2; exit 1", ErrUnavailable},
		{"no output", "exit 0", ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := writeFakeYtDlp(t, tt.script)
			stream, err := NewYtDlpBackend(bin).OpenStream(context.Background(), "abc")
			if stream != nil {
				stream.Body.Close()
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("OpenStream() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestYtDlpOpenStreamTruncated(t *testing.T) {
	bin := writeFakeYtDlp(t, "printf 'partial'; echo 'ERROR: connection reset' >&2; exit 1")

	stream, err := NewYtDlpBackend(bin).OpenStream(context.Background(), "abc")
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	if _, err := io.ReadAll(stream.Body); !errors.Is(err, ErrUnavailable) {
		t.Errorf("ReadAll() error = %v, want ErrUnavailable", err)
	}
	if err := stream.Body.Close(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Close() error = %v, want ErrUnavailable", err)
	}
}

func TestYtDlpOpenStreamCloseEarly(t *testing.T) {
	bin := writeFakeYtDlp(t, "printf 'first'; exec sleep 30")

	stream, err := NewYtDlpBackend(bin).OpenStream(context.Background(), "abc")
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if err := stream.Body.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil after stopping the process", err)
	}
}
