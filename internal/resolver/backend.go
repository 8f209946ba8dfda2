// Package resolver turns video and playlist IDs into playable audio through an ordered list of backends.
package resolver

import (
	"context"
	"io"

	"audiomab/internal/core"
	"audiomab/pkg/musiclink"
)

// VideoInfo is the normalized answer of a backend video lookup.
type VideoInfo struct {
	ID        string
	Title     string
	Artist    string
	Thumbnail string
	Duration  int
	Audio     []AudioCandidate
}

// PlaylistInfo is the normalized answer of a backend playlist expansion.
type PlaylistInfo struct {
	ID        string
	Title     string
	Author    string
	Thumbnail string
	Tracks    []core.Track
}

// AudioStream is an open audio byte stream. Callers must close Body.
type AudioStream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Source        string
}

// Backend is one resolution source. Each call is bounded by the deadline of ctx.
type Backend interface {
	Name() string
	FetchVideo(ctx context.Context, videoID string) (*VideoInfo, error)
	FetchPlaylist(ctx context.Context, playlistID string) (*PlaylistInfo, error)
	Search(ctx context.Context, query string, limit int) ([]core.Track, error)
}

// Streamer is implemented by backends that can produce audio bytes themselves.
// Backends without it are relayed by fetching their best audio URL.
type Streamer interface {
	OpenStream(ctx context.Context, videoID string) (*AudioStream, error)
}

func (v *VideoInfo) track() core.Track {
	return core.Track{
		ID:        v.ID,
		VideoID:   v.ID,
		Title:     v.Title,
		Artist:    musiclink.CleanChannelName(v.Artist),
		Thumbnail: v.Thumbnail,
		Duration:  v.Duration,
	}.Normalize()
}
