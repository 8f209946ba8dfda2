package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"audiomab/internal/core"
	"audiomab/pkg/musiclink"
)

type pipedAudioStream struct {
	URL      string    `json:"url"`
	Bitrate  flexFloat `json:"bitrate"`
	MimeType string    `json:"mimeType"`
}

type pipedStreams struct {
	Title        string             `json:"title"`
	Uploader     string             `json:"uploader"`
	ThumbnailURL string             `json:"thumbnailUrl"`
	Duration     flexFloat          `json:"duration"`
	AudioStreams []pipedAudioStream `json:"audioStreams"`
}

type pipedRelatedStream struct {
	URL          string    `json:"url"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	UploaderName string    `json:"uploaderName"`
	Thumbnail    string    `json:"thumbnail"`
	Duration     flexFloat `json:"duration"`
}

type pipedPlaylist struct {
	Name           string               `json:"name"`
	Uploader       string               `json:"uploader"`
	ThumbnailURL   string               `json:"thumbnailUrl"`
	RelatedStreams []pipedRelatedStream `json:"relatedStreams"`
}

type pipedSearch struct {
	Items []pipedRelatedStream `json:"items"`
}

// PipedBackend talks to one Piped API instance.
type PipedBackend struct {
	baseURL string
	client  *http.Client
}

// NewPipedBackend creates a backend for the Piped API instance at baseURL.
func NewPipedBackend(baseURL string, client *http.Client) *PipedBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &PipedBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (b *PipedBackend) Name() string {
	return "piped:" + instanceName(b.baseURL)
}

func (b *PipedBackend) FetchVideo(ctx context.Context, videoID string) (*VideoInfo, error) {
	var streams pipedStreams
	if err := getJSON(ctx, b.client, joinURL(b.baseURL, "streams", videoID), &streams); err != nil {
		return nil, err
	}

	if streams.Title == "" && len(streams.AudioStreams) == 0 {
		return nil, fmt.Errorf("%w: empty streams document", ErrMalformedResponse)
	}

	info := &VideoInfo{
		ID:        videoID,
		Title:     streams.Title,
		Artist:    musiclink.CleanChannelName(streams.Uploader),
		Thumbnail: streams.ThumbnailURL,
		Duration:  streams.Duration.seconds(),
	}

	for _, s := range streams.AudioStreams {
		info.Audio = append(info.Audio, AudioCandidate{
			URL:      s.URL,
			Bitrate:  float64(s.Bitrate),
			MimeType: baseMime(s.MimeType),
		})
	}

	return info, nil
}

func (b *PipedBackend) FetchPlaylist(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	var playlist pipedPlaylist
	if err := getJSON(ctx, b.client, joinURL(b.baseURL, "playlists", playlistID), &playlist); err != nil {
		return nil, err
	}

	if playlist.Name == "" && len(playlist.RelatedStreams) == 0 {
		return nil, fmt.Errorf("%w: empty playlist document", ErrMalformedResponse)
	}

	info := &PlaylistInfo{
		ID:        playlistID,
		Title:     playlist.Name,
		Author:    musiclink.CleanChannelName(playlist.Uploader),
		Thumbnail: playlist.ThumbnailURL,
	}

	for _, s := range playlist.RelatedStreams {
		if track, ok := pipedTrack(s); ok {
			info.Tracks = append(info.Tracks, track)
		}
	}

	return info, nil
}

func (b *PipedBackend) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&filter=videos", b.baseURL, url.QueryEscape(query))

	var result pipedSearch
	if err := getJSON(ctx, b.client, reqURL, &result); err != nil {
		return nil, err
	}

	tracks := make([]core.Track, 0, limit)
	for _, item := range result.Items {
		if item.Type != "" && item.Type != "stream" {
			continue
		}
		if track, ok := pipedTrack(item); ok {
			tracks = append(tracks, track)
		}
		if len(tracks) >= limit {
			break
		}
	}

	return tracks, nil
}

func pipedTrack(s pipedRelatedStream) (core.Track, bool) {
	id := videoIDFromWatchPath(s.URL)
	if id == "" {
		return core.Track{}, false
	}
	return core.Track{
		ID:        id,
		VideoID:   id,
		Title:     s.Title,
		Artist:    musiclink.CleanChannelName(s.UploaderName),
		Thumbnail: s.Thumbnail,
		Duration:  s.Duration.seconds(),
	}.Normalize(), true
}

// videoIDFromWatchPath reads the v parameter of a relative "/watch?v=ID" link.
func videoIDFromWatchPath(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}
