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

const playlistURLFormat = "https://www.youtube.com/playlist?list=%s"

type externalItem struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Author    string    `json:"author"`
	Uploader  string    `json:"uploader"`
	Thumbnail string    `json:"thumbnail"`
	Duration  flexFloat `json:"duration"`
	AudioURL  string    `json:"audioUrl"`
}

func (i externalItem) artist() string {
	return musiclink.CleanChannelName(firstNonEmpty(i.Artist, i.Author, i.Uploader))
}

func (i externalItem) track() core.Track {
	id := firstNonEmpty(i.VideoID, i.ID)
	return core.Track{
		ID:        id,
		VideoID:   id,
		Title:     i.Title,
		Artist:    i.artist(),
		Thumbnail: i.Thumbnail,
		Duration:  i.Duration.seconds(),
	}.Normalize()
}

type externalSearch struct {
	Results []externalItem `json:"results"`
}

type externalImport struct {
	Data *struct {
		ID        string         `json:"id"`
		Title     string         `json:"title"`
		Author    string         `json:"author"`
		Thumbnail string         `json:"thumbnail"`
		Tracks    []externalItem `json:"tracks"`
	} `json:"data"`
}

// ExternalBackend talks to a managed resolver service exposing /audio, /search, /import and /stream.
type ExternalBackend struct {
	baseURL string
	client  *http.Client
}

// NewExternalBackend creates a backend for the managed resolver at baseURL.
func NewExternalBackend(baseURL string, client *http.Client) *ExternalBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &ExternalBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (b *ExternalBackend) Name() string {
	return "external-ytdlp"
}

func (b *ExternalBackend) FetchVideo(ctx context.Context, videoID string) (*VideoInfo, error) {
	var item externalItem
	if err := getJSON(ctx, b.client, joinURL(b.baseURL, "audio", videoID), &item); err != nil {
		return nil, err
	}

	if item.AudioURL == "" {
		return nil, fmt.Errorf("%w: missing audioUrl", ErrMalformedResponse)
	}

	return &VideoInfo{
		ID:        firstNonEmpty(item.VideoID, item.ID, videoID),
		Title:     item.Title,
		Artist:    item.artist(),
		Thumbnail: item.Thumbnail,
		Duration:  item.Duration.seconds(),
		Audio:     []AudioCandidate{{URL: item.AudioURL}},
	}, nil
}

func (b *ExternalBackend) FetchPlaylist(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	body := map[string]string{"url": fmt.Sprintf(playlistURLFormat, url.QueryEscape(playlistID))}

	var result externalImport
	if err := doJSON(ctx, b.client, http.MethodPost, b.baseURL+"/import", body, &result); err != nil {
		return nil, err
	}

	if result.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}

	info := &PlaylistInfo{
		ID:        firstNonEmpty(result.Data.ID, playlistID),
		Title:     result.Data.Title,
		Author:    musiclink.CleanChannelName(result.Data.Author),
		Thumbnail: result.Data.Thumbnail,
	}
	for _, item := range result.Data.Tracks {
		if track := item.track(); track.VideoID != "" {
			info.Tracks = append(info.Tracks, track)
		}
	}

	return info, nil
}

func (b *ExternalBackend) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&limit=%d", b.baseURL, url.QueryEscape(query), limit)

	var result externalSearch
	if err := getJSON(ctx, b.client, reqURL, &result); err != nil {
		return nil, err
	}

	tracks := make([]core.Track, 0, len(result.Results))
	for _, item := range result.Results {
		if track := item.track(); track.VideoID != "" {
			tracks = append(tracks, track)
		}
		if len(tracks) >= limit {
			break
		}
	}

	return tracks, nil
}

// OpenStream proxies the service's /stream endpoint.
func (b *ExternalBackend) OpenStream(ctx context.Context, videoID string) (*AudioStream, error) {
	return openHTTPStream(ctx, b.client, joinURL(b.baseURL, "stream", videoID), b.Name())
}
