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

const preferredThumbnailQuality = "medium"

type invidiousThumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type invidiousFormat struct {
	Type    string    `json:"type"`
	Bitrate flexFloat `json:"bitrate"`
	URL     string    `json:"url"`
}

type invidiousVideo struct {
	Type            string               `json:"type"`
	VideoID         string               `json:"videoId"`
	Title           string               `json:"title"`
	Author          string               `json:"author"`
	LengthSeconds   flexFloat            `json:"lengthSeconds"`
	VideoThumbnails []invidiousThumbnail `json:"videoThumbnails"`
	AdaptiveFormats []invidiousFormat    `json:"adaptiveFormats"`
}

type invidiousPlaylist struct {
	PlaylistID        string           `json:"playlistId"`
	Title             string           `json:"title"`
	Author            string           `json:"author"`
	PlaylistThumbnail string           `json:"playlistThumbnail"`
	Videos            []invidiousVideo `json:"videos"`
}

// InvidiousBackend talks to one Invidious instance.
type InvidiousBackend struct {
	baseURL string
	client  *http.Client
}

// NewInvidiousBackend creates a backend for the Invidious instance at baseURL.
func NewInvidiousBackend(baseURL string, client *http.Client) *InvidiousBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &InvidiousBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (b *InvidiousBackend) Name() string {
	return "invidious:" + instanceName(b.baseURL)
}

func (b *InvidiousBackend) FetchVideo(ctx context.Context, videoID string) (*VideoInfo, error) {
	var video invidiousVideo
	if err := getJSON(ctx, b.client, joinURL(b.baseURL, "api", "v1", "videos", videoID), &video); err != nil {
		return nil, err
	}

	if video.Title == "" && len(video.AdaptiveFormats) == 0 {
		return nil, fmt.Errorf("%w: empty video document", ErrMalformedResponse)
	}

	info := &VideoInfo{
		ID:        firstNonEmpty(video.VideoID, videoID),
		Title:     video.Title,
		Artist:    musiclink.CleanChannelName(video.Author),
		Thumbnail: b.thumbnail(video.VideoThumbnails),
		Duration:  video.LengthSeconds.seconds(),
	}

	for _, f := range video.AdaptiveFormats {
		if !isAudioMime(f.Type) {
			continue
		}
		info.Audio = append(info.Audio, AudioCandidate{
			URL:      f.URL,
			Bitrate:  float64(f.Bitrate),
			MimeType: baseMime(f.Type),
		})
	}

	return info, nil
}

func (b *InvidiousBackend) FetchPlaylist(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	var playlist invidiousPlaylist
	if err := getJSON(ctx, b.client, joinURL(b.baseURL, "api", "v1", "playlists", playlistID), &playlist); err != nil {
		return nil, err
	}

	if playlist.Title == "" && len(playlist.Videos) == 0 {
		return nil, fmt.Errorf("%w: empty playlist document", ErrMalformedResponse)
	}

	info := &PlaylistInfo{
		ID:        firstNonEmpty(playlist.PlaylistID, playlistID),
		Title:     playlist.Title,
		Author:    musiclink.CleanChannelName(playlist.Author),
		Thumbnail: b.absolute(playlist.PlaylistThumbnail),
	}

	for _, v := range playlist.Videos {
		if v.VideoID == "" {
			continue
		}
		info.Tracks = append(info.Tracks, b.track(v))
	}

	return info, nil
}

func (b *InvidiousBackend) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	reqURL := fmt.Sprintf("%s/api/v1/search?q=%s&type=video", b.baseURL, url.QueryEscape(query))

	var items []invidiousVideo
	if err := getJSON(ctx, b.client, reqURL, &items); err != nil {
		return nil, err
	}

	tracks := make([]core.Track, 0, limit)
	for _, item := range items {
		if item.Type != "video" || item.VideoID == "" {
			continue
		}
		tracks = append(tracks, b.track(item))
		if len(tracks) >= limit {
			break
		}
	}

	return tracks, nil
}

func (b *InvidiousBackend) track(v invidiousVideo) core.Track {
	return core.Track{
		ID:        v.VideoID,
		VideoID:   v.VideoID,
		Title:     v.Title,
		Artist:    musiclink.CleanChannelName(v.Author),
		Thumbnail: b.thumbnail(v.VideoThumbnails),
		Duration:  v.LengthSeconds.seconds(),
	}.Normalize()
}

// thumbnail prefers the medium quality image, then the first one.
func (b *InvidiousBackend) thumbnail(thumbs []invidiousThumbnail) string {
	for _, t := range thumbs {
		if t.Quality == preferredThumbnailQuality && t.URL != "" {
			return b.absolute(t.URL)
		}
	}
	for _, t := range thumbs {
		if t.URL != "" {
			return b.absolute(t.URL)
		}
	}
	return ""
}

// absolute resolves instance-relative image paths.
func (b *InvidiousBackend) absolute(ref string) string {
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if strings.HasPrefix(ref, "/") {
		return b.baseURL + ref
	}
	return ref
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
