package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/pkg/musiclink"
)

const (
	OperationVideo    = "video"
	OperationPlaylist = "playlist"
	OperationSearch   = "search"
	OperationStream   = "stream"

	// statusClientClosedRequest is used when the caller went away before a backend answered.
	statusClientClosedRequest = 499
)

// Recorder receives one observation per backend attempt.
type Recorder interface {
	RecordAttempt(backend, operation, outcome string, duration time.Duration)
}

// Options tune the Engine. Zero timeouts disable the per-attempt deadline.
type Options struct {
	SearchTimeout   time.Duration
	VideoTimeout    time.Duration
	PlaylistTimeout time.Duration
	StreamTimeout   time.Duration

	SearchLimit int
	CacheSize   int
	CacheTTL    time.Duration

	// Client relays audio for backends that only hand out stream URLs.
	Client   *http.Client
	Recorder Recorder
}

// OptionsFromConfig maps the resolver configuration to engine options.
func OptionsFromConfig(cfg core.ResolverConfig) Options {
	return Options{
		SearchTimeout:   cfg.SearchTimeout,
		VideoTimeout:    cfg.VideoTimeout,
		PlaylistTimeout: cfg.PlaylistTimeout,
		StreamTimeout:   cfg.StreamTimeout,
		SearchLimit:     cfg.SearchLimit,
		CacheSize:       cfg.CacheSize,
		CacheTTL:        cfg.CacheTTL,
	}
}

// VideoResult is a resolved video with its playable audio URL.
type VideoResult struct {
	Track core.Track
	Audio core.ResolvedAudio
}

// PlaylistResult is an expanded playlist and the backend that answered.
type PlaylistResult struct {
	Playlist core.Playlist
	Source   string
}

// SearchResult holds search hits and the backend that answered.
type SearchResult struct {
	Tracks []core.Track
	Source string
}

// Engine resolves media through an ordered list of backends.
// Attempts are strictly sequential and each backend is tried at most once per call.
type Engine struct {
	backends []Backend
	opts     Options
	logger   *zap.Logger

	playlists *expirable.LRU[string, PlaylistResult]
	searches  *expirable.LRU[string, SearchResult]
}

// NewEngine creates an engine that tries backends in the given order.
func NewEngine(backends []Backend, opts Options, logger *zap.Logger) *Engine {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = core.DefaultSearchLimit
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}

	e := &Engine{
		backends: append([]Backend(nil), backends...),
		opts:     opts,
		logger:   logger,
	}

	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		e.playlists = expirable.NewLRU[string, PlaylistResult](opts.CacheSize, nil, opts.CacheTTL)
		e.searches = expirable.NewLRU[string, SearchResult](opts.CacheSize, nil, opts.CacheTTL)
	}

	return e
}

// Backends returns the backend names in attempt order.
func (e *Engine) Backends() []string {
	names := make([]string, 0, len(e.backends))
	for _, b := range e.backends {
		names = append(names, b.Name())
	}
	return names
}

// FetchVideo resolves a video ID to track metadata and the best audio-only stream.
func (e *Engine) FetchVideo(ctx context.Context, videoID string) (*VideoResult, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: missing video id", ErrInvalidInput)
	}

	result, _, err := runAttempts(ctx, e, OperationVideo, e.opts.VideoTimeout,
		func(ctx context.Context, b Backend) (*VideoResult, error) {
			return e.fetchVideoFrom(ctx, b, videoID)
		})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Engine) fetchVideoFrom(ctx context.Context, b Backend, videoID string) (*VideoResult, error) {
	info, err := b.FetchVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	best, ok := SelectBestAudio(info.Audio)
	if !ok {
		return nil, fmt.Errorf("%w: no audio-only stream", ErrMalformedResponse)
	}

	if info.ID == "" {
		info.ID = videoID
	}

	return &VideoResult{
		Track: info.track(),
		Audio: core.ResolvedAudio{
			AudioURL:    best.URL,
			Source:      b.Name(),
			ContentType: baseMime(best.MimeType),
		},
	}, nil
}

// FetchPlaylist expands a playlist ID into its tracks.
func (e *Engine) FetchPlaylist(ctx context.Context, playlistID string) (*PlaylistResult, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return nil, fmt.Errorf("%w: missing playlist id", ErrInvalidInput)
	}

	if e.playlists != nil {
		if cached, ok := e.playlists.Get(playlistID); ok {
			e.logger.Debug("Playlist served from cache", zap.String("playlistID", playlistID))
			return clonePlaylistResult(cached), nil
		}
	}

	info, source, err := runAttempts(ctx, e, OperationPlaylist, e.opts.PlaylistTimeout,
		func(ctx context.Context, b Backend) (*PlaylistInfo, error) {
			return b.FetchPlaylist(ctx, playlistID)
		})
	if err != nil {
		return nil, err
	}

	result := PlaylistResult{Playlist: playlistFromInfo(playlistID, info), Source: source}
	if e.playlists != nil {
		e.playlists.Add(playlistID, result)
	}

	return clonePlaylistResult(result), nil
}

func playlistFromInfo(playlistID string, info *PlaylistInfo) core.Playlist {
	playlist := core.Playlist{
		ID:        firstNonEmpty(info.ID, playlistID),
		Title:     info.Title,
		Author:    info.Author,
		Thumbnail: info.Thumbnail,
		Tracks:    make([]core.Track, 0, len(info.Tracks)),
	}

	for _, t := range info.Tracks {
		playlist.Tracks = append(playlist.Tracks, t.Normalize())
	}

	if playlist.Title == "" {
		playlist.Title = fmt.Sprintf("Playlist (%d videos)", len(playlist.Tracks))
	}
	if playlist.Author == "" {
		playlist.Author = unknownUploader
	}
	if playlist.Thumbnail == "" && len(playlist.Tracks) > 0 {
		playlist.Thumbnail = playlist.Tracks[0].Thumbnail
	}

	return playlist
}

// Search looks up videos matching query. A non-positive limit uses the configured default.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: missing query", ErrInvalidInput)
	}

	switch {
	case limit <= 0:
		limit = e.opts.SearchLimit
	case limit > core.MaxSearchLimit:
		limit = core.MaxSearchLimit
	}

	key := fmt.Sprintf("%d:%s", limit, strings.ToLower(query))
	if e.searches != nil {
		if cached, ok := e.searches.Get(key); ok {
			e.logger.Debug("Search served from cache", zap.String("query", query))
			return cloneSearchResult(cached), nil
		}
	}

	tracks, source, err := runAttempts(ctx, e, OperationSearch, e.opts.SearchTimeout,
		func(ctx context.Context, b Backend) ([]core.Track, error) {
			return b.Search(ctx, query, limit)
		})
	if err != nil {
		return nil, err
	}

	normalized := make([]core.Track, 0, len(tracks))
	for _, t := range tracks {
		if len(normalized) >= limit {
			break
		}
		normalized = append(normalized, t.Normalize())
	}

	result := SearchResult{Tracks: normalized, Source: source}
	if e.searches != nil {
		e.searches.Add(key, result)
	}

	return cloneSearchResult(result), nil
}

// Import classifies a pasted URL and expands it. A single video is wrapped as a one-track playlist.
func (e *Engine) Import(ctx context.Context, raw string) (*PlaylistResult, error) {
	ref := musiclink.Classify(raw)
	if ref == nil {
		return nil, fmt.Errorf("%w: unrecognized URL", ErrInvalidInput)
	}

	if ref.Kind == musiclink.MediaKindPlaylist {
		return e.FetchPlaylist(ctx, ref.ID)
	}

	video, err := e.FetchVideo(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	return &PlaylistResult{
		Playlist: core.Playlist{
			ID:        video.Track.VideoID,
			Title:     video.Track.Title,
			Author:    video.Track.Artist,
			Thumbnail: video.Track.Thumbnail,
			Tracks:    []core.Track{video.Track},
		},
		Source: video.Audio.Source,
	}, nil
}

// OpenStream returns the audio bytes of a video. Backends that stream themselves are used directly;
// the others are relayed through their best audio URL. The caller must close the body.
func (e *Engine) OpenStream(ctx context.Context, videoID string) (*AudioStream, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: missing video id", ErrInvalidInput)
	}

	stream, _, release, err := runHeldAttempts(ctx, e, OperationStream, e.opts.StreamTimeout,
		func(ctx context.Context, b Backend) (*AudioStream, error) {
			if s, ok := b.(Streamer); ok {
				return s.OpenStream(ctx, videoID)
			}
			return e.relay(ctx, b, videoID)
		})
	if err != nil {
		return nil, err
	}

	stream.Body = &cancelOnClose{ReadCloser: stream.Body, cancel: release}
	return stream, nil
}

func (e *Engine) relay(ctx context.Context, b Backend, videoID string) (*AudioStream, error) {
	metaCtx, cancel := withOptionalTimeout(ctx, e.opts.VideoTimeout)
	video, err := e.fetchVideoFrom(metaCtx, b, videoID)
	cancel()
	if err != nil {
		return nil, err
	}

	stream, err := openHTTPStream(ctx, e.opts.Client, video.Audio.AudioURL, b.Name())
	if err != nil {
		return nil, err
	}
	if video.Audio.ContentType != "" && stream.ContentType == defaultStreamMime {
		stream.ContentType = video.Audio.ContentType
	}
	return stream, nil
}

type versioner interface {
	Version(ctx context.Context) (string, error)
}

// Probe logs the version of backends that can report one, such as a local yt-dlp.
func (e *Engine) Probe(ctx context.Context) {
	for _, b := range e.backends {
		v, ok := b.(versioner)
		if !ok {
			continue
		}

		probeCtx, cancel := withOptionalTimeout(ctx, e.opts.VideoTimeout)
		version, err := v.Version(probeCtx)
		cancel()

		if err != nil {
			e.logger.Warn("Backend probe failed", zap.String("backend", b.Name()), zap.Error(err))
			continue
		}
		e.logger.Info("Backend available", zap.String("backend", b.Name()), zap.String("version", version))
	}
}

func (e *Engine) record(backend, operation string, err error, d time.Duration) {
	if e.opts.Recorder != nil {
		e.opts.Recorder.RecordAttempt(backend, operation, outcome(err), d)
	}
}

// runAttempts tries every backend in order until one succeeds.
func runAttempts[T any](
	ctx context.Context, e *Engine, operation string, timeout time.Duration,
	call func(context.Context, Backend) (T, error),
) (T, string, error) {
	result, source, release, err := runHeldAttempts(ctx, e, operation, timeout, call)
	release()
	return result, source, err
}

// runHeldAttempts is runAttempts for results that stay bound to the attempt context,
// such as open streams. On success the caller owns release.
func runHeldAttempts[T any](
	ctx context.Context, e *Engine, operation string, timeout time.Duration,
	call func(context.Context, Backend) (T, error),
) (T, string, context.CancelFunc, error) {
	var zero T
	noop := func() {}

	if len(e.backends) == 0 {
		return zero, "", noop, ErrNoBackends
	}

	failures := make([]AttemptError, 0, len(e.backends))
	for _, b := range e.backends {
		if err := ctx.Err(); err != nil {
			return zero, "", noop, err
		}

		attemptCtx, cancel := withOptionalTimeout(ctx, timeout)
		started := time.Now()
		result, err := call(attemptCtx, b)
		if err != nil {
			err = classify(attemptCtx, err)
		}
		e.record(b.Name(), operation, err, time.Since(started))

		if err == nil {
			e.logger.Debug("Backend attempt succeeded",
				zap.String("backend", b.Name()),
				zap.String("operation", operation),
				zap.Duration("duration", time.Since(started)))
			return result, b.Name(), cancel, nil
		}
		cancel()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, "", noop, ctxErr
		}

		e.logger.Warn("Backend attempt failed",
			zap.String("backend", b.Name()),
			zap.String("operation", operation),
			zap.Error(err))
		failures = append(failures, AttemptError{Backend: b.Name(), Err: err})
	}

	return zero, "", noop, &AllBackendsError{Operation: operation, Attempts: failures}
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func clonePlaylistResult(r PlaylistResult) *PlaylistResult {
	r.Playlist.Tracks = append([]core.Track(nil), r.Playlist.Tracks...)
	return &r
}

func cloneSearchResult(r SearchResult) *SearchResult {
	r.Tracks = append([]core.Track(nil), r.Tracks...)
	return &r
}

// BuildBackends creates the backends in attempt order: local yt-dlp, external resolver,
// then each Invidious and each Piped instance in declared order.
func BuildBackends(cfg core.ResolverConfig, client *http.Client) []Backend {
	var backends []Backend

	if cfg.LocalEnabled {
		backends = append(backends, NewYtDlpBackend(cfg.YtDlpPath))
	}
	if strings.TrimSpace(cfg.ExternalURL) != "" {
		backends = append(backends, NewExternalBackend(cfg.ExternalURL, client))
	}
	for _, instance := range cfg.InvidiousInstances {
		if instance = strings.TrimSpace(instance); instance != "" {
			backends = append(backends, NewInvidiousBackend(instance, client))
		}
	}
	for _, instance := range cfg.PipedInstances {
		if instance = strings.TrimSpace(instance); instance != "" {
			backends = append(backends, NewPipedBackend(instance, client))
		}
	}

	return backends
}

// StatusCode maps a resolution error to the HTTP status surfaced to clients.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrAllBackendsUnavailable), errors.Is(err, ErrNoBackends):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
