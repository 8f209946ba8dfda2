// Package http exposes the resolver, catalog import, library and offline cache over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"audiomab/internal/catalog"
	"audiomab/internal/core"
	"audiomab/internal/flood"
	"audiomab/internal/i18n"
	"audiomab/internal/library"
	"audiomab/internal/offline"
	"audiomab/internal/resolver"
	"audiomab/pkg/text"
)

const shutdownTimeout = 10 * time.Second

// Resolver is the resolution engine as seen by the handlers.
type Resolver interface {
	FetchVideo(ctx context.Context, videoID string) (*resolver.VideoResult, error)
	Search(ctx context.Context, query string, limit int) (*resolver.SearchResult, error)
	Import(ctx context.Context, raw string) (*resolver.PlaylistResult, error)
	OpenStream(ctx context.Context, videoID string) (*resolver.AudioStream, error)
	Backends() []string
}

// CatalogImporter turns a catalog page into a playlist.
type CatalogImporter interface {
	Import(ctx context.Context, pageURL string) (*catalog.Result, error)
}

// Dependencies are the services behind the routes. Floodgate is optional.
type Dependencies struct {
	Resolver  Resolver
	Catalog   CatalogImporter
	Library   *library.Library
	Offline   *offline.Manager
	Floodgate *flood.Floodgate
	Localizer *i18n.Localizer
	Metrics   *Metrics
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

// handlers carries the dependencies shared by every route.
type handlers struct {
	deps   Dependencies
	parser *text.Parser
	logger *zap.Logger
}

func NewServer(config *core.ServerConfig, deps Dependencies, logger *zap.Logger) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	mux := setupRoutes(deps, logger)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: deps.Metrics,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}
}

func setupRoutes(deps Dependencies, logger *zap.Logger) http.Handler {
	if deps.Localizer == nil {
		deps.Localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}
	h := &handlers{deps: deps, parser: text.NewParser(), logger: logger}
	mux := http.NewServeMux()

	limited := func(next http.HandlerFunc) http.Handler {
		return h.floodMiddleware(next)
	}

	mux.Handle("GET /resolve/audio/{videoId}", limited(h.handleAudio))
	mux.Handle("GET /resolve/audio/{$}", limited(h.handleMissingID))
	mux.Handle("GET /resolve/stream/{videoId}", limited(h.handleStream))
	mux.Handle("GET /resolve/stream/{$}", limited(h.handleMissingID))
	mux.Handle("GET /resolve/search", limited(h.handleSearch))
	mux.Handle("POST /resolve/import", limited(h.handleImport))
	mux.Handle("POST /resolve/catalog-import", limited(h.handleCatalogImport))

	mux.HandleFunc("GET /library/playlists", h.handleListPlaylists)
	mux.HandleFunc("GET /library/playlists/{id}", h.handleGetPlaylist)
	mux.HandleFunc("PUT /library/playlists/{id}", h.handleSavePlaylist)
	mux.HandleFunc("DELETE /library/playlists/{id}", h.handleDeletePlaylist)
	mux.HandleFunc("GET /library/favorites", h.handleListFavorites)
	mux.HandleFunc("POST /library/favorites/toggle", h.handleToggleFavorite)
	mux.HandleFunc("GET /library/recent", h.handleListRecent)
	mux.HandleFunc("POST /library/recent", h.handleAddRecent)
	mux.HandleFunc("DELETE /library", h.handleClearLibrary)

	mux.HandleFunc("POST /offline/{videoId}", h.handleOfflineDownload)
	mux.HandleFunc("HEAD /offline/{videoId}", h.handleOfflineHead)
	mux.HandleFunc("GET /offline/{videoId}", h.handleOfflineGet)
	mux.HandleFunc("DELETE /offline/{videoId}", h.handleOfflineDelete)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "audiomab"})
	})
	mux.HandleFunc("GET /readyz", h.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /{$}", homeHandler(logger))

	return h.metricsMiddleware(mux)
}

// handleReady reports ready once at least one backend is configured.
func (h *handlers) handleReady(w http.ResponseWriter, _ *http.Request) {
	backends := h.deps.Resolver.Backends()
	if len(backends) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "no backends", "service": "audiomab"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "service": "audiomab", "backends": backends})
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps audio relays streaming through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *handlers) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		h.deps.Metrics.RecordRequest(route, status)
	})
}

// floodMiddleware rejects clients that exceed the per-minute request budget.
func (h *handlers) floodMiddleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fg := h.deps.Floodgate
		if fg == nil || !fg.Enabled() {
			next(w, r)
			return
		}

		allowed, retryAfter := fg.Allow(clientID(r))
		if !allowed {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(max(1, seconds)))
			h.writeError(w, http.StatusTooManyRequests, "error.rate_limited")
			h.logger.Debug("Request rate limited",
				zap.String("client", clientID(r)),
				zap.String("path", r.URL.Path))
			return
		}
		next(w, r)
	})
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(homePage)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>audiomab</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 audiomab</h1>
    <p>Resolve video links to playable audio</p>

    <h2>Resolver</h2>
    <div class="endpoint"><code>GET /resolve/audio/{videoId}</code> - Playable audio URL</div>
    <div class="endpoint"><code>GET /resolve/stream/{videoId}</code> - Relayed audio bytes</div>
    <div class="endpoint"><code>GET /resolve/search?q=</code> - Search</div>
    <div class="endpoint"><code>POST /resolve/import</code> - Import a video or playlist URL</div>
    <div class="endpoint"><code>POST /resolve/catalog-import</code> - Import an Apple Music playlist</div>

    <h2>Service</h2>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`
