package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"audiomab/internal/catalog"
	"audiomab/internal/core"
	"audiomab/pkg/musiclink"
)

type audioResponse struct {
	AudioURL  string `json:"audioUrl"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
	Source    string `json:"source"`
}

type searchResponse struct {
	Results []core.Track `json:"results"`
	Source  string       `json:"source"`
}

type importRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type importResponse struct {
	Data   core.Playlist `json:"data"`
	Source string        `json:"source"`
}

type catalogImportResponse struct {
	Data               core.Playlist `json:"data"`
	Source             string        `json:"source"`
	OriginalSongs      int           `json:"originalSongs"`
	MatchedSongs       int           `json:"matchedSongs"`
	LowConfidenceSongs int           `json:"lowConfidenceSongs"`
}

func (h *handlers) handleMissingID(w http.ResponseWriter, _ *http.Request) {
	h.writeError(w, http.StatusBadRequest, "error.missing_id")
}

func (h *handlers) handleAudio(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if videoID == "" {
		h.handleMissingID(w, r)
		return
	}

	video, err := h.deps.Resolver.FetchVideo(r.Context(), videoID)
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, audioResponse{
		AudioURL:  video.Audio.AudioURL,
		Title:     video.Track.Title,
		Artist:    video.Track.Artist,
		Thumbnail: video.Track.Thumbnail,
		Duration:  video.Track.Duration,
		Source:    video.Audio.Source,
	})
}

// handleStream relays the audio bytes so clients never see the signed upstream URL.
func (h *handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if videoID == "" {
		h.handleMissingID(w, r)
		return
	}

	stream, err := h.deps.Resolver.OpenStream(r.Context(), videoID)
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}
	defer stream.Body.Close()

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("X-Audio-Source", stream.Source)
	if stream.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, stream.Body)
	if err != nil {
		h.logger.Warn("Audio relay interrupted",
			zap.String("videoID", videoID),
			zap.String("source", stream.Source),
			zap.Int64("bytes", written),
			zap.Error(err))
		return
	}

	h.logger.Debug("Audio relayed",
		zap.String("videoID", videoID),
		zap.String("source", stream.Source),
		zap.Int64("bytes", written))
}

func (h *handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "error.missing_query")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "error.invalid_body")
			return
		}
		limit = parsed
	}

	result, err := h.deps.Resolver.Search(r.Context(), query, limit)
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	tracks := result.Tracks
	if tracks == nil {
		tracks = []core.Track{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: tracks, Source: result.Source})
}

// handleImport accepts a bare URL or shared text containing one.
func (h *handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "error.invalid_body")
		return
	}

	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		raw = h.parser.ParseShared(req.Text).URL()
	}
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "error.invalid_url")
		return
	}

	result, err := h.deps.Resolver.Import(r.Context(), raw)
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{Data: result.Playlist, Source: result.Source})
}

func (h *handlers) handleCatalogImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "error.invalid_body")
		return
	}

	pageURL := strings.TrimSpace(req.URL)
	if pageURL == "" {
		pageURL = h.parser.ParseShared(req.Text).URL()
	}

	result, err := h.deps.Catalog.Import(r.Context(), pageURL)
	switch {
	case err == nil:
	case errors.Is(err, musiclink.ErrNotCatalogURL):
		h.writeError(w, http.StatusBadRequest, "error.invalid_catalog_url")
		return
	case errors.Is(err, musiclink.ErrNoSongsExtracted):
		h.writeError(w, http.StatusUnprocessableEntity, "error.no_songs")
		return
	case errors.Is(err, catalog.ErrFetchFailed):
		h.logger.Warn("Catalog page fetch failed", zap.String("url", pageURL), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "error.catalog_fetch")
		return
	default:
		h.writeResolveError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, catalogImportResponse{
		Data:               result.Playlist,
		Source:             result.Source,
		OriginalSongs:      result.OriginalSongs,
		MatchedSongs:       result.MatchedSongs,
		LowConfidenceSongs: result.LowConfidenceSongs,
	})
}
