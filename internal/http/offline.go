package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/internal/offline"
)

type offlineResponse struct {
	VideoID     string    `json:"videoId"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	StoredAt    time.Time `json:"storedAt"`
}

// handleOfflineDownload relays the audio into the offline store. The body may carry
// the track metadata; the path ID always wins.
func (h *handlers) handleOfflineDownload(w http.ResponseWriter, r *http.Request) {
	var track core.Track
	if err := decodeBody(r, &track); err != nil {
		h.writeError(w, http.StatusBadRequest, "error.invalid_body")
		return
	}
	track.ID = r.PathValue("videoId")
	track.VideoID = track.ID

	blob, err := h.deps.Offline.Download(r.Context(), track)
	if errors.Is(err, offline.ErrTooLarge) {
		h.writeError(w, http.StatusRequestEntityTooLarge, "error.too_large")
		return
	}
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, offlineResponse{
		VideoID:     blob.VideoID,
		Size:        blob.Size(),
		ContentType: blob.ContentType,
		StoredAt:    blob.StoredAt,
	})
}

func (h *handlers) handleOfflineHead(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Offline.IsCached(r.Context(), r.PathValue("videoId")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) handleOfflineGet(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoId")
	blob, err := h.deps.Offline.GetCachedBlob(r.Context(), videoID)
	if errors.Is(err, offline.ErrNotCached) {
		h.writeError(w, http.StatusNotFound, "error.not_cached")
		return
	}
	if err != nil {
		h.logger.Error("Failed to read offline audio", zap.String("videoID", videoID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "error.generic")
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(blob.Size(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		h.logger.Debug("Failed to write offline audio", zap.String("videoID", videoID), zap.Error(err))
	}
}

func (h *handlers) handleOfflineDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Offline.Remove(r.Context(), r.PathValue("videoId")); err != nil {
		h.logger.Error("Failed to remove offline audio", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "error.generic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
