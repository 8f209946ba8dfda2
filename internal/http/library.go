package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/internal/library"
)

type dataResponse struct {
	Data any `json:"data"`
}

type favoriteResponse struct {
	TrackID  string `json:"trackId"`
	Favorite bool   `json:"favorite"`
}

func (h *handlers) handleListPlaylists(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{Data: h.deps.Library.Playlists()})
}

func (h *handlers) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.deps.Library.Playlist(r.PathValue("id"))
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: playlist})
}

// handleSavePlaylist stores the playlist under the ID from the path.
func (h *handlers) handleSavePlaylist(w http.ResponseWriter, r *http.Request) {
	var playlist core.Playlist
	if err := decodeBody(r, &playlist); err != nil {
		h.writeError(w, http.StatusBadRequest, "error.invalid_body")
		return
	}
	playlist.ID = r.PathValue("id")

	saved, err := h.deps.Library.SavePlaylist(r.Context(), playlist)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: saved})
}

func (h *handlers) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Library.DeletePlaylist(r.Context(), r.PathValue("id")); err != nil {
		h.writeLibraryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleListFavorites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{Data: h.deps.Library.Favorites()})
}

func (h *handlers) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var track core.Track
	if err := decodeBody(r, &track); err != nil {
		h.writeError(w, http.StatusBadRequest, "error.invalid_body")
		return
	}

	favorite, err := h.deps.Library.ToggleFavorite(r.Context(), track)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{TrackID: track.Normalize().ID, Favorite: favorite})
}

func (h *handlers) handleListRecent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{Data: h.deps.Library.Recent()})
}

func (h *handlers) handleAddRecent(w http.ResponseWriter, r *http.Request) {
	var track core.Track
	if err := decodeBody(r, &track); err != nil {
		h.writeError(w, http.StatusBadRequest, "error.invalid_body")
		return
	}

	if err := h.deps.Library.AddRecent(r.Context(), track); err != nil {
		h.writeLibraryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleClearLibrary(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Library.Clear(r.Context()); err != nil {
		h.writeLibraryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) writeLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrPlaylistNotFound):
		h.writeError(w, http.StatusNotFound, "error.playlist_not_found")
	case errors.Is(err, library.ErrInvalidPlaylist):
		h.writeError(w, http.StatusBadRequest, "error.invalid_playlist")
	case errors.Is(err, library.ErrInvalidTrack):
		h.writeError(w, http.StatusBadRequest, "error.invalid_track")
	default:
		h.logger.Error("Library operation failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "error.generic")
	}
}
