package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"audiomab/internal/resolver"
)

// maxRequestBodySize caps JSON request bodies.
const maxRequestBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already on the wire; a failed encode only means the client went away.
	_ = json.NewEncoder(w).Encode(body)
}

func (h *handlers) writeError(w http.ResponseWriter, status int, key string, args ...any) {
	writeJSON(w, status, errorResponse{Error: h.deps.Localizer.T(key, args...)})
}

// writeResolveError maps a resolver failure to its status and localized message.
func (h *handlers) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	status := resolver.StatusCode(err)

	var key string
	switch status {
	case http.StatusBadRequest:
		key = "error.invalid_url"
	case http.StatusGatewayTimeout:
		key = "error.timeout"
	case http.StatusServiceUnavailable:
		key = "error.backends_unavailable"
	default:
		key = "error.generic"
	}

	if errors.Is(err, resolver.ErrInvalidInput) {
		h.logger.Debug("Rejected request", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Error("Resolution failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}

	h.writeError(w, status, key)
}

// decodeBody reads a JSON request body. An empty body leaves dest untouched.
func decodeBody(r *http.Request, dest any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
