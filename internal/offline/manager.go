package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/internal/resolver"
)

// ErrTooLarge is returned when a download exceeds the configured size limit.
var ErrTooLarge = errors.New("audio exceeds offline size limit")

// ErrEmptyAudio is returned when a stream ends without any audio bytes.
var ErrEmptyAudio = errors.New("audio stream is empty")

// Streamer opens the complete audio byte stream of a video.
type Streamer interface {
	OpenStream(ctx context.Context, videoID string) (*resolver.AudioStream, error)
}

// Recorder counts downloads by status ("stored", "failed", "too_large").
type Recorder interface {
	RecordOfflineDownload(status string)
}

// Manager downloads audio through the stream relay and serves it back from the store.
type Manager struct {
	store    Store
	streamer Streamer
	maxBytes int64
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a manager. maxBytes <= 0 disables the per-download size limit.
func NewManager(store Store, streamer Streamer, maxBytes int64, recorder Recorder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    store,
		streamer: streamer,
		maxBytes: maxBytes,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Download fetches the whole payload and stores it, replacing any previous entry.
// Nothing is written unless the transfer completes.
func (m *Manager) Download(ctx context.Context, track core.Track) (*Blob, error) {
	videoID := strings.TrimSpace(track.Normalize().VideoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: missing video id", resolver.ErrInvalidInput)
	}

	blob, err := m.fetch(ctx, videoID)
	if err != nil {
		status := "failed"
		if errors.Is(err, ErrTooLarge) {
			status = "too_large"
		}
		m.record(status)
		m.logger.Warn("Offline download failed", zap.String("videoID", videoID), zap.Error(err))
		return nil, err
	}

	if err := m.store.Put(ctx, blob); err != nil {
		m.record("failed")
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	m.record("stored")
	m.logger.Info("Stored audio offline",
		zap.String("videoID", videoID),
		zap.String("title", track.Title),
		zap.Int64("bytes", blob.Size()))

	return blob, nil
}

func (m *Manager) fetch(ctx context.Context, videoID string) (blob *Blob, err error) {
	stream, err := m.streamer.OpenStream(ctx, videoID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := stream.Body.Close(); closeErr != nil && err == nil {
			blob, err = nil, fmt.Errorf("failed to finish audio stream: %w", closeErr)
		}
	}()

	if m.maxBytes > 0 && stream.ContentLength > m.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, stream.ContentLength)
	}

	var body io.Reader = stream.Body
	if m.maxBytes > 0 {
		body = io.LimitReader(stream.Body, m.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	if m.maxBytes > 0 && int64(len(data)) > m.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, m.maxBytes)
	}
	if stream.ContentLength > 0 && int64(len(data)) != stream.ContentLength {
		return nil, fmt.Errorf("incomplete audio stream: got %d of %d bytes", len(data), stream.ContentLength)
	}

	return &Blob{
		VideoID:     videoID,
		Data:        data,
		ContentType: stream.ContentType,
		StoredAt:    m.now(),
	}, nil
}

// IsCached reports whether a blob exists for videoID. Store errors count as not cached.
func (m *Manager) IsCached(ctx context.Context, videoID string) bool {
	ok, err := m.store.Has(ctx, videoID)
	if err != nil {
		m.logger.Warn("Offline lookup failed", zap.String("videoID", videoID), zap.Error(err))
		return false
	}
	return ok
}

// GetCachedBlob returns the stored blob or ErrNotCached.
func (m *Manager) GetCachedBlob(ctx context.Context, videoID string) (*Blob, error) {
	return m.store.Get(ctx, videoID)
}

// Remove deletes the stored blob for videoID.
func (m *Manager) Remove(ctx context.Context, videoID string) error {
	return m.store.Delete(ctx, videoID)
}

func (m *Manager) record(status string) {
	if m.recorder != nil {
		m.recorder.RecordOfflineDownload(status)
	}
}
