// Package offline keeps complete audio payloads keyed by video ID so tracks can play without the network.
package offline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotCached is returned when no blob is stored for a video ID.
var ErrNotCached = errors.New("audio not cached")

// Blob is a complete stored audio payload.
type Blob struct {
	VideoID     string
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int64 {
	return int64(len(b.Data))
}

// Store is a keyed blob store. Put replaces any existing entry as a whole.
type Store interface {
	Get(ctx context.Context, videoID string) (*Blob, error)
	Put(ctx context.Context, blob *Blob) error
	Has(ctx context.Context, videoID string) (bool, error)
	Delete(ctx context.Context, videoID string) error
	Close() error
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mutex sync.RWMutex
	blobs map[string]*Blob
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]*Blob)}
}

func (s *MemoryStore) Get(_ context.Context, videoID string) (*Blob, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	blob, ok := s.blobs[videoID]
	if !ok {
		return nil, ErrNotCached
	}
	copied := *blob
	return &copied, nil
}

func (s *MemoryStore) Put(_ context.Context, blob *Blob) error {
	if blob == nil || blob.VideoID == "" {
		return errors.New("blob without video id")
	}

	copied := *blob
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.blobs[blob.VideoID] = &copied
	return nil
}

func (s *MemoryStore) Has(_ context.Context, videoID string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.blobs[videoID]
	return ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, videoID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.blobs, videoID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
