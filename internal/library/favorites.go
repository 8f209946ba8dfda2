package library

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"audiomab/internal/core"
)

const (
	favoritesBloomCapacity  = 10000
	favoritesFalsePositives = 0.001
)

// FavoriteSet is an insertion-ordered set of tracks keyed by track ID.
// A Bloom filter answers most negative lookups without touching the map.
type FavoriteSet struct {
	tracks map[string]core.Track
	order  []string
	bloom  *bloom.BloomFilter
	mutex  sync.RWMutex
}

// NewFavoriteSet creates an empty set.
func NewFavoriteSet() *FavoriteSet {
	return &FavoriteSet{
		tracks: make(map[string]core.Track),
		bloom:  bloom.NewWithEstimates(favoritesBloomCapacity, favoritesFalsePositives),
	}
}

// Has checks if a track ID is a favorite.
func (fs *FavoriteSet) Has(trackID string) bool {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	if !fs.bloom.TestString(trackID) {
		return false
	}

	_, exists := fs.tracks[trackID]
	return exists
}

// Toggle adds the track when absent and removes it when present.
// It returns true when the track is a favorite afterwards.
func (fs *FavoriteSet) Toggle(track core.Track) bool {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if _, exists := fs.tracks[track.ID]; exists {
		fs.remove(track.ID)
		return false
	}

	fs.add(track)
	return true
}

// Load clears the set and adds the given tracks in order.
func (fs *FavoriteSet) Load(tracks []core.Track) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	fs.clear()
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}
		if _, exists := fs.tracks[track.ID]; !exists {
			fs.add(track)
		}
	}
}

// List returns the favorites in insertion order.
func (fs *FavoriteSet) List() []core.Track {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	tracks := make([]core.Track, 0, len(fs.order))
	for _, id := range fs.order {
		tracks = append(tracks, fs.tracks[id])
	}
	return tracks
}

// Size returns the number of favorites.
func (fs *FavoriteSet) Size() int {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	return len(fs.tracks)
}

// Clear removes all favorites.
func (fs *FavoriteSet) Clear() {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.clear()
}

func (fs *FavoriteSet) add(track core.Track) {
	fs.tracks[track.ID] = track
	fs.order = append(fs.order, track.ID)
	fs.bloom.AddString(track.ID)
}

// remove cannot clear Bloom bits; the map stays authoritative for stale positives.
func (fs *FavoriteSet) remove(trackID string) {
	delete(fs.tracks, trackID)
	for i, id := range fs.order {
		if id == trackID {
			fs.order = append(fs.order[:i], fs.order[i+1:]...)
			break
		}
	}
}

func (fs *FavoriteSet) clear() {
	fs.tracks = make(map[string]core.Track)
	fs.order = nil
	fs.bloom.ClearAll()
}
