package library

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"audiomab/internal/core"
)

// RecentList is a bounded most-recent-first list of tracks, de-duplicated by track ID.
type RecentList struct {
	cache *lru.Cache[string, core.Track]
	mutex sync.Mutex
}

// NewRecentList creates a list holding at most limit tracks.
func NewRecentList(limit int) *RecentList {
	if limit <= 0 {
		limit = core.DefaultRecentLimit
	}
	cache, _ := lru.New[string, core.Track](limit)
	return &RecentList{cache: cache}
}

// Add moves the track to the front, evicting the oldest entry when full.
func (rl *RecentList) Add(track core.Track) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.cache.Add(track.ID, track)
}

// Load replaces the list with tracks given most-recent-first.
func (rl *RecentList) Load(tracks []core.Track) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.cache.Purge()
	for i := len(tracks) - 1; i >= 0; i-- {
		if tracks[i].ID != "" {
			rl.cache.Add(tracks[i].ID, tracks[i])
		}
	}
}

// List returns the tracks most-recent-first.
func (rl *RecentList) List() []core.Track {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	// Keys are ordered oldest to newest.
	keys := rl.cache.Keys()
	tracks := make([]core.Track, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if track, ok := rl.cache.Peek(keys[i]); ok {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// Clear empties the list.
func (rl *RecentList) Clear() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.cache.Purge()
}
