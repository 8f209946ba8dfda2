// Package library keeps the local playlist collection, favorites and recently played tracks.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"audiomab/internal/core"
)

const (
	keyPlaylists = "playlists"
	keyFavorites = "favorites"
	keyRecent    = "recent"
)

var (
	// ErrPlaylistNotFound is returned for unknown playlist IDs.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrInvalidPlaylist is returned when a playlist cannot be stored.
	ErrInvalidPlaylist = errors.New("invalid playlist")
	// ErrInvalidTrack is returned for tracks without an ID.
	ErrInvalidTrack = errors.New("invalid track")
)

// Library is the single-client local state. Every mutation is written through to the Store.
type Library struct {
	store     Store
	logger    *zap.Logger
	now       func() time.Time
	favorites *FavoriteSet
	recent    *RecentList

	mutex     sync.RWMutex
	playlists map[string]core.Playlist
}

// Open loads the persisted state from store.
func Open(ctx context.Context, store Store, recentLimit int, logger *zap.Logger) (*Library, error) {
	l := &Library{
		store:     store,
		logger:    logger,
		now:       time.Now,
		favorites: NewFavoriteSet(),
		recent:    NewRecentList(recentLimit),
		playlists: make(map[string]core.Playlist),
	}

	var playlists []core.Playlist
	if err := l.load(ctx, keyPlaylists, &playlists); err != nil {
		return nil, err
	}
	for _, p := range playlists {
		l.playlists[p.ID] = p
	}

	var favorites []core.Track
	if err := l.load(ctx, keyFavorites, &favorites); err != nil {
		return nil, err
	}
	l.favorites.Load(favorites)

	var recent []core.Track
	if err := l.load(ctx, keyRecent, &recent); err != nil {
		return nil, err
	}
	l.recent.Load(recent)

	logger.Debug("Library loaded",
		zap.Int("playlists", len(playlists)),
		zap.Int("favorites", l.favorites.Size()),
		zap.Int("recent", len(recent)))

	return l, nil
}

// Playlists returns all playlists, most recently updated first.
func (l *Library) Playlists() []core.Playlist {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.sortedPlaylists()
}

// Playlist returns the playlist with the given ID.
func (l *Library) Playlist(id string) (core.Playlist, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	p, ok := l.playlists[id]
	if !ok {
		return core.Playlist{}, ErrPlaylistNotFound
	}
	return p, nil
}

// SavePlaylist inserts or replaces a playlist as a whole and stamps UpdatedAt.
func (l *Library) SavePlaylist(ctx context.Context, p core.Playlist) (core.Playlist, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return core.Playlist{}, fmt.Errorf("%w: missing id", ErrInvalidPlaylist)
	}

	tracks := make([]core.Track, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		if t = t.Normalize(); t.ID != "" {
			tracks = append(tracks, t)
		}
	}
	p.Tracks = tracks
	p.UpdatedAt = l.now()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	previous, existed := l.playlists[p.ID]
	l.playlists[p.ID] = p
	if err := l.save(ctx, keyPlaylists, l.sortedPlaylists()); err != nil {
		if existed {
			l.playlists[p.ID] = previous
		} else {
			delete(l.playlists, p.ID)
		}
		return core.Playlist{}, err
	}

	return p, nil
}

// DeletePlaylist removes a playlist.
func (l *Library) DeletePlaylist(ctx context.Context, id string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	previous, ok := l.playlists[id]
	if !ok {
		return ErrPlaylistNotFound
	}

	delete(l.playlists, id)
	if err := l.save(ctx, keyPlaylists, l.sortedPlaylists()); err != nil {
		l.playlists[id] = previous
		return err
	}
	return nil
}

// Favorites returns favorite tracks in the order they were added.
func (l *Library) Favorites() []core.Track {
	return l.favorites.List()
}

// IsFavorite reports whether the track ID is a favorite.
func (l *Library) IsFavorite(trackID string) bool {
	return l.favorites.Has(trackID)
}

// ToggleFavorite flips the favorite state of a track and returns the new state.
func (l *Library) ToggleFavorite(ctx context.Context, track core.Track) (bool, error) {
	track = track.Normalize()
	if track.ID == "" {
		return false, ErrInvalidTrack
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	favorite := l.favorites.Toggle(track)
	if err := l.save(ctx, keyFavorites, l.favorites.List()); err != nil {
		l.favorites.Toggle(track)
		return false, err
	}
	return favorite, nil
}

// Recent returns recently played tracks, most recent first.
func (l *Library) Recent() []core.Track {
	return l.recent.List()
}

// AddRecent records a played track at the front of the recent list.
func (l *Library) AddRecent(ctx context.Context, track core.Track) error {
	track = track.Normalize()
	if track.ID == "" {
		return ErrInvalidTrack
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.recent.Add(track)
	return l.save(ctx, keyRecent, l.recent.List())
}

// Clear deletes all playlists, favorites and recent tracks.
func (l *Library) Clear(ctx context.Context) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, key := range []string{keyPlaylists, keyFavorites, keyRecent} {
		if err := l.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}

	l.playlists = make(map[string]core.Playlist)
	l.favorites.Clear()
	l.recent.Clear()

	l.logger.Info("Library cleared")
	return nil
}

func (l *Library) sortedPlaylists() []core.Playlist {
	playlists := make([]core.Playlist, 0, len(l.playlists))
	for _, p := range l.playlists {
		playlists = append(playlists, p)
	}
	sort.SliceStable(playlists, func(i, j int) bool {
		if playlists[i].UpdatedAt.Equal(playlists[j].UpdatedAt) {
			return playlists[i].ID < playlists[j].ID
		}
		return playlists[i].UpdatedAt.After(playlists[j].UpdatedAt)
	})
	return playlists
}

func (l *Library) load(ctx context.Context, key string, dest any) error {
	data, ok, err := l.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		l.logger.Warn("Discarding unreadable library value", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (l *Library) save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := l.store.Save(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
