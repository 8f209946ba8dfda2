// Package catalog imports third-party catalog playlists by matching each song to a playable video.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/internal/resolver"
	"audiomab/pkg/fuzzy"
	"audiomab/pkg/musiclink"
)

const (
	// Source labels catalog imports in API responses.
	Source = "apple-music"
	// ImportAuthor is the author of every imported playlist.
	ImportAuthor = "Apple Music Import"

	playlistIDPrefix = "apple-"
	// lowConfidenceScore flags matches whose video title barely resembles the song title.
	lowConfidenceScore = 0.3
)

// ErrFetchFailed means the catalog page could not be downloaded.
var ErrFetchFailed = errors.New("failed to fetch catalog page")

// Scraper extracts songs from a catalog page.
type Scraper interface {
	CanScrape(rawURL string) bool
	Scrape(ctx context.Context, pageURL string) (*musiclink.CatalogPlaylist, error)
}

// Searcher finds playable tracks for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*resolver.SearchResult, error)
}

// Recorder counts songs by match result ("matched", "unmatched", "skipped").
type Recorder interface {
	RecordCatalogSong(result string)
}

// Result is an imported playlist with the counts of extracted and matched songs.
// LowConfidenceSongs counts kept matches whose video title barely resembles the song title.
type Result struct {
	Playlist           core.Playlist
	Source             string
	OriginalSongs      int
	MatchedSongs       int
	LowConfidenceSongs int
}

// Importer turns a catalog page into a playlist of playable tracks.
type Importer struct {
	scraper    Scraper
	searcher   Searcher
	maxSongs   int
	normalizer *fuzzy.Normalizer
	recorder   Recorder
	logger     *zap.Logger
	newID      func() string
}

// NewImporter creates an importer that issues at most maxSongs searches per import.
func NewImporter(scraper Scraper, searcher Searcher, maxSongs int, recorder Recorder, logger *zap.Logger) *Importer {
	if maxSongs <= 0 {
		maxSongs = core.DefaultCatalogMaxSongs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		scraper:    scraper,
		searcher:   searcher,
		maxSongs:   maxSongs,
		normalizer: fuzzy.NewNormalizer(),
		recorder:   recorder,
		logger:     logger,
		newID:      func() string { return uuid.NewString() },
	}
}

// Import scrapes pageURL and searches each song sequentially with a limit of one.
// Songs without a match are dropped; the counts in Result make partial imports visible.
func (i *Importer) Import(ctx context.Context, pageURL string) (*Result, error) {
	pageURL = strings.TrimSpace(pageURL)
	if !i.scraper.CanScrape(pageURL) {
		return nil, musiclink.ErrNotCatalogURL
	}

	catalog, err := i.scraper.Scrape(ctx, pageURL)
	switch {
	case errors.Is(err, musiclink.ErrNoSongsExtracted):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	songs := i.dedupe(catalog.Songs)
	if len(songs) > i.maxSongs {
		for range songs[i.maxSongs:] {
			i.record("skipped")
		}
		songs = songs[:i.maxSongs]
	}

	i.logger.Info("Matching catalog songs",
		zap.String("title", catalog.Title),
		zap.Int("extracted", len(catalog.Songs)),
		zap.Int("searching", len(songs)))

	tracks := make([]core.Track, 0, len(songs))
	lowConfidence := 0
	for _, song := range songs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		track, score, ok := i.match(ctx, song)
		if !ok {
			i.record("unmatched")
			continue
		}
		i.record("matched")
		if score < lowConfidenceScore {
			lowConfidence++
		}
		tracks = append(tracks, track)
	}

	playlist := core.Playlist{
		ID:     playlistIDPrefix + i.newID(),
		Title:  catalog.Title,
		Author: ImportAuthor,
		Tracks: tracks,
	}
	if len(tracks) > 0 {
		playlist.Thumbnail = tracks[0].Thumbnail
	}

	return &Result{
		Playlist:           playlist,
		Source:             Source,
		OriginalSongs:      len(catalog.Songs),
		MatchedSongs:       len(tracks),
		LowConfidenceSongs: lowConfidence,
	}, nil
}

// match returns the first search hit and how closely its title resembles the song title.
func (i *Importer) match(ctx context.Context, song musiclink.Song) (core.Track, float64, bool) {
	result, err := i.searcher.Search(ctx, searchQuery(song), 1)
	if err != nil {
		i.logger.Warn("Catalog song search failed",
			zap.String("title", song.Title),
			zap.String("artist", song.Artist),
			zap.Error(err))
		return core.Track{}, 0, false
	}
	if len(result.Tracks) == 0 {
		i.logger.Debug("No match for catalog song", zap.String("title", song.Title))
		return core.Track{}, 0, false
	}

	hit := result.Tracks[0]
	score := i.normalizer.CalculateSimilarity(i.normalizer.NormalizeTitle(song.Title), i.normalizer.NormalizeTitle(hit.Title))
	if score < lowConfidenceScore {
		i.logger.Debug("Low confidence catalog match",
			zap.String("title", song.Title),
			zap.String("matchedTitle", hit.Title),
			zap.Float64("score", score))
	}

	return core.Track{
		ID:        hit.VideoID,
		VideoID:   hit.VideoID,
		Title:     song.Title,
		Artist:    song.Artist,
		Thumbnail: hit.Thumbnail,
		Duration:  hit.Duration,
	}.Normalize(), score, true
}

// searchQuery is "title artist", or the title alone when the artist is unknown.
func searchQuery(song musiclink.Song) string {
	if song.Artist == "" || song.Artist == musiclink.UnknownArtist {
		return song.Title
	}
	return song.Title + " " + song.Artist
}

func (i *Importer) dedupe(songs []musiclink.Song) []musiclink.Song {
	seen := make(map[string]bool, len(songs))
	unique := make([]musiclink.Song, 0, len(songs))
	for _, song := range songs {
		key := i.normalizer.SongKey(song.Title, song.Artist)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, song)
	}
	return unique
}

func (i *Importer) record(result string) {
	if i.recorder != nil {
		i.recorder.RecordCatalogSong(result)
	}
}
