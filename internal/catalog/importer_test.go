package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/internal/resolver"
	"audiomab/pkg/musiclink"
)

type fakeScraper struct {
	playlist *musiclink.CatalogPlaylist
	err      error
}

func (f *fakeScraper) CanScrape(rawURL string) bool {
	return strings.Contains(rawURL, "music.apple.com")
}

func (f *fakeScraper) Scrape(_ context.Context, _ string) (*musiclink.CatalogPlaylist, error) {
	return f.playlist, f.err
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	hits    map[string]core.Track
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int) (*resolver.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, fmt.Sprintf("%s|%d", query, limit))
	if f.err != nil {
		return nil, f.err
	}
	if hit, ok := f.hits[query]; ok {
		return &resolver.SearchResult{Tracks: []core.Track{hit}, Source: "piped:x"}, nil
	}
	return &resolver.SearchResult{Source: "piped:x"}, nil
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) RecordCatalogSong(result string) {
	r.counts[result]++
}

const pageURL = "https://music.apple.com/us/playlist/mix/pl.123"

func newTestImporter(scraper Scraper, searcher Searcher, maxSongs int, recorder Recorder) *Importer {
	imp := NewImporter(scraper, searcher, maxSongs, recorder, zap.NewNop())
	imp.newID = func() string { return "fixed" }
	return imp
}

func TestImportMatchesSongs(t *testing.T) {
	scraper := &fakeScraper{playlist: &musiclink.CatalogPlaylist{
		Title: "Road Trip",
		Songs: []musiclink.Song{
			{Title: "Song A", Artist: "Artist A"},
			{Title: "Song B", Artist: "Artist B"},
			{Title: "Song C", Artist: musiclink.UnknownArtist},
		},
	}}
	searcher := &fakeSearcher{hits: map[string]core.Track{
		"Song A Artist A": {ID: "va", VideoID: "va", Title: "Artist A - Song A (Official)", Thumbnail: "https://img/a.jpg", Duration: 200},
		"Song C":          {ID: "vc", VideoID: "vc", Title: "Song C"},
	}}
	recorder := &countingRecorder{counts: map[string]int{}}

	result, err := newTestImporter(scraper, searcher, 50, recorder).Import(context.Background(), pageURL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.OriginalSongs != 3 || result.MatchedSongs != 2 {
		t.Errorf("counts = %d/%d, want 2/3", result.MatchedSongs, result.OriginalSongs)
	}
	if result.Source != Source {
		t.Errorf("Source = %q, want %q", result.Source, Source)
	}

	p := result.Playlist
	if p.ID != "apple-fixed" || p.Title != "Road Trip" || p.Author != ImportAuthor {
		t.Errorf("playlist = %+v", p)
	}
	if p.Thumbnail != "https://img/a.jpg" {
		t.Errorf("Thumbnail = %q, want first track thumbnail", p.Thumbnail)
	}

	first := p.Tracks[0]
	if first.VideoID != "va" || first.Title != "Song A" || first.Artist != "Artist A" || first.Duration != 200 {
		t.Errorf("first track = %+v", first)
	}
	if p.Tracks[1].Thumbnail != core.DefaultThumbnailURL("vc") {
		t.Errorf("second track thumbnail = %q, want default", p.Tracks[1].Thumbnail)
	}

	wantQueries := []string{"Song A Artist A|1", "Song B Artist B|1", "Song C|1"}
	if strings.Join(searcher.queries, ",") != strings.Join(wantQueries, ",") {
		t.Errorf("queries = %v, want %v", searcher.queries, wantQueries)
	}

	if recorder.counts["matched"] != 2 || recorder.counts["unmatched"] != 1 {
		t.Errorf("recorded = %v", recorder.counts)
	}
}

func TestImportCapsSearches(t *testing.T) {
	songs := make([]musiclink.Song, 0, 10)
	for i := 0; i < 10; i++ {
		songs = append(songs, musiclink.Song{Title: fmt.Sprintf("Song %d", i), Artist: "X"})
	}
	searcher := &fakeSearcher{}
	recorder := &countingRecorder{counts: map[string]int{}}

	result, err := newTestImporter(&fakeScraper{playlist: &musiclink.CatalogPlaylist{Songs: songs}}, searcher, 4, recorder).
		Import(context.Background(), pageURL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if len(searcher.queries) != 4 {
		t.Errorf("searches = %d, want 4", len(searcher.queries))
	}
	if result.OriginalSongs != 10 || result.MatchedSongs != 0 {
		t.Errorf("counts = %d/%d", result.MatchedSongs, result.OriginalSongs)
	}
	if recorder.counts["skipped"] != 6 {
		t.Errorf("skipped = %d, want 6", recorder.counts["skipped"])
	}
}

func TestImportDeduplicatesSongs(t *testing.T) {
	scraper := &fakeScraper{playlist: &musiclink.CatalogPlaylist{Songs: []musiclink.Song{
		{Title: "Halo", Artist: "Beyoncé"},
		{Title: "Halo (Remastered 2020)", Artist: "Beyonce"},
		{Title: "Halo (Live)", Artist: "Beyonce"},
	}}}
	searcher := &fakeSearcher{}

	if _, err := newTestImporter(scraper, searcher, 50, nil).Import(context.Background(), pageURL); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(searcher.queries) != 2 {
		t.Errorf("searches = %v, want 2 unique songs", searcher.queries)
	}
}

func TestImportSearchFailureDropsSong(t *testing.T) {
	scraper := &fakeScraper{playlist: &musiclink.CatalogPlaylist{Songs: []musiclink.Song{{Title: "A", Artist: "B"}}}}
	searcher := &fakeSearcher{err: &resolver.AllBackendsError{Operation: resolver.OperationSearch}}

	result, err := newTestImporter(scraper, searcher, 50, nil).Import(context.Background(), pageURL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.MatchedSongs != 0 || len(result.Playlist.Tracks) != 0 || result.Playlist.Thumbnail != "" {
		t.Errorf("result = %+v", result)
	}
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		scraper *fakeScraper
		want    error
	}{
		{"not a catalog url", "https://example.com/x", &fakeScraper{}, musiclink.ErrNotCatalogURL},
		{"no songs", pageURL, &fakeScraper{playlist: &musiclink.CatalogPlaylist{}, err: musiclink.ErrNoSongsExtracted}, musiclink.ErrNoSongsExtracted},
		{"fetch failure", pageURL, &fakeScraper{err: errors.New("connection refused")}, ErrFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestImporter(tt.scraper, &fakeSearcher{}, 50, nil).Import(context.Background(), tt.url)
			if !errors.Is(err, tt.want) {
				t.Errorf("Import() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestImportCanceled(t *testing.T) {
	scraper := &fakeScraper{playlist: &musiclink.CatalogPlaylist{Songs: []musiclink.Song{{Title: "A", Artist: "B"}}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestImporter(scraper, &fakeSearcher{}, 50, nil).Import(ctx, pageURL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Import() error = %v, want context.Canceled", err)
	}
}

func TestImportCountsLowConfidenceMatches(t *testing.T) {
	scraper := &fakeScraper{playlist: &musiclink.CatalogPlaylist{
		Title: "Mixed",
		Songs: []musiclink.Song{
			{Title: "Yesterday", Artist: "Band"},
			{Title: "Song C", Artist: musiclink.UnknownArtist},
		},
	}}
	searcher := &fakeSearcher{hits: map[string]core.Track{
		"Yesterday Band": {ID: "vx", VideoID: "vx", Title: "Kxq Zvbn Mpw"},
		"Song C":         {ID: "vc", VideoID: "vc", Title: "Song C (Official Video)"},
	}}

	imp := NewImporter(scraper, searcher, 50, nil, nil)
	result, err := imp.Import(context.Background(), pageURL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.MatchedSongs != 2 {
		t.Errorf("MatchedSongs = %d, want 2, low confidence matches are kept", result.MatchedSongs)
	}
	if result.LowConfidenceSongs != 1 {
		t.Errorf("LowConfidenceSongs = %d, want 1", result.LowConfidenceSongs)
	}
}
