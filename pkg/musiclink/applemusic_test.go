package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const jsonLDPage = `<!DOCTYPE html>
<html>
<head>
<title>Late Night Drive - Apple Music</title>
<meta charset="utf-8">
<script type="application/ld+json">
{"@context":"http://schema.org","@type":"MusicPlaylist","name":"Late Night Drive",
 "track":[
  {"@type":"MusicRecording","name":"Nightcall","byArtist":{"@type":"MusicGroup","name":"Kavinsky"}},
  {"@type":"MusicRecording","name":"Midnight City","byArtist":"M83"},
  {"@type":"MusicRecording","name":"Duet","byArtist":[{"@type":"MusicGroup","name":"A"},{"@type":"MusicGroup","name":"B"}]},
  {"@type":"MusicRecording","name":"No Artist"},
  {"@type":"MusicRecording","name":"Nameless Artist","byArtist":{"@type":"MusicGroup"}}
 ]}
</script>
</head>
<body><div data-testid="track-title">Ignored Because JSON-LD Won</div></body>
</html>`

const markerPage = `<html>
<head><title>Road Trip &amp; Friends - Apple Music</title></head>
<body>
<ul>
<li><div data-testid="track-title">First Song</div></li>
<li><div class="row" data-testid="track-title"><span><img src="x.png"> Second Song </span></div></li>
<li><div data-testid="track-title"></div><p>Not A Song</p></li>
<li><div data-testid='track-title'>Third &amp; Last</div></li>
</ul>
</body>
</html>`

func TestParseCatalogPage_JSONLD(t *testing.T) {
	playlist, err := ParseCatalogPage(jsonLDPage)
	if err != nil {
		t.Fatalf("ParseCatalogPage() error = %v", err)
	}

	if playlist.Title != "Late Night Drive" {
		t.Errorf("Title = %q, want %q", playlist.Title, "Late Night Drive")
	}

	expected := []Song{
		{Title: "Nightcall", Artist: "Kavinsky"},
		{Title: "Midnight City", Artist: "M83"},
		{Title: "Duet", Artist: "A, B"},
		{Title: "Nameless Artist", Artist: UnknownArtist},
	}
	if !reflect.DeepEqual(playlist.Songs, expected) {
		t.Errorf("Songs = %+v, want %+v", playlist.Songs, expected)
	}
}

func TestParseCatalogPage_TrackTitleFallback(t *testing.T) {
	playlist, err := ParseCatalogPage(markerPage)
	if err != nil {
		t.Fatalf("ParseCatalogPage() error = %v", err)
	}

	if playlist.Title != "Road Trip & Friends" {
		t.Errorf("Title = %q, want %q", playlist.Title, "Road Trip & Friends")
	}

	expected := []Song{
		{Title: "First Song", Artist: UnknownArtist},
		{Title: "Second Song", Artist: UnknownArtist},
		{Title: "Third & Last", Artist: UnknownArtist},
	}
	if !reflect.DeepEqual(playlist.Songs, expected) {
		t.Errorf("Songs = %+v, want %+v", playlist.Songs, expected)
	}
}

func TestParseCatalogPage_GraphAndArray(t *testing.T) {
	page := `<title>Graph</title><script type="application/ld+json">
[{"@type":"WebPage"},{"@graph":[{"@type":["MusicPlaylist"],"track":{"name":"Solo","byArtist":"One"}}]}]
</script>`

	playlist, err := ParseCatalogPage(page)
	if err != nil {
		t.Fatalf("ParseCatalogPage() error = %v", err)
	}

	expected := []Song{{Title: "Solo", Artist: "One"}}
	if !reflect.DeepEqual(playlist.Songs, expected) {
		t.Errorf("Songs = %+v, want %+v", playlist.Songs, expected)
	}
}

func TestParseCatalogPage_NoSongs(t *testing.T) {
	tests := []struct {
		name          string
		page          string
		expectedTitle string
	}{
		{
			name:          "Script-rendered page",
			page:          `<html><head><title>Empty - Apple Music</title></head><body><div id="app"></div></body></html>`,
			expectedTitle: "Empty",
		},
		{
			name:          "Broken JSON-LD",
			page:          `<title>Broken</title><script type="application/ld+json">{not json</script>`,
			expectedTitle: "Broken",
		},
		{
			name:          "No title",
			page:          `<html><body>nothing</body></html>`,
			expectedTitle: DefaultAppleMusicTitle,
		},
		{
			name:          "Empty page",
			page:          ``,
			expectedTitle: DefaultAppleMusicTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playlist, err := ParseCatalogPage(tt.page)
			if !errors.Is(err, ErrNoSongsExtracted) {
				t.Fatalf("ParseCatalogPage() error = %v, want ErrNoSongsExtracted", err)
			}
			if playlist.Title != tt.expectedTitle {
				t.Errorf("Title = %q, want %q", playlist.Title, tt.expectedTitle)
			}
		})
	}
}

func TestAppleMusicScraper_CanScrape(t *testing.T) {
	scraper := NewAppleMusicScraper()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"Playlist page", "https://music.apple.com/us/playlist/chill/pl.u-123", true},
		{"Legacy host", "https://itunes.apple.com/us/playlist/x/id1", true},
		{"Regular apple.com", "https://www.apple.com/music", false},
		{"YouTube", "https://www.youtube.com/watch?v=abc", false},
		{"Malformed", "://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scraper.CanScrape(tt.url); got != tt.expected {
				t.Errorf("CanScrape(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

// rewriteTransport sends every request to the test server regardless of host.
type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = rt.target
	return http.DefaultTransport.RoundTrip(clone)
}

func TestAppleMusicScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/us/playlist/ok":
			_, _ = w.Write([]byte(jsonLDPage))
		case "/us/playlist/empty":
			_, _ = w.Write([]byte(`<title>Empty</title>`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := &http.Client{Transport: rewriteTransport{target: server.Listener.Addr().String()}}
	scraper := NewAppleMusicScraperWithClient(client)
	ctx := context.Background()

	playlist, err := scraper.Scrape(ctx, "https://music.apple.com/us/playlist/ok")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(playlist.Songs) != 4 {
		t.Errorf("Scrape() returned %d songs, want 4", len(playlist.Songs))
	}

	_, err = scraper.Scrape(ctx, "https://music.apple.com/us/playlist/empty")
	if !errors.Is(err, ErrNoSongsExtracted) {
		t.Errorf("Scrape() error = %v, want ErrNoSongsExtracted", err)
	}

	_, err = scraper.Scrape(ctx, "https://music.apple.com/us/playlist/fail")
	if err == nil || errors.Is(err, ErrNoSongsExtracted) {
		t.Errorf("Scrape() error = %v, want fetch failure", err)
	}

	_, err = scraper.Scrape(ctx, "https://example.com/playlist")
	if !errors.Is(err, ErrNotCatalogURL) {
		t.Errorf("Scrape() error = %v, want ErrNotCatalogURL", err)
	}
}
