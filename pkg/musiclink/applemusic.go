package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhtml "html"
	"net/http"
	"net/url"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

const (
	// AppleMusicTitleSuffix is appended by Apple Music to every page title.
	AppleMusicTitleSuffix = " - Apple Music"
	// DefaultAppleMusicTitle is used when the page has no usable <title>.
	DefaultAppleMusicTitle = "Apple Music Playlist"
	// UnknownArtist is used for songs whose artist cannot be extracted.
	UnknownArtist = "Unknown Artist"
	// appleMusicMaxReadSize caps how much of a catalog page is read.
	appleMusicMaxReadSize = 8 << 20

	musicPlaylistType = "MusicPlaylist"
	trackTitleTestID  = "track-title"
	jsonLDScriptType  = "application/ld+json"
)

var (
	// ErrNoSongsExtracted is returned when a catalog page was fetched but no songs could be extracted.
	ErrNoSongsExtracted = errors.New("no songs extracted from catalog page")
	// ErrNotCatalogURL is returned for URLs that are not Apple Music pages.
	ErrNotCatalogURL = errors.New("not an Apple Music URL")
)

// voidElements never have an end tag, so they do not change nesting depth.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// AppleMusicScraper extracts the song list of an Apple Music playlist page.
type AppleMusicScraper struct {
	client *http.Client
}

// NewAppleMusicScraper creates a scraper with the default HTTP client.
func NewAppleMusicScraper() *AppleMusicScraper {
	return &AppleMusicScraper{client: newHTTPClient()}
}

// NewAppleMusicScraperWithClient creates a scraper that uses the given HTTP client.
func NewAppleMusicScraperWithClient(client *http.Client) *AppleMusicScraper {
	return &AppleMusicScraper{client: client}
}

// CanScrape checks if the URL is an Apple Music page.
func (s *AppleMusicScraper) CanScrape(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	return hostname == "music.apple.com" || hostname == "itunes.apple.com"
}

// Scrape fetches a catalog page and extracts its title and songs.
// It returns ErrNoSongsExtracted when the page loaded but contained no songs.
func (s *AppleMusicScraper) Scrape(ctx context.Context, pageURL string) (*CatalogPlaylist, error) {
	if !s.CanScrape(pageURL) {
		return nil, ErrNotCatalogURL
	}

	page, err := fetchHTMLFromURL(ctx, s.client, pageURL, "Apple Music", appleMusicMaxReadSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog page: %w", err)
	}

	return ParseCatalogPage(page)
}

// ParseCatalogPage extracts a playlist from catalog page HTML.
// Structured JSON-LD data is preferred; inline track-title markers are the fallback.
func ParseCatalogPage(page string) (*CatalogPlaylist, error) {
	tokens := tokenizePage(page)

	playlist := &CatalogPlaylist{
		Title: stripServiceSuffix(tokens.title, AppleMusicTitleSuffix),
	}
	if playlist.Title == "" {
		playlist.Title = DefaultAppleMusicTitle
	}

	for _, block := range tokens.jsonLD {
		playlist.Songs = append(playlist.Songs, songsFromJSONLD([]byte(block))...)
	}

	if len(playlist.Songs) == 0 {
		for _, title := range tokens.trackTitles {
			playlist.Songs = append(playlist.Songs, Song{Title: title, Artist: UnknownArtist})
		}
	}

	if len(playlist.Songs) == 0 {
		return playlist, ErrNoSongsExtracted
	}

	return playlist, nil
}

type pageTokens struct {
	title       string
	jsonLD      []string
	trackTitles []string
}

type captureMode int

const (
	captureNone captureMode = iota
	captureTitle
	captureJSONLD
	captureTrackTitle
)

// tokenizePage walks the page once and collects the <title>, JSON-LD blocks and track-title texts.
func tokenizePage(page string) pageTokens {
	var (
		tokens      pageTokens
		lexer       = html.NewLexer(parse.NewInputString(page))
		tag         string
		isJSONLD    bool
		isTrack     bool
		mode        captureMode
		trackDepth  int
		titleLocked bool
	)

	for {
		tt, data := lexer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF on a complete page; other lexer errors still leave partial results usable.
			return tokens
		case html.StartTagToken:
			tag = strings.ToLower(string(lexer.Text()))
			isJSONLD, isTrack = false, false
			if mode == captureTrackTitle && !voidElements[tag] {
				trackDepth++
			}
		case html.AttributeToken:
			key := strings.ToLower(string(lexer.Text()))
			val := trimAttrQuotes(lexer.AttrVal())
			switch {
			case tag == "script" && key == "type" && strings.EqualFold(val, jsonLDScriptType):
				isJSONLD = true
			case key == "data-testid" && val == trackTitleTestID:
				isTrack = true
			}
		case html.StartTagCloseToken:
			switch {
			case tag == "title" && !titleLocked:
				mode = captureTitle
			case isJSONLD:
				mode = captureJSONLD
			case isTrack && mode != captureTrackTitle:
				mode = captureTrackTitle
				trackDepth = 1
			}
		case html.TextToken:
			text := string(data)
			switch mode {
			case captureTitle:
				tokens.title = stdhtml.UnescapeString(strings.TrimSpace(text))
				titleLocked = true
				mode = captureNone
			case captureJSONLD:
				tokens.jsonLD = append(tokens.jsonLD, text)
				mode = captureNone
			case captureTrackTitle:
				if trimmed := strings.TrimSpace(stdhtml.UnescapeString(text)); trimmed != "" {
					tokens.trackTitles = append(tokens.trackTitles, trimmed)
					mode = captureNone
				}
			}
		case html.EndTagToken:
			switch mode {
			case captureTrackTitle:
				trackDepth--
				if trackDepth <= 0 {
					mode = captureNone
				}
			case captureTitle, captureJSONLD:
				mode = captureNone
			}
		}
	}
}

// ldNode is the subset of a JSON-LD node used for playlist extraction.
type ldNode struct {
	Type     json.RawMessage   `json:"@type"`
	Name     string            `json:"name"`
	Track    json.RawMessage   `json:"track"`
	ByArtist json.RawMessage   `json:"byArtist"`
	Graph    []json.RawMessage `json:"@graph"`
}

func songsFromJSONLD(block []byte) []Song {
	var songs []Song
	for _, node := range decodeLDNodes(block) {
		for _, graphNode := range node.Graph {
			songs = append(songs, songsFromJSONLD(graphNode)...)
		}

		if !hasLDType(node.Type, musicPlaylistType) || len(node.Track) == 0 {
			continue
		}

		for _, track := range decodeLDNodes(node.Track) {
			if track.Name == "" || len(track.ByArtist) == 0 || string(track.ByArtist) == "null" {
				continue
			}
			songs = append(songs, Song{
				Title:  strings.TrimSpace(track.Name),
				Artist: artistName(track.ByArtist),
			})
		}
	}
	return songs
}

// decodeLDNodes accepts a single JSON-LD object or an array of objects.
func decodeLDNodes(raw []byte) []ldNode {
	var many []ldNode
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}

	var one ldNode
	if err := json.Unmarshal(raw, &one); err == nil {
		return []ldNode{one}
	}

	return nil
}

func hasLDType(raw json.RawMessage, want string) bool {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single == want
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, t := range many {
			if t == want {
				return true
			}
		}
	}
	return false
}

// artistName reads byArtist as a string, an object with a name, or a list of either.
func artistName(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
		return UnknownArtist
	}

	var many []json.RawMessage
	if err := json.Unmarshal(raw, &many); err == nil {
		var names []string
		for _, item := range many {
			if n := artistName(item); n != UnknownArtist {
				names = append(names, n)
			}
		}
		if len(names) == 0 {
			return UnknownArtist
		}
		return strings.Join(names, ", ")
	}

	var node ldNode
	if err := json.Unmarshal(raw, &node); err == nil && strings.TrimSpace(node.Name) != "" {
		return strings.TrimSpace(node.Name)
	}

	return UnknownArtist
}
