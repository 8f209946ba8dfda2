// Package text extracts and classifies links from free text shared into the app.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LinkKind tells which importer can handle a shared link.
type LinkKind int

const (
	// LinkKindNone means the text contained no usable URL.
	LinkKindNone LinkKind = iota
	// LinkKindMedia is a video platform link handled by the resolver.
	LinkKindMedia
	// LinkKindCatalog is a music catalog page handled by the catalog importer.
	LinkKindCatalog
	// LinkKindOther is any other URL.
	LinkKindOther
)

var (
	urlRegex        = regexp.MustCompile(`https?://\S+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	mediaDomains = map[string]bool{
		"youtube.com":       true,
		"m.youtube.com":     true,
		"music.youtube.com": true,
		"youtu.be":          true,
	}

	catalogDomains = map[string]bool{
		"music.apple.com":  true,
		"itunes.apple.com": true,
	}

	trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si", "feature"}
)

// SharedInput is shared text reduced to its links.
type SharedInput struct {
	Kind LinkKind
	Text string
	URLs []string
}

// URL returns the first extracted URL, or "" when there is none.
func (s SharedInput) URL() string {
	if len(s.URLs) == 0 {
		return ""
	}
	return s.URLs[0]
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseShared normalizes shared text, extracts its URLs and classifies the first one.
func (p *Parser) ParseShared(text string) SharedInput {
	text = p.normalizeText(text)
	urls := p.extractURLs(text)

	input := SharedInput{
		Kind: LinkKindNone,
		Text: text,
		URLs: urls,
	}
	if len(urls) > 0 {
		input.Kind = p.classifyURL(urls[0])
	}
	return input
}

func (p *Parser) normalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func (p *Parser) extractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)
	var cleanURLs []string

	for _, match := range matches {
		cleanURL := p.cleanURL(match)
		if cleanURL != "" {
			cleanURLs = append(cleanURLs, cleanURL)
		}
	}

	return cleanURLs
}

func (p *Parser) cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;)\"'")

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (p *Parser) classifyURL(rawURL string) LinkKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return LinkKindNone
	}

	hostname := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case mediaDomains[hostname]:
		return LinkKindMedia
	case catalogDomains[hostname]:
		return LinkKindCatalog
	default:
		return LinkKindOther
	}
}
