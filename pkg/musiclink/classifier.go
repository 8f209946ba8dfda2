package musiclink

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	shortLinkHost = "youtu.be"
	shortsPrefix  = "/shorts/"
)

var (
	vevoSuffixRegex = regexp.MustCompile(`VEVO$`)
	camelCaseRegex  = regexp.MustCompile(`([a-z])([A-Z])`)
)

// Classify maps a raw URL to a video or playlist reference.
// A list parameter wins over everything else, then short links, then shorts paths,
// then the v parameter. It returns nil for malformed or unrecognized URLs.
func Classify(raw string) *MediaReference {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil
	}

	query := u.Query()
	if list := strings.TrimSpace(query.Get("list")); list != "" {
		return &MediaReference{Kind: MediaKindPlaylist, ID: list}
	}

	hostname := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if hostname == shortLinkHost {
		if id := firstPathSegment(u.Path); id != "" {
			return &MediaReference{Kind: MediaKindVideo, ID: id}
		}
	}

	if strings.HasPrefix(u.Path, shortsPrefix) {
		if id := firstPathSegment(strings.TrimPrefix(u.Path, shortsPrefix)); id != "" {
			return &MediaReference{Kind: MediaKindVideo, ID: id}
		}
	}

	if v := strings.TrimSpace(query.Get("v")); v != "" {
		return &MediaReference{Kind: MediaKindVideo, ID: v}
	}

	return nil
}

func firstPathSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[:i]
	}
	return path
}

// CleanChannelName turns a video platform channel name into an artist name.
// Auto-generated "Artist - Topic" channels and "ArtistVEVO" channels are unwrapped.
func CleanChannelName(name string) string {
	name = strings.TrimSpace(name)

	if strings.HasSuffix(name, " - Topic") {
		return strings.TrimSuffix(name, " - Topic")
	}

	if vevoSuffixRegex.MatchString(name) && len(name) > len("VEVO") {
		return camelCaseRegex.ReplaceAllString(strings.TrimSuffix(name, "VEVO"), "$1 $2")
	}

	return name
}
