// Package musiclink classifies shared media links and extracts track lists from catalog pages.
package musiclink

// MediaKind is the kind of media a link points to.
type MediaKind int

const (
	// MediaKindVideo is a single video.
	MediaKindVideo MediaKind = iota + 1
	// MediaKindPlaylist is a playlist of videos.
	MediaKindPlaylist
)

// String returns the lowercase name of the kind.
func (k MediaKind) String() string {
	switch k {
	case MediaKindVideo:
		return "video"
	case MediaKindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// MediaReference identifies a video or playlist by platform ID.
type MediaReference struct {
	Kind MediaKind
	ID   string
}

// Song is a title/artist pair scraped from a catalog page.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// CatalogPlaylist is the result of scraping a catalog playlist page.
type CatalogPlaylist struct {
	Title string `json:"title"`
	Songs []Song `json:"songs"`
}
