package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.invalid_url":          "Invalid URL",
	"error.missing_id":           "Missing video id",
	"error.missing_query":        "Missing search query",
	"error.backends_unavailable": "All backends unavailable. Please try again later.",
	"error.timeout":              "The backend did not answer in time",
	"error.no_songs":             "No songs could be extracted from this page. It is probably rendered in the browser only.",
	"error.invalid_catalog_url":  "Not an Apple Music playlist URL",
	"error.catalog_fetch":        "Could not load the catalog page",
	"error.invalid_body":         "Invalid request body",
	"error.rate_limited":         "Too many requests. Please wait a minute.",
	"error.generic":              "Something went wrong. Please try again.",
	"error.not_cached":           "This track is not available offline",
	"error.too_large":            "This track is too large to store offline",
	"error.playlist_not_found":   "Playlist not found",
	"error.invalid_playlist":     "Invalid playlist",
	"error.invalid_track":        "Invalid track",

	// Player messages
	"player.resolve_failed": "Could not load \"%s\": %s",
	"player.now_playing":    "▶ %s",
	"player.paused":         "⏸ Paused",
	"player.loading":        "⏳ Loading %s",
	"player.end_of_queue":   "End of queue",
	"player.shuffle_on":     "🔀 Shuffle on",
	"player.shuffle_off":    "Shuffle off",
	"player.repeat":         "🔁 Repeat: %s",
	"player.help":           "Keys: [n] next  [p] previous  [space] play/pause  [s] shuffle  [r] repeat  [q] quit",

	// Format helpers
	"format.track": "%s - %s",

	// Success messages
	"success.imported":         "Imported \"%s\" (%d tracks) via %s",
	"success.downloaded":       "Saved offline: %s",
	"success.download_summary": "Saved %d of %d tracks offline",
}
