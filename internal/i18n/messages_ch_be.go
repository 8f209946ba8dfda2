package i18n

// berneseGermanMessages contains all Bernese German translations.
var berneseGermanMessages = map[string]string{
	// Error messages
	"error.invalid_url":          "Ungüutigi URL",
	"error.missing_id":           "D Video-ID fäut",
	"error.missing_query":        "Suechbegriff fäut",
	"error.backends_unavailable": "Kes Backend isch erreichbar. Probier's när no mau.",
	"error.timeout":              "S Backend het nid rächtzitig gantwortet",
	"error.no_songs":             "Uf dere Site hani keni Lieder gfunde. Si wird wahrschinlech ersch im Browser zämegsetzt.",
	"error.invalid_catalog_url":  "Das isch ke Apple Music Playlist-URL",
	"error.catalog_fetch":        "D Katalog-Site het nid chönne glade wärde",
	"error.invalid_body":         "Ungüutigi Aafrog",
	"error.rate_limited":         "Z vüu Aafroge. Wart es Minütli.",
	"error.generic":              "Öppis isch schiefgloffe. Probier's nomau.",
	"error.not_cached":           "Das Lied isch nid offline verfüegbar",
	"error.too_large":            "Das Lied isch z gross zum offline speichere",
	"error.playlist_not_found":   "Playlist nid gfunde",
	"error.invalid_playlist":     "Ungüutigi Playlist",
	"error.invalid_track":        "Ungüutigs Lied",

	// Player messages
	"player.resolve_failed": "\"%s\" het nid chönne glade wärde: %s",
	"player.now_playing":    "▶ %s",
	"player.paused":         "⏸ Pouse",
	"player.loading":        "⏳ Lade %s",
	"player.end_of_queue":   "Ändi vor Warteschlange",
	"player.shuffle_on":     "🔀 Zuefallswiedergab aa",
	"player.shuffle_off":    "Zuefallswiedergab us",
	"player.repeat":         "🔁 Widerhole: %s",
	"player.help":           "Taste: [n] nächsts  [p] vorhärigs  [space] spile/pouse  [s] zuefällig  [r] widerhole  [q] fertig",

	// Format helpers
	"format.track": "%s - %s",

	// Success messages
	"success.imported":         "\"%s\" importiert (%d Lieder) über %s",
	"success.downloaded":       "Offline gspeicheret: %s",
	"success.download_summary": "%d vo %d Lieder offline gspeicheret",
}
