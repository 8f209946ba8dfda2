package resolver

import (
	"strings"
)

// AudioCandidate is one audio-only stream offered by a backend.
type AudioCandidate struct {
	URL      string
	Bitrate  float64
	MimeType string
}

// SelectBestAudio returns the candidate with the highest bitrate.
// Ties keep the first candidate; candidates without a URL are ignored.
func SelectBestAudio(candidates []AudioCandidate) (AudioCandidate, bool) {
	var best AudioCandidate
	hasBest := false

	for _, c := range candidates {
		if strings.TrimSpace(c.URL) == "" {
			continue
		}
		if !hasBest || c.Bitrate > best.Bitrate {
			best = c
			hasBest = true
		}
	}

	return best, hasBest
}

// isAudioMime reports whether a MIME type describes an audio-only stream.
func isAudioMime(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "audio/")
}

// baseMime strips codec parameters from a MIME type.
func baseMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}
