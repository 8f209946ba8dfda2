package player

import (
	"math/rand"

	"audiomab/internal/core"
)

// Queue keeps the original track order and the current play order as a permutation of it.
type Queue struct {
	tracks  []core.Track
	order   []int
	pos     int
	shuffle bool
	rnd     *rand.Rand
}

// NewQueue creates a queue positioned at start in original order.
func NewQueue(tracks []core.Track, start int, rnd *rand.Rand) *Queue {
	q := &Queue{
		tracks: append([]core.Track(nil), tracks...),
		rnd:    rnd,
	}
	q.order = identity(len(q.tracks))
	if start >= 0 && start < len(q.tracks) {
		q.pos = start
	}
	return q
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Position returns the index of the current track in play order.
func (q *Queue) Position() int {
	return q.pos
}

// Current returns the current track.
func (q *Queue) Current() (core.Track, bool) {
	if len(q.tracks) == 0 {
		return core.Track{}, false
	}
	return q.tracks[q.order[q.pos]], true
}

// Original returns the tracks in their original order.
func (q *Queue) Original() []core.Track {
	return append([]core.Track(nil), q.tracks...)
}

// PlayOrder returns the tracks in the order they will be played.
func (q *Queue) PlayOrder() []core.Track {
	ordered := make([]core.Track, 0, len(q.order))
	for _, i := range q.order {
		ordered = append(ordered, q.tracks[i])
	}
	return ordered
}

// Shuffled reports whether the play order is shuffled.
func (q *Queue) Shuffled() bool {
	return q.shuffle
}

// SetShuffle recomputes the play order. Enabling draws a fresh permutation, disabling restores
// the original order. The current track stays current either way.
func (q *Queue) SetShuffle(on bool) {
	q.shuffle = on
	if len(q.tracks) == 0 {
		return
	}

	current := q.order[q.pos]
	if on {
		q.order = q.rnd.Perm(len(q.tracks))
	} else {
		q.order = identity(len(q.tracks))
	}

	for i, idx := range q.order {
		if idx == current {
			q.pos = i
			break
		}
	}
}

// Advance moves to the next track. At the end it wraps to the start only when wrap is set
// and reports false otherwise.
func (q *Queue) Advance(wrap bool) bool {
	if len(q.tracks) == 0 {
		return false
	}
	if q.pos+1 < len(q.order) {
		q.pos++
		return true
	}
	if wrap {
		q.pos = 0
		return true
	}
	return false
}

// Back moves to the previous track, wrapping to the end.
func (q *Queue) Back() bool {
	if len(q.tracks) == 0 {
		return false
	}
	q.pos--
	if q.pos < 0 {
		q.pos = len(q.order) - 1
	}
	return true
}
