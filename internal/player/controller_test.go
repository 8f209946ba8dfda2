package player

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/internal/offline"
	"audiomab/internal/resolver"
)

type fakeOutput struct {
	mu       sync.Mutex
	sources  []Source
	plays    int
	pauses   int
	stops    int
	seeks    []time.Duration
	volume   int
	position time.Duration
}

func (o *fakeOutput) SetSource(src Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, src)
	return nil
}

func (o *fakeOutput) Play() error { o.mu.Lock(); o.plays++; o.mu.Unlock(); return nil }
func (o *fakeOutput) Pause() error { o.mu.Lock(); o.pauses++; o.mu.Unlock(); return nil }
func (o *fakeOutput) Stop() error { o.mu.Lock(); o.stops++; o.mu.Unlock(); return nil }

func (o *fakeOutput) Seek(p time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seeks = append(o.seeks, p)
	o.position = p
	return nil
}

func (o *fakeOutput) SetVolume(percent int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = percent
	return nil
}

func (o *fakeOutput) Position() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.position
}

func (o *fakeOutput) lastSource() (Source, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sources) == 0 {
		return Source{}, false
	}
	return o.sources[len(o.sources)-1], true
}

// fakeResolver ignores cancellation on purpose, like a backend that keeps answering.
type fakeResolver struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	fail  map[string]error
	calls []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{gates: map[string]chan struct{}{}, fail: map[string]error{}}
}

func (r *fakeResolver) gate(id string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.gates[id] = ch
	return ch
}

func (r *fakeResolver) FetchVideo(_ context.Context, videoID string) (*resolver.VideoResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, videoID)
	gate := r.gates[videoID]
	err := r.fail[videoID]
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &resolver.VideoResult{
		Track: core.Track{ID: videoID, VideoID: videoID},
		Audio: core.ResolvedAudio{AudioURL: "https://audio/" + videoID, Source: "fake"},
	}, nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeCache struct {
	blobs map[string]*offline.Blob
}

func (c *fakeCache) IsCached(_ context.Context, id string) bool {
	_, ok := c.blobs[id]
	return ok
}

func (c *fakeCache) GetCachedBlob(_ context.Context, id string) (*offline.Blob, error) {
	if b, ok := c.blobs[id]; ok {
		return b, nil
	}
	return nil, offline.ErrNotCached
}

type fakeHistory struct {
	mu     sync.Mutex
	tracks []string
}

func (h *fakeHistory) AddRecent(_ context.Context, track core.Track) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tracks = append(h.tracks, track.ID)
	return nil
}

type harness struct {
	c        *Controller
	output   *fakeOutput
	resolver *fakeResolver
	history  *fakeHistory
}

func newHarness(t *testing.T, cache Cache) *harness {
	t.Helper()
	h := &harness{output: &fakeOutput{}, resolver: newFakeResolver(), history: &fakeHistory{}}
	h.c = NewController(Options{
		Output:   h.output,
		Resolver: h.resolver,
		Cache:    cache,
		History:  h.history,
		Rand:     rand.New(rand.NewSource(7)),
		Logger:   zap.NewNop(),
	})
	t.Cleanup(func() { _ = h.c.Close() })
	return h
}

// settle waits for in-flight loads and reports the source as ready.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	h.c.wg.Wait()
	if src, ok := h.output.lastSource(); ok {
		h.c.HandleReady(src.Token)
	}
}

func TestControllerWithoutLogger(t *testing.T) {
	output := &fakeOutput{}
	c := NewController(Options{Output: output, Resolver: newFakeResolver()})
	t.Cleanup(func() { _ = c.Close() })

	tracks := makeTracks(1)
	c.LoadTrack(tracks[0], tracks, 0)
	c.wg.Wait()

	if _, ok := output.lastSource(); !ok {
		t.Error("no source applied")
	}
}

func TestLoadTrackDiscardsStaleResolution(t *testing.T) {
	h := newHarness(t, nil)
	tracks := makeTracks(2)

	gateA := h.resolver.gate("t0")
	gateB := h.resolver.gate("t1")

	h.c.LoadTrack(tracks[0], tracks, 0)
	h.c.LoadTrack(tracks[1], tracks, 1)

	close(gateB)
	close(gateA)
	h.c.wg.Wait()

	h.output.mu.Lock()
	sources := append([]Source(nil), h.output.sources...)
	h.output.mu.Unlock()

	if len(sources) != 1 {
		t.Fatalf("SetSource calls = %d, want 1: %+v", len(sources), sources)
	}
	if sources[0].URL != "https://audio/t1" {
		t.Errorf("source = %q, want B's URL", sources[0].URL)
	}

	h.c.HandleReady(sources[0].Token - 1)
	if h.c.Snapshot().State != StateLoading {
		t.Error("stale ready event changed state")
	}

	h.c.HandleReady(sources[0].Token)
	snap := h.c.Snapshot()
	if snap.State != StatePlaying || snap.Track.ID != "t1" {
		t.Errorf("snapshot = %+v, want playing t1", snap)
	}
}

func TestCachedTrackSkipsResolver(t *testing.T) {
	cache := &fakeCache{blobs: map[string]*offline.Blob{
		"t0": {VideoID: "t0", Data: []byte("cached"), ContentType: "audio/webm"},
	}}
	h := newHarness(t, cache)
	tracks := makeTracks(1)

	h.c.LoadTrack(tracks[0], tracks, 0)
	h.settle(t)

	if h.resolver.callCount() != 0 {
		t.Errorf("resolver calls = %d, want 0", h.resolver.callCount())
	}
	src, _ := h.output.lastSource()
	if string(src.Blob) != "cached" || src.URL != "" {
		t.Errorf("source = %+v, want cached blob", src)
	}
}

func TestPlaybackRecordsHistory(t *testing.T) {
	h := newHarness(t, nil)
	tracks := makeTracks(1)

	h.c.LoadTrack(tracks[0], tracks, 0)
	h.settle(t)

	if len(h.history.tracks) != 1 || h.history.tracks[0] != "t0" {
		t.Errorf("history = %v, want [t0]", h.history.tracks)
	}
}

func TestTrackEnded(t *testing.T) {
	tests := []struct {
		name      string
		repeat    RepeatMode
		start     int
		wantState State
		wantTrack string
	}{
		{"advance", RepeatOff, 0, StatePlaying, "t1"},
		{"end of queue pauses", RepeatOff, 2, StatePaused, "t2"},
		{"repeat all wraps", RepeatAll, 2, StatePlaying, "t0"},
		{"repeat one restarts", RepeatOne, 1, StatePlaying, "t1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			for h.c.repeat != tt.repeat {
				h.c.CycleRepeat()
			}
			tracks := makeTracks(3)

			h.c.LoadTrack(tracks[tt.start], tracks, tt.start)
			h.settle(t)
			token := h.c.token

			h.c.HandleEnded(token)
			h.settle(t)

			snap := h.c.Snapshot()
			if snap.State != tt.wantState {
				t.Errorf("State = %v, want %v", snap.State, tt.wantState)
			}
			if snap.Track.ID != tt.wantTrack {
				t.Errorf("Track = %q, want %q", snap.Track.ID, tt.wantTrack)
			}
			if tt.repeat == RepeatOne && (len(h.output.seeks) != 1 || h.output.seeks[0] != 0) {
				t.Errorf("seeks = %v, want [0]", h.output.seeks)
			}
		})
	}
}

func TestPrevious(t *testing.T) {
	t.Run("restarts after three seconds", func(t *testing.T) {
		h := newHarness(t, nil)
		tracks := makeTracks(3)
		h.c.LoadTrack(tracks[1], tracks, 1)
		h.settle(t)

		h.output.mu.Lock()
		h.output.position = 4 * time.Second
		h.output.mu.Unlock()

		h.c.Previous()
		snap := h.c.Snapshot()
		if snap.Track.ID != "t1" || snap.Position != 0 {
			t.Errorf("snapshot = %+v, want t1 at 0", snap)
		}
	})

	t.Run("moves back within three seconds", func(t *testing.T) {
		h := newHarness(t, nil)
		tracks := makeTracks(3)
		h.c.LoadTrack(tracks[0], tracks, 0)
		h.settle(t)

		h.output.mu.Lock()
		h.output.position = 2 * time.Second
		h.output.mu.Unlock()

		h.c.Previous()
		h.settle(t)
		if snap := h.c.Snapshot(); snap.Track.ID != "t2" {
			t.Errorf("Track = %q, want wrap to t2", snap.Track.ID)
		}
	})
}

func TestResolutionFailureDoesNotHaltController(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.fail["t0"] = &resolver.AllBackendsError{Operation: resolver.OperationVideo}
	tracks := makeTracks(2)

	h.c.LoadTrack(tracks[0], tracks, 0)
	h.c.wg.Wait()

	snap := h.c.Snapshot()
	if snap.State != StateErrored {
		t.Fatalf("State = %v, want errored", snap.State)
	}
	if snap.Error == "" {
		t.Error("Error message is empty")
	}

	h.c.Next()
	h.settle(t)
	if snap := h.c.Snapshot(); snap.State != StatePlaying || snap.Track.ID != "t1" {
		t.Errorf("snapshot after Next = %+v", snap)
	}
}

func TestOutputErrorSetsErrored(t *testing.T) {
	h := newHarness(t, nil)
	tracks := makeTracks(1)
	h.c.LoadTrack(tracks[0], tracks, 0)
	h.settle(t)

	h.c.HandleError(h.c.token, errors.New("decode failed"))
	if h.c.Snapshot().State != StateErrored {
		t.Error("State != errored after output error")
	}

	h.c.Play()
	h.settle(t)
	if h.c.Snapshot().State != StatePlaying {
		t.Error("Play() did not reload an errored track")
	}
}

func TestShuffleKeepsCurrentTrack(t *testing.T) {
	h := newHarness(t, nil)
	tracks := makeTracks(8)
	h.c.LoadTrack(tracks[3], tracks, 3)
	h.settle(t)
	sources := len(h.output.sources)

	if !h.c.ToggleShuffle() {
		t.Fatal("ToggleShuffle() = false, want true")
	}
	snap := h.c.Snapshot()
	if snap.Track.ID != "t3" || snap.State != StatePlaying {
		t.Errorf("snapshot = %+v, want t3 still playing", snap)
	}
	if len(h.output.sources) != sources {
		t.Error("shuffle reloaded the output")
	}

	h.c.ToggleShuffle()
	if got := ids(h.c.Snapshot().Queue); got != ids(tracks) {
		t.Errorf("queue = %s, want original order", got)
	}
}

func TestPauseAndPlay(t *testing.T) {
	h := newHarness(t, nil)
	tracks := makeTracks(1)
	h.c.LoadTrack(tracks[0], tracks, 0)
	h.settle(t)

	h.c.TogglePlayPause()
	if h.c.Snapshot().State != StatePaused {
		t.Error("TogglePlayPause() did not pause")
	}
	h.c.TogglePlayPause()
	if h.c.Snapshot().State != StatePlaying {
		t.Error("TogglePlayPause() did not resume")
	}

	if err := h.c.SetVolume(150); err != nil || h.output.volume != 100 {
		t.Errorf("SetVolume(150) = %v, volume %d", err, h.output.volume)
	}
	if err := h.c.Seek(-time.Second); err != nil || h.output.position != 0 {
		t.Errorf("Seek(-1s) = %v, position %v", err, h.output.position)
	}
}

func TestLoadTrackNotInQueue(t *testing.T) {
	h := newHarness(t, nil)
	tracks := makeTracks(2)
	extra := core.Track{ID: "x"}

	h.c.LoadTrack(extra, tracks, 0)
	h.settle(t)

	snap := h.c.Snapshot()
	if len(snap.Queue) != 3 || snap.Index != 2 || snap.Track.ID != "x" {
		t.Errorf("snapshot = %+v, want x appended and current", snap)
	}
}

func TestOnChange(t *testing.T) {
	h := newHarness(t, nil)
	var states []State
	var mu sync.Mutex
	h.c.OnChange(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	tracks := makeTracks(1)
	h.c.LoadTrack(tracks[0], tracks, 0)
	h.settle(t)

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[0] != StateLoading || states[len(states)-1] != StatePlaying {
		t.Errorf("states = %v", states)
	}
}
