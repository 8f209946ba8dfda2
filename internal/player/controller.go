package player

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"audiomab/internal/core"
	"audiomab/internal/i18n"
	"audiomab/internal/offline"
	"audiomab/internal/resolver"
)

// restartThreshold is how far into a track Previous restarts it instead of going back.
const restartThreshold = 3 * time.Second

// Source is what the output should play. Token identifies the load that produced it;
// the output passes it back with every event.
type Source struct {
	Token       uint64
	URL         string
	Blob        []byte
	ContentType string
}

// Output is the single audio primitive owned by the controller. SetSource is asynchronous:
// the output reports back through HandleReady, HandleEnded and HandleError.
type Output interface {
	SetSource(src Source) error
	Play() error
	Pause() error
	Stop() error
	Seek(position time.Duration) error
	SetVolume(percent int) error
	Position() time.Duration
}

// Resolver turns a video ID into a playable URL.
type Resolver interface {
	FetchVideo(ctx context.Context, videoID string) (*resolver.VideoResult, error)
}

// Cache serves offline audio in preference to the network.
type Cache interface {
	IsCached(ctx context.Context, videoID string) bool
	GetCachedBlob(ctx context.Context, videoID string) (*offline.Blob, error)
}

// History records tracks when they start playing.
type History interface {
	AddRecent(ctx context.Context, track core.Track) error
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State    State         `json:"state"`
	Track    *core.Track   `json:"track,omitempty"`
	Index    int           `json:"index"`
	Queue    []core.Track  `json:"queue"`
	Position time.Duration `json:"position"`
	Shuffle  bool          `json:"shuffle"`
	Repeat   RepeatMode    `json:"repeat"`
	Error    string        `json:"error,omitempty"`
}

// Options wires the controller's collaborators. Output and Resolver are required;
// the rest are optional.
type Options struct {
	Output    Output
	Resolver  Resolver
	Cache     Cache
	History   History
	Localizer *i18n.Localizer
	Rand      *rand.Rand
	Logger    *zap.Logger
}

// Controller is the playback state machine. All mutation of the output funnels through it.
type Controller struct {
	output    Output
	resolver  Resolver
	cache     Cache
	history   History
	localizer *i18n.Localizer
	logger    *zap.Logger
	rnd       *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mutex      sync.Mutex
	state      State
	queue      *Queue
	repeat     RepeatMode
	shuffle    bool
	current    *core.Track
	errMessage string
	token      uint64
	loadCancel context.CancelFunc
	onChange   func(Snapshot)
}

// NewController creates an idle controller.
func NewController(opts Options) *Controller {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	localizer := opts.Localizer
	if localizer == nil {
		localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		output:    opts.Output,
		resolver:  opts.Resolver,
		cache:     opts.Cache,
		history:   opts.History,
		localizer: localizer,
		logger:    logger,
		rnd:       rnd,
		ctx:       ctx,
		cancel:    cancel,
		queue:     NewQueue(nil, 0, rnd),
	}
}

// OnChange registers a callback invoked after every state change. It runs without the lock held.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onChange = fn
}

// LoadTrack replaces the queue and starts loading track at index. Any in-flight load is canceled
// and its result discarded.
func (c *Controller) LoadTrack(track core.Track, queue []core.Track, index int) {
	track = track.Normalize()
	if len(queue) == 0 {
		queue, index = []core.Track{track}, 0
	}
	if index < 0 || index >= len(queue) || queue[index].Normalize().ID != track.ID {
		index = indexOf(queue, track.ID)
		if index < 0 {
			queue, index = append(append([]core.Track(nil), queue...), track), len(queue)
		}
	}

	c.mutex.Lock()
	c.queue = NewQueue(queue, index, c.rnd)
	if c.shuffle {
		c.queue.SetShuffle(true)
	}
	c.startLocked(track)
	c.mutex.Unlock()

	c.notify()
}

func indexOf(tracks []core.Track, id string) int {
	for i, t := range tracks {
		if t.Normalize().ID == id {
			return i
		}
	}
	return -1
}

// startLocked silences the output, invalidates the previous load and resolves track.
func (c *Controller) startLocked(track core.Track) {
	if c.loadCancel != nil {
		c.loadCancel()
	}
	c.token++
	token := c.token

	if err := c.output.Stop(); err != nil {
		c.logger.Debug("Failed to stop output", zap.Error(err))
	}

	c.state = StateLoading
	c.current = &track
	c.errMessage = ""

	ctx, cancel := context.WithCancel(c.ctx)
	c.loadCancel = cancel

	c.logger.Debug("Loading track",
		zap.String("videoID", track.VideoID),
		zap.String("title", track.Title),
		zap.Uint64("token", token))

	c.wg.Add(1)
	go c.resolve(ctx, token, track)
}

func (c *Controller) resolve(ctx context.Context, token uint64, track core.Track) {
	defer c.wg.Done()

	src, err := c.source(ctx, track)

	c.mutex.Lock()
	if token != c.token {
		c.mutex.Unlock()
		c.logger.Debug("Discarding stale resolution",
			zap.String("videoID", track.VideoID),
			zap.Uint64("token", token))
		return
	}

	if err == nil {
		src.Token = token
		err = c.output.SetSource(src)
	}
	if err != nil {
		c.failLocked(track, err)
	}
	c.mutex.Unlock()

	c.notify()
}

// source prefers the offline cache and only resolves over the network on a miss.
func (c *Controller) source(ctx context.Context, track core.Track) (Source, error) {
	if c.cache != nil && c.cache.IsCached(ctx, track.VideoID) {
		blob, err := c.cache.GetCachedBlob(ctx, track.VideoID)
		if err == nil {
			return Source{Blob: blob.Data, ContentType: blob.ContentType}, nil
		}
		c.logger.Warn("Cached audio unreadable, resolving instead",
			zap.String("videoID", track.VideoID), zap.Error(err))
	}

	video, err := c.resolver.FetchVideo(ctx, track.VideoID)
	if err != nil {
		return Source{}, err
	}
	return Source{URL: video.Audio.AudioURL, ContentType: video.Audio.ContentType}, nil
}

func (c *Controller) failLocked(track core.Track, err error) {
	c.state = StateErrored
	c.errMessage = c.localizer.T("player.resolve_failed", track.Title, c.describe(err))
	c.logger.Warn("Track failed to load",
		zap.String("videoID", track.VideoID),
		zap.Error(err))
}

func (c *Controller) describe(err error) string {
	switch {
	case resolver.IsTimeout(err):
		return c.localizer.T("error.timeout")
	case errors.Is(err, resolver.ErrAllBackendsUnavailable), errors.Is(err, resolver.ErrNoBackends):
		return c.localizer.T("error.backends_unavailable")
	default:
		return c.localizer.T("error.generic")
	}
}

// HandleReady is called by the output once the source for token can play.
func (c *Controller) HandleReady(token uint64) {
	c.mutex.Lock()
	if token != c.token || c.state != StateLoading {
		c.mutex.Unlock()
		return
	}

	c.state = StateReady
	if err := c.output.Play(); err != nil {
		c.failLocked(*c.current, err)
		c.mutex.Unlock()
		c.notify()
		return
	}
	c.state = StatePlaying
	track := *c.current
	c.mutex.Unlock()

	if c.history != nil {
		if err := c.history.AddRecent(c.ctx, track); err != nil {
			c.logger.Warn("Failed to record recent track", zap.Error(err))
		}
	}
	c.notify()
}

// HandleEnded is called by the output when the track for token finished naturally.
func (c *Controller) HandleEnded(token uint64) {
	c.mutex.Lock()
	if token != c.token {
		c.mutex.Unlock()
		return
	}

	switch {
	case c.repeat == RepeatOne:
		c.restartLocked()
	case c.queue.Advance(c.repeat == RepeatAll):
		track, _ := c.queue.Current()
		c.startLocked(track)
	default:
		c.state = StatePaused
		c.logger.Debug("End of queue reached")
	}
	c.mutex.Unlock()

	c.notify()
}

// HandleError is called by the output when the source for token cannot be played.
func (c *Controller) HandleError(token uint64, err error) {
	c.mutex.Lock()
	if token != c.token || c.current == nil {
		c.mutex.Unlock()
		return
	}
	c.failLocked(*c.current, err)
	c.mutex.Unlock()

	c.notify()
}

func (c *Controller) restartLocked() {
	if err := c.output.Seek(0); err != nil {
		c.logger.Debug("Failed to seek", zap.Error(err))
	}
	if err := c.output.Play(); err != nil {
		c.failLocked(*c.current, err)
		return
	}
	c.state = StatePlaying
}

// Next skips to the next track in play order, wrapping at the end.
func (c *Controller) Next() {
	c.mutex.Lock()
	if !c.queue.Advance(true) {
		c.mutex.Unlock()
		return
	}
	track, _ := c.queue.Current()
	c.startLocked(track)
	c.mutex.Unlock()

	c.notify()
}

// Previous restarts the current track when more than three seconds have played,
// otherwise it moves to the previous track, wrapping to the end.
func (c *Controller) Previous() {
	c.mutex.Lock()
	if c.current != nil && (c.state == StatePlaying || c.state == StatePaused) &&
		c.output.Position() > restartThreshold {
		c.restartLocked()
		c.mutex.Unlock()
		c.notify()
		return
	}

	if !c.queue.Back() {
		c.mutex.Unlock()
		return
	}
	track, _ := c.queue.Current()
	c.startLocked(track)
	c.mutex.Unlock()

	c.notify()
}

// Play resumes a ready or paused track. An errored track is loaded again.
func (c *Controller) Play() {
	c.mutex.Lock()
	switch c.state {
	case StateReady, StatePaused:
		if err := c.output.Play(); err != nil {
			c.failLocked(*c.current, err)
		} else {
			c.state = StatePlaying
		}
	case StateErrored:
		c.startLocked(*c.current)
	default:
		c.mutex.Unlock()
		return
	}
	c.mutex.Unlock()

	c.notify()
}

// Pause pauses a playing track.
func (c *Controller) Pause() {
	c.mutex.Lock()
	if c.state != StatePlaying {
		c.mutex.Unlock()
		return
	}
	if err := c.output.Pause(); err != nil {
		c.logger.Warn("Failed to pause output", zap.Error(err))
	} else {
		c.state = StatePaused
	}
	c.mutex.Unlock()

	c.notify()
}

// TogglePlayPause pauses when playing and plays otherwise.
func (c *Controller) TogglePlayPause() {
	c.mutex.Lock()
	playing := c.state == StatePlaying
	c.mutex.Unlock()

	if playing {
		c.Pause()
		return
	}
	c.Play()
}

// ToggleShuffle flips shuffle. The current track keeps playing.
func (c *Controller) ToggleShuffle() bool {
	c.mutex.Lock()
	c.shuffle = !c.shuffle
	c.queue.SetShuffle(c.shuffle)
	on := c.shuffle
	c.mutex.Unlock()

	c.notify()
	return on
}

// CycleRepeat moves to the next repeat mode and returns it.
func (c *Controller) CycleRepeat() RepeatMode {
	c.mutex.Lock()
	c.repeat = c.repeat.Next()
	mode := c.repeat
	c.mutex.Unlock()

	c.notify()
	return mode
}

// Seek moves the playhead of the current track.
func (c *Controller) Seek(position time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state != StatePlaying && c.state != StatePaused && c.state != StateReady {
		return nil
	}
	if position < 0 {
		position = 0
	}
	return c.output.Seek(position)
}

// SetVolume passes the volume through to the output.
func (c *Controller) SetVolume(percent int) error {
	percent = max(0, min(100, percent))

	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.output.SetVolume(percent)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:   c.state,
		Index:   c.queue.Position(),
		Queue:   c.queue.PlayOrder(),
		Shuffle: c.shuffle,
		Repeat:  c.repeat,
		Error:   c.errMessage,
	}
	if c.current != nil {
		track := *c.current
		s.Track = &track
		if c.state == StatePlaying || c.state == StatePaused {
			s.Position = c.output.Position()
		}
	}
	return s
}

func (c *Controller) notify() {
	c.mutex.Lock()
	fn := c.onChange
	var snapshot Snapshot
	if fn != nil {
		snapshot = c.snapshotLocked()
	}
	c.mutex.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Close cancels any in-flight load, waits for it and stops the output.
func (c *Controller) Close() error {
	c.mutex.Lock()
	c.token++
	c.state = StateIdle
	c.mutex.Unlock()

	c.cancel()
	c.wg.Wait()

	return c.output.Stop()
}
