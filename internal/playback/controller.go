// Package playback drives a media capability through the clip list of the
// current video: it loads each clip's range, detects the end of the range,
// and advances to the next clip after a delay.
package playback

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/logging"
)

const (
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultTransitionDelay = 3 * time.Second
)

type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhasePlaying       Phase = "playing"
	PhaseTransitioning Phase = "transitioning"
)

// ClipStore is the part of *clips.Store the controller uses.
type ClipStore interface {
	Snapshot() clips.Snapshot
	Subscribe(fn clips.Listener) func()
	SetCurrentClip(videoID, clipID string) clips.Snapshot
}

type ControllerConfig struct {
	Store           ClipStore
	Media           Media
	Logger          *slog.Logger
	PollInterval    time.Duration
	TransitionDelay time.Duration
	// OnStatus, if set, is called from the controller goroutine whenever
	// the status changes.
	OnStatus func(Status)
}

type Status struct {
	Phase    Phase    `json:"phase"`
	VideoID  string   `json:"video_id,omitempty"`
	ClipID   string   `json:"clip_id,omitempty"`
	ClipName string   `json:"clip_name,omitempty"`
	Source   string   `json:"source,omitempty"`
	Duration float64  `json:"duration"`
	Markers  []Marker `json:"markers"`
}

// target identifies what is loaded. A change of any field re-enters playing.
type target struct {
	videoID string
	clipID  string
	src     string
}

type Controller struct {
	store           ClipStore
	media           Media
	logger          *slog.Logger
	pollInterval    time.Duration
	transitionDelay time.Duration
	onStatus        func(Status)

	snapshots chan clips.Snapshot
	durations chan float64
	intents   chan intent
	running   atomic.Bool

	// Owned by the Run goroutine.
	phase       Phase
	current     target
	clipEnd     *float64
	clipList    []clips.Clip
	clipName    string
	duration    float64
	hasDuration bool
	timer       *time.Timer
	timerC      <-chan time.Time

	statusMu sync.RWMutex
	status   Status
}

type intent struct {
	delta int
	done  chan struct{}
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.TransitionDelay <= 0 {
		cfg.TransitionDelay = DefaultTransitionDelay
	}
	return &Controller{
		store:           cfg.Store,
		media:           cfg.Media,
		logger:          logging.WithComponent(cfg.Logger, "playback"),
		pollInterval:    cfg.PollInterval,
		transitionDelay: cfg.TransitionDelay,
		onStatus:        cfg.OnStatus,
		snapshots:       make(chan clips.Snapshot, 1),
		durations:       make(chan float64, 1),
		intents:         make(chan intent),
		phase:           PhaseIdle,
		status:          Status{Phase: PhaseIdle, Markers: []Marker{}},
	}
}

// Run drives playback until ctx is cancelled. All state transitions happen
// on this goroutine.
func (c *Controller) Run(ctx context.Context) {
	if c.running.Swap(true) {
		return
	}
	defer c.running.Store(false)

	unsubscribe := c.store.Subscribe(c.enqueueSnapshot)
	defer unsubscribe()

	c.logger.Info("playback controller started",
		"poll_interval_ms", c.pollInterval.Milliseconds(),
		"transition_delay_ms", c.transitionDelay.Milliseconds(),
	)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.reconcile(c.store.Snapshot())

	for {
		select {
		case <-ctx.Done():
			c.cancelTransition()
			c.logger.Info("playback controller stopping")
			return
		case snap := <-c.snapshots:
			c.reconcile(snap)
		case <-ticker.C:
			c.poll()
		case <-c.timerC:
			c.timer, c.timerC = nil, nil
			c.finishTransition()
		case in := <-c.intents:
			c.navigate(in.delta)
			close(in.done)
		case d := <-c.durations:
			c.setDuration(d)
		}
	}
}

func (c *Controller) IsRunning() bool {
	return c.running.Load()
}

// Advance selects the clip after the current one, if any.
func (c *Controller) Advance(ctx context.Context) error {
	return c.submit(ctx, 1)
}

// Retreat selects the clip before the current one, if any.
func (c *Controller) Retreat(ctx context.Context) error {
	return c.submit(ctx, -1)
}

func (c *Controller) submit(ctx context.Context, delta int) error {
	in := intent{delta: delta, done: make(chan struct{})}
	select {
	case c.intents <- in:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-in.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReportDuration records the media duration for the loaded source. Only the
// first report after each load is used.
func (c *Controller) ReportDuration(seconds float64) {
	for {
		select {
		case c.durations <- seconds:
			return
		default:
		}
		select {
		case <-c.durations:
		default:
		}
	}
}

// Status returns the last published status.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	s := c.status
	s.Markers = slices.Clone(c.status.Markers)
	return s
}

// enqueueSnapshot keeps only the latest snapshot; it never blocks the store.
func (c *Controller) enqueueSnapshot(snap clips.Snapshot) {
	for {
		select {
		case c.snapshots <- snap:
			return
		default:
		}
		select {
		case <-c.snapshots:
		default:
		}
	}
}

func (c *Controller) reconcile(snap clips.Snapshot) {
	video, ok := snap.CurrentVideo()
	if !ok {
		c.stop("no current video")
		return
	}
	clip, ok := video.CurrentClip()
	if !ok {
		c.stop("no current clip")
		return
	}

	c.clipList = video.Clips
	c.clipName = clip.Name

	next := target{videoID: video.ID, clipID: clip.ID, src: FragmentURL(video.URL, clip)}
	if next == c.current {
		c.publish()
		return
	}

	c.cancelTransition()
	c.enter(next, clip)
}

// enter loads the clip's range and starts playback.
func (c *Controller) enter(next target, clip clips.Clip) {
	c.current = next
	c.clipEnd = clip.End
	c.duration, c.hasDuration = 0, false

	logger := logging.WithVideoID(c.logger, next.videoID)

	if err := c.media.Load(next.src); err != nil {
		logger.Error("failed to load media", "clip_id", next.clipID, "error", err)
		c.phase = PhaseIdle
		c.publish()
		return
	}
	if err := c.media.Play(); err != nil {
		logger.Warn("autoplay blocked", "clip_id", next.clipID, "error", err)
	}

	c.phase = PhasePlaying
	logger.Info("playing clip", "clip_id", next.clipID, "src", logging.SanitizeURL(next.src))
	c.publish()
}

func (c *Controller) stop(reason string) {
	c.cancelTransition()
	if c.current == (target{}) && c.phase == PhaseIdle {
		return
	}
	if c.phase == PhasePlaying {
		c.media.Pause()
	}
	c.current = target{}
	c.clipEnd = nil
	c.clipList = nil
	c.clipName = ""
	c.duration, c.hasDuration = 0, false
	c.phase = PhaseIdle
	c.logger.Info("playback idle", "reason", reason)
	c.publish()
}

// poll detects the end of the loaded range. Once the last clip has ended the
// range stays loaded, and playing past its end again only pauses.
func (c *Controller) poll() {
	if c.current == (target{}) || c.clipEnd == nil || c.media.Paused() {
		return
	}
	if c.media.CurrentTime() < *c.clipEnd {
		return
	}

	c.media.Pause()
	if c.phase != PhasePlaying {
		c.logger.Debug("paused replay at clip end", "clip_id", c.current.clipID)
		return
	}
	c.phase = PhaseTransitioning
	c.timer = time.NewTimer(c.transitionDelay)
	c.timerC = c.timer.C
	c.logger.Debug("clip end reached", "clip_id", c.current.clipID)
	c.publish()
}

func (c *Controller) cancelTransition() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer, c.timerC = nil, nil
	}
	if c.phase == PhaseTransitioning {
		c.phase = PhaseIdle
	}
}

func (c *Controller) finishTransition() {
	if c.phase != PhaseTransitioning {
		return
	}
	video, ok := c.store.Snapshot().Videos[c.current.videoID]
	if !ok {
		c.phase = PhaseIdle
		c.publish()
		return
	}

	i := video.ClipIndex(c.current.clipID)
	if i < 0 || i+1 >= len(video.Clips) {
		c.phase = PhaseIdle
		c.logger.Info("reached last clip", "clip_id", c.current.clipID)
		c.publish()
		return
	}

	c.reconcile(c.store.SetCurrentClip(video.ID, video.Clips[i+1].ID))
}

func (c *Controller) navigate(delta int) {
	snap := c.store.Snapshot()
	video, ok := snap.CurrentVideo()
	if !ok {
		return
	}
	i := video.ClipIndex(video.CurrentClipID)
	if i < 0 {
		return
	}
	j := i + delta
	if j < 0 || j >= len(video.Clips) {
		return
	}
	c.reconcile(c.store.SetCurrentClip(video.ID, video.Clips[j].ID))
}

func (c *Controller) setDuration(d float64) {
	if c.hasDuration || c.current == (target{}) {
		return
	}
	c.duration, c.hasDuration = d, true
	c.publish()
}

func (c *Controller) publish() {
	s := Status{
		Phase:    c.phase,
		VideoID:  c.current.videoID,
		ClipID:   c.current.clipID,
		ClipName: c.clipName,
		Source:   c.current.src,
		Duration: c.duration,
		Markers:  Markers(c.clipList, c.duration),
	}

	c.statusMu.Lock()
	changed := !statusEqual(c.status, s)
	c.status = s
	c.statusMu.Unlock()

	if changed && c.onStatus != nil {
		c.onStatus(s)
	}
}

func statusEqual(a, b Status) bool {
	return a.Phase == b.Phase &&
		a.VideoID == b.VideoID &&
		a.ClipID == b.ClipID &&
		a.ClipName == b.ClipName &&
		a.Source == b.Source &&
		a.Duration == b.Duration &&
		slices.Equal(a.Markers, b.Markers)
}
