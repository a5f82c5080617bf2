package playback

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/heimdex/clipmark-agent/internal/logging"
)

// Media is the single playback capability the controller drives.
type Media interface {
	Load(src string) error
	Play() error
	Pause()
	Paused() bool
	CurrentTime() float64
}

// Broadcaster delivers a message to every connected view.
type Broadcaster interface {
	Broadcast(msg []byte)
}

const (
	CommandLoad  = "player.load"
	CommandPlay  = "player.play"
	CommandPause = "player.pause"
)

// Command is sent to views to drive their media element.
type Command struct {
	Type string `json:"type"`
	Src  string `json:"src,omitempty"`
}

// Report is what a view's media element sends back. Src must echo the src
// of the last player.load; reports for any other source, or none, are stale
// and dropped.
type Report struct {
	Src          string   `json:"src"`
	Position     *float64 `json:"position,omitempty"`
	Paused       *bool    `json:"paused,omitempty"`
	Duration     *float64 `json:"duration,omitempty"`
	PlayRejected string   `json:"play_rejected,omitempty"`
}

// RemoteMedia is the Media implementation backed by browser views: commands
// go out through a Broadcaster, state comes back as Reports.
type RemoteMedia struct {
	out    Broadcaster
	logger *slog.Logger

	mu         sync.Mutex
	src        string
	position   float64
	paused     bool
	onDuration func(float64)
}

func NewRemoteMedia(out Broadcaster, logger *slog.Logger) *RemoteMedia {
	return &RemoteMedia{
		out:    out,
		logger: logging.WithComponent(logger, "media"),
		paused: true,
	}
}

// OnDuration registers the callback fed by duration reports.
func (m *RemoteMedia) OnDuration(fn func(float64)) {
	m.mu.Lock()
	m.onDuration = fn
	m.mu.Unlock()
}

func (m *RemoteMedia) Load(src string) error {
	m.mu.Lock()
	m.src = src
	m.position = 0
	m.paused = true
	m.mu.Unlock()
	return m.send(Command{Type: CommandLoad, Src: src})
}

func (m *RemoteMedia) Play() error {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	return m.send(Command{Type: CommandPlay})
}

func (m *RemoteMedia) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
	if err := m.send(Command{Type: CommandPause}); err != nil {
		m.logger.Warn("failed to send pause", "error", err)
	}
}

func (m *RemoteMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *RemoteMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Source returns the currently loaded source.
func (m *RemoteMedia) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// Report applies a state report from a view.
func (m *RemoteMedia) Report(r Report) {
	m.mu.Lock()
	if r.Src == "" || r.Src != m.src {
		m.mu.Unlock()
		m.logger.Debug("dropping stale media report", "src", logging.SanitizeURL(r.Src))
		return
	}
	if r.Position != nil {
		m.position = *r.Position
	}
	if r.Paused != nil {
		m.paused = *r.Paused
	}
	if r.PlayRejected != "" {
		m.paused = true
	}
	onDuration := m.onDuration
	m.mu.Unlock()

	if r.PlayRejected != "" {
		m.logger.Warn("autoplay blocked", "reason", r.PlayRejected)
	}
	if r.Duration != nil && onDuration != nil {
		onDuration(*r.Duration)
	}
}

func (m *RemoteMedia) send(cmd Command) error {
	if m.out == nil {
		return nil
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	m.out.Broadcast(b)
	return nil
}
