package ui

import (
	"context"
	_ "embed"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/heimdex/clipmark-agent/internal/logging"
	"github.com/heimdex/clipmark-agent/internal/playback"
)

//go:embed icon.png
var iconBytes []byte

const intentTimeout = 2 * time.Second

// Navigator is the part of the playback controller the tray drives.
type Navigator interface {
	Advance(ctx context.Context) error
	Retreat(ctx context.Context) error
	Status() playback.Status
}

type Tray struct {
	navigator Navigator
	logger    *slog.Logger

	nowPlayingItem *systray.MenuItem
	phaseItem      *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Navigator Navigator
	Logger    *slog.Logger
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		navigator: cfg.Navigator,
		logger:    logging.WithComponent(cfg.Logger, "tray"),
		onQuit:    cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Clipmark")
	systray.SetTooltip("Clipmark Agent")

	t.mu.Lock()
	t.nowPlayingItem = systray.AddMenuItem("Now Playing: -", "Current clip")
	t.nowPlayingItem.Disable()
	t.phaseItem = systray.AddMenuItem("Status: Idle", "Playback status")
	t.phaseItem.Disable()
	t.mu.Unlock()

	systray.AddSeparator()

	prevItem := systray.AddMenuItem("Previous Clip", "Play the previous clip")
	nextItem := systray.AddMenuItem("Next Clip", "Play the next clip")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Clipmark Agent")

	t.UpdateStatus(t.navigator.Status())

	go func() {
		for {
			select {
			case <-prevItem.ClickedCh:
				t.navigate("previous", t.navigator.Retreat)
			case <-nextItem.ClickedCh:
				t.navigate("next", t.navigator.Advance)
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) navigate(direction string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		t.logger.Warn("tray navigation failed", "direction", direction, "error", err)
	}
}

// UpdateStatus reflects a playback status in the menu. It is a no-op until
// the tray is ready.
func (t *Tray) UpdateStatus(s playback.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.nowPlayingItem == nil {
		return
	}
	t.nowPlayingItem.SetTitle(nowPlayingTitle(s))
	t.phaseItem.SetTitle(phaseTitle(s.Phase))
}

func nowPlayingTitle(s playback.Status) string {
	if s.ClipName == "" {
		return "Now Playing: -"
	}
	return "Now Playing: " + s.ClipName
}

func phaseTitle(p playback.Phase) string {
	switch p {
	case playback.PhasePlaying:
		return "Status: Playing"
	case playback.PhaseTransitioning:
		return "Status: Up Next..."
	default:
		return "Status: Idle"
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
