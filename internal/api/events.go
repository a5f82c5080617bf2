package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/logging"
	"github.com/heimdex/clipmark-agent/internal/persist"
	"github.com/heimdex/clipmark-agent/internal/playback"
	"github.com/heimdex/clipmark-agent/internal/realtime"
)

const relayTimeout = 2 * time.Second

// Keys the views forward to the agent.
const (
	KeyNext     = "ArrowRight"
	KeyPrevious = "ArrowLeft"
)

// Client message types.
const (
	MessageKey    = "key"
	MessageReport = "report"
)

// Events pushes store and playback changes to connected views. When a relay
// is configured, local state changes go to other agents, and state received
// from them replaces the local store without being relayed back.
type Events struct {
	store  *clips.Store
	hub    *realtime.Hub
	relay  *realtime.Relay
	logger *slog.Logger

	mu     sync.Mutex
	remote *clips.Snapshot
}

func NewEvents(store *clips.Store, hub *realtime.Hub, relay *realtime.Relay, logger *slog.Logger) *Events {
	return &Events{
		store:  store,
		hub:    hub,
		relay:  relay,
		logger: logging.WithComponent(logger, "events"),
	}
}

// WireStore publishes every store snapshot. The returned func unsubscribes.
func (e *Events) WireStore() func() {
	return e.store.Subscribe(e.stateChanged)
}

func (e *Events) stateChanged(snap clips.Snapshot) {
	e.hub.Publish(realtime.EventStateChanged, StateToResponse(snap))
	if e.relay == nil || e.fromRemote(snap) {
		return
	}

	data, err := persist.Encode(snap)
	if err != nil {
		e.logger.Error("failed to encode state for relay", "error", err)
		return
	}
	b, err := json.Marshal(realtime.Event{Type: realtime.EventStateChanged, Payload: json.RawMessage(data)})
	if err != nil {
		e.logger.Error("failed to encode relay event", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()
	if err := e.relay.Publish(ctx, b); err != nil {
		e.logger.Warn("relay publish failed", "error", err)
	}
}

// fromRemote reports whether snap is the state last applied by ApplyRemote,
// and forgets it.
func (e *Events) fromRemote(snap clips.Snapshot) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote == nil || !e.remote.Equal(snap) {
		return false
	}
	e.remote = nil
	return true
}

type relayedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ApplyRemote handles a message from another agent. A state.changed message
// replaces the local store; other types are ignored.
func (e *Events) ApplyRemote(msg []byte) {
	var ev relayedEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		e.logger.Warn("ignoring malformed relayed event", "error", err)
		return
	}
	if ev.Type != realtime.EventStateChanged {
		return
	}
	snap, err := persist.Decode(ev.Payload)
	if err != nil {
		e.logger.Warn("ignoring relayed state", "error", err)
		return
	}

	e.mu.Lock()
	e.remote = &snap
	e.mu.Unlock()
	e.store.Replace(snap)
	e.logger.Debug("applied relayed state", "videos", len(snap.Videos))
}

// PlaybackStatus is suitable as playback.ControllerConfig.OnStatus. Playback
// status stays local: each agent runs its own controller.
func (e *Events) PlaybackStatus(s playback.Status) {
	e.hub.Publish(realtime.EventPlaybackState, s)
}

type clientMessage struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
	playback.Report
}

// NewClientMessageHandler routes view messages: navigation keys go to the
// controller, media reports go to the media backend.
func NewClientMessageHandler(pb Playback, media MediaReporter, logger *slog.Logger) realtime.MessageHandler {
	logger = logging.WithComponent(logger, "events")
	return func(_ *realtime.Client, raw []byte) {
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Debug("ignoring malformed client message", "error", err)
			return
		}

		switch msg.Type {
		case MessageReport:
			media.Report(msg.Report)
		case MessageKey:
			var intent func(context.Context) error
			switch msg.Key {
			case KeyNext:
				intent = pb.Advance
			case KeyPrevious:
				intent = pb.Retreat
			default:
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
			defer cancel()
			if err := intent(ctx); err != nil {
				logger.Warn("navigation failed", "key", msg.Key, "error", err)
			}
		default:
			logger.Debug("ignoring client message", "type", msg.Type)
		}
	}
}
