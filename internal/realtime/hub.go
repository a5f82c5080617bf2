// Package realtime pushes store and player events to connected views over
// websockets, and exchanges state between agents through Redis.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/heimdex/clipmark-agent/internal/logging"
)

const (
	EventStateChanged  = "state.changed"
	EventPlaybackState = "playback.status"
)

// Event is the envelope for server-pushed messages.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// MessageHandler receives raw messages sent by a client.
type MessageHandler func(c *Client, msg []byte)

// Hub owns the set of connected clients. Only Run touches the set.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	onMessage  MessageHandler
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logging.WithComponent(logger, "realtime"),
	}
}

// OnMessage sets the handler for client messages. Call before Run.
func (h *Hub) OnMessage(fn MessageHandler) {
	h.onMessage = fn
}

// Run serves registrations and broadcasts until ctx is cancelled. It must
// be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("client disconnected", "clients", len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop it rather than stall everyone.
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn("dropping slow client")
				}
			}
		}
	}
}

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// Publish marshals an Event and broadcasts it.
func (h *Hub) Publish(eventType string, payload any) {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.Error("failed to encode event", "type", eventType, "error", err)
		return
	}
	h.Broadcast(b)
}

func (h *Hub) dispatch(c *Client, msg []byte) {
	if h.onMessage != nil {
		h.onMessage(c, msg)
	}
}
