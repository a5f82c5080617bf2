package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/heimdex/clipmark-agent/internal/logging"
)

// RelayChannel is the Redis pub/sub channel shared by all agents.
const RelayChannel = "clipmark:events"

// envelope tags relayed messages with the publishing agent so each agent
// skips its own echoes.
type envelope struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// Relay exchanges state between agents sharing a Redis server. Each agent
// applies what it receives to its own store, which then updates its views.
type Relay struct {
	rdb    *redis.Client
	origin string
	logger *slog.Logger
}

func NewRelay(rdb *redis.Client, logger *slog.Logger) *Relay {
	return &Relay{
		rdb:    rdb,
		origin: uuid.NewString(),
		logger: logging.WithComponent(logger, "relay"),
	}
}

// Publish sends msg to the other agents. msg must be valid JSON.
func (r *Relay) Publish(ctx context.Context, msg []byte) error {
	b, err := json.Marshal(envelope{Origin: r.origin, Message: msg})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, RelayChannel, string(b)).Err()
}

// Run passes messages published by other agents to handle until ctx is
// cancelled. ready, if non-nil, is closed once the subscription is live.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}, handle func(msg []byte)) error {
	sub := r.rdb.Subscribe(ctx, RelayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	r.logger.Info("relay subscribed", "channel", RelayChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("ignoring malformed relay message", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			handle(env.Message)
		}
	}
}
