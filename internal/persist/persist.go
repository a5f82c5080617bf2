// Package persist saves the clip store snapshot under a fixed key and
// restores it at startup. Backends are interchangeable: the agent's SQLite
// database by default, or Redis / Postgres when configured.
package persist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/logging"
)

// Key is the single key every backend stores the snapshot under.
const Key = "clipsState"

var ErrNotFound = errors.New("snapshot not found")

const saveTimeout = 5 * time.Second

// Store is a key-less blob store for the encoded snapshot. Load returns
// ErrNotFound when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Restore reads and decodes the saved snapshot. A missing, unreadable or
// malformed snapshot yields the empty state; restore never fails.
func Restore(ctx context.Context, backend Store, logger *slog.Logger) clips.Snapshot {
	logger = logging.WithComponent(logger, "persist")

	data, err := backend.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		logger.Info("no saved state, starting empty")
		return clips.EmptySnapshot()
	}
	if err != nil {
		logger.Warn("failed to load saved state, starting empty", "error", err)
		return clips.EmptySnapshot()
	}

	snap, err := Decode(data)
	if err != nil {
		logger.Warn("saved state is malformed, starting empty", "error", err)
		return clips.EmptySnapshot()
	}

	logger.Info("restored state", "videos", len(snap.Videos), "current_video_id", snap.CurrentVideoID)
	return snap
}

// Attach saves every snapshot the store publishes. Write failures are logged
// and otherwise ignored. The returned func detaches.
func Attach(store *clips.Store, backend Store, logger *slog.Logger) func() {
	logger = logging.WithComponent(logger, "persist")

	return store.Subscribe(func(snap clips.Snapshot) {
		data, err := Encode(snap)
		if err != nil {
			logger.Warn("failed to encode state", "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		if err := backend.Save(ctx, data); err != nil {
			logger.Warn("failed to save state", "error", err)
		}
	})
}
