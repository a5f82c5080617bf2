// Package clips holds the video/clip state of the agent: the data model, the
// store that applies the closed set of mutating operations, and clip search.
package clips

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/heimdex/clipmark-agent/internal/logging"
)

var ErrVideoNotFound = errors.New("video not found")

// Listener receives the snapshot produced by every store operation.
// Listeners run synchronously and must not call back into the store.
type Listener func(Snapshot)

// Store is the single source of truth for videos and clips. Every operation
// is applied atomically and returns the resulting snapshot.
type Store struct {
	mu    sync.Mutex
	state Snapshot

	notifyMu  sync.Mutex
	listeners []*listenerEntry

	logger *slog.Logger
}

type listenerEntry struct {
	fn Listener
}

// NewStore seeds a store with initial, typically the restored snapshot.
func NewStore(initial Snapshot, logger *slog.Logger) *Store {
	state := initial.clone()
	if state.Videos == nil {
		state.Videos = map[string]Video{}
	}
	return &Store{
		state:  state,
		logger: logging.WithComponent(logger, "store"),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every subsequent operation. The returned func
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	entry := &listenerEntry{fn: fn}

	s.notifyMu.Lock()
	s.listeners = append(s.listeners, entry)
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		for i, e := range s.listeners {
			if e == entry {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// apply runs fn against the state under the lock, then notifies listeners
// with the result. notifyMu is taken before releasing mu so listeners observe
// snapshots in operation order.
func (s *Store) apply(fn func(st *Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	err := fn(&s.state)
	snap := s.state.clone()
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	if err != nil {
		return snap, err
	}
	for _, l := range s.listeners {
		l.fn(snap.clone())
	}
	return snap, nil
}

// AddVideo inserts a video with only the full-video clip and makes it
// current. An existing video with the same id is replaced.
func (s *Store) AddVideo(id, url, name, icon string) Snapshot {
	snap, _ := s.apply(func(st *Snapshot) error {
		if _, exists := st.Videos[id]; exists {
			s.logger.Warn("video id collision, overwriting", "video_id", id)
		}
		st.Videos[id] = Video{
			ID:            id,
			URL:           url,
			Name:          name,
			Icon:          icon,
			Clips:         []Clip{FullVideoClip()},
			CurrentClipID: FullVideoClipID,
		}
		st.CurrentVideoID = id
		return nil
	})
	return snap
}

// DeleteVideo removes a video. When it was current, the lowest remaining id
// becomes current, or none.
func (s *Store) DeleteVideo(id string) Snapshot {
	snap, _ := s.apply(func(st *Snapshot) error {
		delete(st.Videos, id)
		if st.CurrentVideoID == id {
			st.CurrentVideoID = ""
			if ids := st.VideoIDs(); len(ids) > 0 {
				st.CurrentVideoID = ids[0]
			}
		}
		return nil
	})
	return snap
}

// SetCurrentVideo selects a video; unknown ids are ignored.
func (s *Store) SetCurrentVideo(id string) Snapshot {
	snap, _ := s.apply(func(st *Snapshot) error {
		if _, ok := st.Videos[id]; ok {
			st.CurrentVideoID = id
		}
		return nil
	})
	return snap
}

// AddClip appends clip to the video's clip list.
func (s *Store) AddClip(videoID string, clip Clip) (Snapshot, error) {
	return s.apply(func(st *Snapshot) error {
		v, ok := st.Videos[videoID]
		if !ok {
			return ErrVideoNotFound
		}
		v.Clips = append(v.Clips, clip.clone())
		st.Videos[videoID] = v
		return nil
	})
}

// DeleteClip removes a clip. The full-video clip is never removed. If the
// deleted clip was current, full-video becomes current.
func (s *Store) DeleteClip(videoID, clipID string) Snapshot {
	snap, _ := s.apply(func(st *Snapshot) error {
		if clipID == FullVideoClipID {
			return nil
		}
		v, ok := st.Videos[videoID]
		if !ok {
			return nil
		}
		kept := make([]Clip, 0, len(v.Clips))
		for _, c := range v.Clips {
			if c.ID != clipID {
				kept = append(kept, c)
			}
		}
		v.Clips = kept
		if v.CurrentClipID == clipID {
			v.CurrentClipID = FullVideoClipID
		}
		st.Videos[videoID] = v
		return nil
	})
	return snap
}

// EditClip replaces the clip with the same id in place. No match is a no-op.
func (s *Store) EditClip(videoID string, clip Clip) (Snapshot, error) {
	return s.apply(func(st *Snapshot) error {
		v, ok := st.Videos[videoID]
		if !ok {
			return ErrVideoNotFound
		}
		i := v.ClipIndex(clip.ID)
		if i < 0 {
			return nil
		}
		updated := clip.clone()
		updated.IsDefault = clip.ID == FullVideoClipID
		v.Clips[i] = updated
		st.Videos[videoID] = v
		return nil
	})
}

// Replace swaps the whole state for snap, as a restore does. It is how state
// received from another agent is applied.
func (s *Store) Replace(snap Snapshot) Snapshot {
	next := snap.clone()
	if next.Videos == nil {
		next.Videos = map[string]Video{}
	}
	out, _ := s.apply(func(st *Snapshot) error {
		*st = next
		return nil
	})
	return out
}

// SetCurrentClip selects a clip within a video. Unknown videos and clips
// are ignored so currentClipId never dangles.
func (s *Store) SetCurrentClip(videoID, clipID string) Snapshot {
	snap, _ := s.apply(func(st *Snapshot) error {
		v, ok := st.Videos[videoID]
		if !ok || v.ClipIndex(clipID) < 0 {
			return nil
		}
		v.CurrentClipID = clipID
		st.Videos[videoID] = v
		return nil
	})
	return snap
}
