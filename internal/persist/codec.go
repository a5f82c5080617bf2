package persist

import (
	"encoding/json"
	"fmt"

	"github.com/heimdex/clipmark-agent/internal/clips"
)

// wireState is the persisted JSON layout; currentVideoId is null when no
// video is selected.
type wireState struct {
	Videos         map[string]clips.Video `json:"videos"`
	CurrentVideoID *string                `json:"currentVideoId"`
}

// Encode serialises a snapshot in the persisted layout.
func Encode(snap clips.Snapshot) ([]byte, error) {
	w := wireState{Videos: snap.Videos}
	if w.Videos == nil {
		w.Videos = map[string]clips.Video{}
	}
	if snap.CurrentVideoID != "" {
		id := snap.CurrentVideoID
		w.CurrentVideoID = &id
	}
	return json.Marshal(w)
}

// Decode parses a persisted snapshot and repairs references so the result
// satisfies the store invariants.
func Decode(data []byte) (clips.Snapshot, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return clips.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := clips.EmptySnapshot()
	for key, v := range w.Videos {
		snap.Videos[key] = normalizeVideo(key, v)
	}
	if w.CurrentVideoID != nil {
		if _, ok := snap.Videos[*w.CurrentVideoID]; ok {
			snap.CurrentVideoID = *w.CurrentVideoID
		}
	}
	return snap, nil
}

func normalizeVideo(key string, v clips.Video) clips.Video {
	if v.ID == "" {
		v.ID = key
	}
	if v.ClipIndex(clips.FullVideoClipID) < 0 {
		v.Clips = append([]clips.Clip{clips.FullVideoClip()}, v.Clips...)
	}
	for i := range v.Clips {
		if v.Clips[i].Tags == nil {
			v.Clips[i].Tags = []string{}
		}
		v.Clips[i].IsDefault = v.Clips[i].ID == clips.FullVideoClipID
	}
	if v.ClipIndex(v.CurrentClipID) < 0 {
		v.CurrentClipID = clips.FullVideoClipID
	}
	return v
}
