package playback

import "github.com/heimdex/clipmark-agent/internal/clips"

// Marker places a clip's start on the timeline; Left is a percentage of the
// media duration.
type Marker struct {
	ClipID string  `json:"clip_id"`
	Name   string  `json:"name"`
	Left   float64 `json:"left"`
}

// Markers returns one marker per clip, or none while the duration is unknown.
func Markers(list []clips.Clip, duration float64) []Marker {
	out := []Marker{}
	if duration <= 0 {
		return out
	}
	for _, c := range list {
		out = append(out, Marker{
			ClipID: c.ID,
			Name:   c.Name,
			Left:   c.Start / duration * 100,
		})
	}
	return out
}
