package api

import (
	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/playback"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type StateResponse struct {
	Videos         map[string]VideoResponse `json:"videos"`
	CurrentVideoID *string                  `json:"currentVideoId"`
}

type VideoResponse struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	Name          string         `json:"name"`
	Icon          string         `json:"icon"`
	Clips         []ClipResponse `json:"clips"`
	CurrentClipID string         `json:"currentClipId"`
	IsCurrent     bool           `json:"isCurrent"`
}

type VideosResponse struct {
	Videos         []VideoResponse `json:"videos"`
	CurrentVideoID *string         `json:"currentVideoId"`
}

type ClipResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Start     float64  `json:"start"`
	End       *float64 `json:"end"`
	Tags      []string `json:"tags"`
	IsDefault bool     `json:"isDefault"`
	StartText string   `json:"startText"`
	EndText   string   `json:"endText"`
	IsCurrent bool     `json:"isCurrent"`
}

type ClipsResponse struct {
	VideoID       string         `json:"video_id"`
	CurrentClipID string         `json:"currentClipId"`
	Clips         []ClipResponse `json:"clips"`
}

type CreateVideoRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type SetCurrentVideoRequest struct {
	VideoID string `json:"video_id"`
}

// ClipRequest creates or replaces a clip. Tags may be given as a list or as
// the raw comma separated text of a form field.
type ClipRequest struct {
	Name     string   `json:"name"`
	Start    *float64 `json:"start"`
	End      *float64 `json:"end"`
	Tags     []string `json:"tags"`
	TagsText string   `json:"tags_text"`
}

type SetCurrentClipRequest struct {
	ClipID string `json:"clip_id"`
}

type RouteResponse struct {
	Path string `json:"path"`
	View string `json:"view"`
}

type RoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

type PlaybackResponse struct {
	playback.Status
	Running bool `json:"running"`
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func ClipToResponse(c clips.Clip, currentID string) ClipResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	endText := "end"
	if c.HasEnd() {
		endText = clips.FormatTime(c.End)
	}
	return ClipResponse{
		ID:        c.ID,
		Name:      c.Name,
		Start:     c.Start,
		End:       c.End,
		Tags:      tags,
		IsDefault: c.IsDefault,
		StartText: clips.FormatTime(&c.Start),
		EndText:   endText,
		IsCurrent: c.ID == currentID,
	}
}

func ClipsToResponse(list []clips.Clip, currentID string) []ClipResponse {
	out := make([]ClipResponse, len(list))
	for i, c := range list {
		out[i] = ClipToResponse(c, currentID)
	}
	return out
}

func VideoToResponse(v clips.Video, currentVideoID string) VideoResponse {
	return VideoResponse{
		ID:            v.ID,
		URL:           v.URL,
		Name:          v.Name,
		Icon:          v.IconOrDefault(),
		Clips:         ClipsToResponse(v.Clips, v.CurrentClipID),
		CurrentClipID: v.CurrentClipID,
		IsCurrent:     v.ID == currentVideoID,
	}
}

func StateToResponse(s clips.Snapshot) StateResponse {
	resp := StateResponse{
		Videos:         make(map[string]VideoResponse, len(s.Videos)),
		CurrentVideoID: nullableID(s.CurrentVideoID),
	}
	for id, v := range s.Videos {
		resp.Videos[id] = VideoToResponse(v, s.CurrentVideoID)
	}
	return resp
}

// VideosToResponse lists videos in ascending id order, i.e. creation order
// for generated ids.
func VideosToResponse(s clips.Snapshot) VideosResponse {
	ids := s.VideoIDs()
	resp := VideosResponse{
		Videos:         make([]VideoResponse, len(ids)),
		CurrentVideoID: nullableID(s.CurrentVideoID),
	}
	for i, id := range ids {
		resp.Videos[i] = VideoToResponse(s.Videos[id], s.CurrentVideoID)
	}
	return resp
}
