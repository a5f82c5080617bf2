package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/clipmark-agent/internal/clips"
)

var (
	errClipNameRequired   = errors.New("name is required")
	errClipStartRequired  = errors.New("start is required")
	errClipEndRequired    = errors.New("end is required")
	errClipNegativeStart  = errors.New("start must not be negative")
	errClipEndBeforeStart = errors.New("end must not be before start")
)

// clipFromRequest validates a clip form. Every clip created through the API
// is bounded; only full-video is open-ended.
func clipFromRequest(req ClipRequest) (clips.Clip, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return clips.Clip{}, errClipNameRequired
	case req.Start == nil:
		return clips.Clip{}, errClipStartRequired
	case req.End == nil:
		return clips.Clip{}, errClipEndRequired
	case *req.Start < 0:
		return clips.Clip{}, errClipNegativeStart
	case *req.End < *req.Start:
		return clips.Clip{}, errClipEndBeforeStart
	}

	tags := clips.NormalizeTags(req.Tags)
	if len(req.Tags) == 0 && req.TagsText != "" {
		tags = clips.ParseTags(req.TagsText)
	}

	return clips.Clip{
		Name:  name,
		Start: *req.Start,
		End:   clips.Seconds(*req.End),
		Tags:  tags,
	}, nil
}

func lookupVideo(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (clips.Video, bool) {
	video, ok := cfg.Store.Snapshot().Videos[chi.URLParam(r, "id")]
	if !ok {
		WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
	}
	return video, ok
}

// listClipsHandler supports ?q= for substring search and ?where= for an
// expression filter such as `start >= 60 && "goal" in tags`.
func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, ok := lookupVideo(cfg, w, r)
		if !ok {
			return
		}

		list := video.Clips
		if where := r.URL.Query().Get("where"); where != "" {
			filtered, err := clips.Query(list, where)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
				return
			}
			list = filtered
		}
		if q := r.URL.Query().Get("q"); q != "" {
			list = clips.Filter(list, q)
		}

		WriteJSON(w, http.StatusOK, ClipsResponse{
			VideoID:       video.ID,
			CurrentClipID: video.CurrentClipID,
			Clips:         ClipsToResponse(list, video.CurrentClipID),
		})
	}
}

func createClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, ok := lookupVideo(cfg, w, r)
		if !ok {
			return
		}

		var req ClipRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		clip, err := clipFromRequest(req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		clip.ID = clips.NewClipID()

		snap, err := cfg.Store.AddClip(video.ID, clip)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		updated := snap.Videos[video.ID]
		WriteJSON(w, http.StatusCreated, ClipToResponse(clip, updated.CurrentClipID))
	}
}

func editClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, ok := lookupVideo(cfg, w, r)
		if !ok {
			return
		}
		clipID := chi.URLParam(r, "clipId")
		if clipID == clips.FullVideoClipID {
			WriteError(w, http.StatusBadRequest, "the full video clip cannot be edited", "BAD_REQUEST")
			return
		}
		if video.ClipIndex(clipID) < 0 {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		var req ClipRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		clip, err := clipFromRequest(req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		clip.ID = clipID

		snap, err := cfg.Store.EditClip(video.ID, clip)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		updated := snap.Videos[video.ID]
		if i := updated.ClipIndex(clipID); i >= 0 {
			WriteJSON(w, http.StatusOK, ClipToResponse(updated.Clips[i], updated.CurrentClipID))
			return
		}
		WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, ok := lookupVideo(cfg, w, r)
		if !ok {
			return
		}
		clipID := chi.URLParam(r, "clipId")
		if clipID == clips.FullVideoClipID {
			WriteError(w, http.StatusBadRequest, "the full video clip cannot be deleted", "BAD_REQUEST")
			return
		}
		if video.ClipIndex(clipID) < 0 {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		snap := cfg.Store.DeleteClip(video.ID, clipID)
		WriteJSON(w, http.StatusOK, VideoToResponse(snap.Videos[video.ID], snap.CurrentVideoID))
	}
}

func setCurrentClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, ok := lookupVideo(cfg, w, r)
		if !ok {
			return
		}
		var req SetCurrentClipRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if video.ClipIndex(req.ClipID) < 0 {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		snap := cfg.Store.SetCurrentClip(video.ID, req.ClipID)
		WriteJSON(w, http.StatusOK, VideoToResponse(snap.Videos[video.ID], snap.CurrentVideoID))
	}
}
