package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/clipmark-agent/internal/clips"
)

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, VideosToResponse(cfg.Store.Snapshot()))
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Store.Snapshot()
		video, ok := snap.Videos[chi.URLParam(r, "id")]
		if !ok {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(video, snap.CurrentVideoID))
	}
}

func createVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		req.Name = strings.TrimSpace(req.Name)
		if req.URL == "" {
			WriteError(w, http.StatusBadRequest, "url is required", "BAD_REQUEST")
			return
		}
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}
		if req.Icon == "" {
			req.Icon = clips.Icons[0]
		}

		id := clips.NewVideoID()
		snap := cfg.Store.AddVideo(id, req.URL, req.Name, req.Icon)
		WriteJSON(w, http.StatusCreated, VideoToResponse(snap.Videos[id], snap.CurrentVideoID))
	}
}

func deleteVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := cfg.Store.Snapshot().Videos[id]; !ok {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Store.DeleteVideo(id)))
	}
}

func setCurrentVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetCurrentVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if _, ok := cfg.Store.Snapshot().Videos[req.VideoID]; !ok {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Store.SetCurrentVideo(req.VideoID)))
	}
}
