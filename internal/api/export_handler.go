package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/clipmark-agent/internal/export"
	"github.com/heimdex/clipmark-agent/internal/logging"
)

// mediaDuration is the duration the player reported for the video, if it is
// the one loaded.
func mediaDuration(cfg ServerConfig, videoID string) float64 {
	if cfg.Playback == nil {
		return 0
	}
	if s := cfg.Playback.Status(); s.VideoID == videoID {
		return s.Duration
	}
	return 0
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		video, ok := cfg.Store.Snapshot().Videos[req.VideoID]
		if !ok {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = export.DefaultFrameRate
		}
		duration := req.Duration
		if duration <= 0 {
			duration = mediaDuration(cfg, video.ID)
		}

		resolved, unresolved := export.Resolve(video, req.ClipIDs, duration)
		if len(resolved) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no clips could be resolved", "UNRESOLVABLE_CLIPS")
			return
		}

		projectName := export.ProjectFileName(req.ProjectName)
		edl := export.GenerateEDL(resolved, projectName, frameRate)
		outputPath := filepath.Join(req.OutputDir, projectName+".edl")
		if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
			cfg.Logger.Error("failed to write export file", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("exported edl", "video_id", video.ID, "path", logging.SanitizePath(outputPath), "clips", len(resolved), "unresolved", len(unresolved))
		WriteJSON(w, http.StatusOK, export.Response{
			Status:          "ok",
			Format:          "edl",
			OutputPath:      outputPath,
			ClipCount:       len(resolved),
			UnresolvedClips: unresolved,
		})
	}
}

// downloadEDLHandler renders every clip of a video as an EDL attachment.
// Query: fps, duration, project.
func downloadEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, ok := cfg.Store.Snapshot().Videos[chi.URLParam(r, "id")]
		if !ok {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		q := r.URL.Query()
		frameRate := export.DefaultFrameRate
		if v := q.Get("fps"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				WriteError(w, http.StatusBadRequest, "fps must be a positive number", "BAD_REQUEST")
				return
			}
			frameRate = f
		}
		duration := mediaDuration(cfg, video.ID)
		if v := q.Get("duration"); v != "" {
			d, err := strconv.ParseFloat(v, 64)
			if err != nil || d < 0 {
				WriteError(w, http.StatusBadRequest, "duration must be a non-negative number", "BAD_REQUEST")
				return
			}
			duration = d
		}

		resolved, _ := export.Resolve(video, nil, duration)
		if len(resolved) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no clips could be resolved", "UNRESOLVABLE_CLIPS")
			return
		}

		project := q.Get("project")
		if project == "" {
			project = video.Name
		}
		projectName := export.ProjectFileName(project)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", projectName+".edl"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(export.GenerateEDL(resolved, projectName, frameRate)))
	}
}
