package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/heimdex/clipmark-agent/internal/playback"
)

const intentTimeout = 2 * time.Second

func playbackStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, PlaybackResponse{
			Status:  cfg.Playback.Status(),
			Running: cfg.Playback.IsRunning(),
		})
	}
}

func advanceHandler(cfg ServerConfig) http.HandlerFunc {
	return intentHandler(cfg, cfg.Playback.Advance)
}

func retreatHandler(cfg ServerConfig) http.HandlerFunc {
	return intentHandler(cfg, cfg.Playback.Retreat)
}

func intentHandler(cfg ServerConfig, fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Playback.IsRunning() {
			WriteError(w, http.StatusServiceUnavailable, "playback controller not running", "UNAVAILABLE")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), intentTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				WriteError(w, http.StatusServiceUnavailable, "playback controller busy", "UNAVAILABLE")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, PlaybackResponse{
			Status:  cfg.Playback.Status(),
			Running: true,
		})
	}
}

// reportHandler accepts media element state from views that cannot hold a
// websocket open.
func reportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var report playback.Report
		if err := decodeJSON(r, &report); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Media.Report(report)
		w.WriteHeader(http.StatusNoContent)
	}
}
