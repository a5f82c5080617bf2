package api

import (
	"encoding/json"
	"net/http"

	"github.com/heimdex/clipmark-agent/internal/realtime"
)

// wsHandler attaches a view. The first message it receives is the full
// state so it can render before any change happens.
func wsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initial, err := json.Marshal(realtime.Event{
			Type:    realtime.EventStateChanged,
			Payload: StateToResponse(cfg.Store.Snapshot()),
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to encode state", "INTERNAL_ERROR")
			return
		}
		if err := cfg.Hub.ServeWS(w, r, initial); err != nil {
			cfg.Logger.Warn("websocket upgrade failed", "error", err)
		}
	}
}
