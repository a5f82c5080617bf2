package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Views are the front-end routes; the player/editor is "/" and the library
// is "/videos".
var Views = []RouteResponse{
	{Path: "/", View: "player"},
	{Path: "/videos", View: "library"},
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackOnlyMiddleware(cfg.Logger))
	r.Use(CORSMiddleware())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/state", stateHandler(cfg))
		r.Get("/routes", routesHandler())

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", listVideosHandler(cfg))
			r.Post("/", createVideoHandler(cfg))
			r.Put("/current", setCurrentVideoHandler(cfg))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getVideoHandler(cfg))
				r.Delete("/", deleteVideoHandler(cfg))
				r.Get("/export.edl", downloadEDLHandler(cfg))
				r.Put("/current-clip", setCurrentClipHandler(cfg))
				r.Get("/clips", listClipsHandler(cfg))
				r.Post("/clips", createClipHandler(cfg))
				r.Put("/clips/{clipId}", editClipHandler(cfg))
				r.Delete("/clips/{clipId}", deleteClipHandler(cfg))
			})
		})

		r.Get("/playback", playbackStatusHandler(cfg))
		r.Post("/playback/advance", advanceHandler(cfg))
		r.Post("/playback/retreat", retreatHandler(cfg))
		r.Post("/playback/report", reportHandler(cfg))

		r.Post("/export", exportHandler(cfg))

		r.Get("/ws", wsHandler(cfg))
		r.Get("/media/*", mediaHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Store.Snapshot()))
	}
}

func routesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, RoutesResponse{Routes: Views})
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.MediaServer.Enabled() {
			WriteError(w, http.StatusNotFound, "media directory not configured", "NOT_FOUND")
			return
		}
		name := chi.URLParam(r, "*")
		if err := cfg.MediaServer.ServeFile(w, r, name); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "name", name)
		}
	}
}
