package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/markerdeck/markerdeck/internal/catalog"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api", func(r chi.Router) {
		r.Get("/actors", listActorsHandler(cfg))
		r.Post("/actors", importActorHandler(cfg))
		r.Get("/actors/{id}", getActorHandler(cfg))
		r.Delete("/actors/{id}", deleteActorHandler(cfg))
		r.Get("/performers", listPerformersHandler(cfg))

		r.Get("/settings", getSettingsHandler(cfg))
		r.Put("/settings", updateSettingsHandler(cfg))

		r.Get("/playlists", listPlaylistsHandler(cfg))
		r.Post("/playlists", createPlaylistHandler(cfg))
		r.Get("/playlists/{id}", getPlaylistHandler(cfg))
		r.Delete("/playlists/{id}", deletePlaylistHandler(cfg))
		r.Post("/playlists/{id}/items", addPlaylistItemsHandler(cfg))
		r.Delete("/playlists/{id}/items", removePlaylistItemsHandler(cfg))
		r.Get("/playlists/{id}/export", exportPlaylistHandler(cfg))

		r.Get("/items/ratings", batchRatingsHandler(cfg))
		r.Get("/items/{id}/rating", getRatingHandler(cfg))
		r.Patch("/items/{id}/rating", setRatingHandler(cfg))

		r.Get("/scenes/{id}", getSceneHandler(cfg))
		r.Put("/scenes/{id}/tags", updateSceneTagsHandler(cfg))
		r.Post("/scenes/{id}/edit", openEditHandler(cfg))
		r.Get("/markers", listMarkersHandler(cfg))
		r.Get("/tags", listTagsHandler(cfg))

		r.Route("/edit/{session}", func(r chi.Router) {
			r.Get("/", getEditHandler(cfg))
			r.Delete("/", closeEditHandler(cfg))
			r.Post("/drafts", addDraftHandler(cfg))
			r.Patch("/drafts/{ref}", patchDraftHandler(cfg))
			r.Post("/drafts/{ref}/discard", discardDraftHandler(cfg))
			r.Post("/drafts/{ref}/save", saveDraftHandler(cfg))
			r.Post("/drafts/{ref}/delete", deleteDraftHandler(cfg))
			r.Post("/delete/confirm", confirmDeleteHandler(cfg))
			r.Post("/delete/cancel", cancelDeleteHandler(cfg))
			r.Post("/save", saveAllHandler(cfg))
			r.Post("/refresh", refreshEditHandler(cfg))
			r.Post("/player", playerHandler(cfg))
		})

		r.Get("/media/scenes/{id}/stream", streamHandler(cfg))
		r.Get("/media/scenes/{id}/screenshot", sceneScreenshotHandler(cfg))
		r.Get("/media/scenes/{id}/markers/{marker}/screenshot", markerScreenshotHandler(cfg))

		r.Post("/wall", startWallHandler(cfg))
		r.Get("/wall/{id}", getWallHandler(cfg))
		r.Post("/wall/{id}/tiles/{tile}/next", nextTileHandler(cfg))

		r.Post("/maintenance/backup", enqueueJobHandler(cfg, catalog.JobTypeBackup))
		r.Post("/maintenance/refresh", enqueueJobHandler(cfg, catalog.JobTypeRefreshActors))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))

		if cfg.Events != nil {
			r.Get("/events", cfg.Events.Handler(func(req *http.Request) bool {
				origin := req.Header.Get("Origin")
				return origin == "" || isAllowedOrigin(origin, cfg.AllowedOrigins) || sameOrigin(req)
			}))
		}
	})

	return r
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	_, host, ok := strings.Cut(origin, "://")
	return ok && strings.EqualFold(host, r.Host)
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		}
		if cfg.Runner != nil {
			resp.ActiveJobs = cfg.Runner.GetActiveJobCount(r.Context())
			resp.RunnerPaused = cfg.Runner.IsPaused()
		}
		if cfg.Sessions != nil {
			resp.EditSessions = cfg.Sessions.Len()
		}
		if cfg.CatalogService != nil {
			_, err := cfg.CatalogService.Endpoint(r.Context())
			resp.StashConfigured = err == nil
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		jobs, err := cfg.CatalogService.ListJobs(r.Context(), limit)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.CatalogService.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func enqueueJobHandler(cfg ServerConfig, jobType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.CatalogService.EnqueueJob(r.Context(), jobType)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

// queryInt parses an integer query parameter, returning def when it is
// absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// queryList splits a comma-separated query parameter, dropping blanks.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
