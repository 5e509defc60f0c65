package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markerdeck/markerdeck/internal/browse"
	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/stash"
)

func listActorsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actors, err := cfg.CatalogService.ListActors(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		name := func(a *catalog.Actor) string { return a.Name }
		actors = browse.FilterByName(actors, name, r.URL.Query().Get("q"))
		browse.SortByName(actors, name, r.URL.Query().Get("sort") == "-name")
		if actors == nil {
			actors = []*catalog.Actor{}
		}
		WriteJSON(w, http.StatusOK, ActorsResponse{Actors: actors})
	}
}

func importActorHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportActorRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		actor, err := cfg.CatalogService.ImportActor(r.Context(), req.PerformerID)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, actor)
	}
}

func getActorHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := cfg.CatalogService.GetActor(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if actor == nil {
			WriteError(w, http.StatusNotFound, "actor not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, actor)
	}
}

func deleteActorHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.CatalogService.RemoveActor(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listPerformersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := stash.FindFilter{
			Q:       r.URL.Query().Get("q"),
			Page:    max(queryInt(r, "page", 1), 1),
			PerPage: min(max(queryInt(r, "per_page", browse.DefaultPerPage), 1), browse.MaxPerPage),
		}
		page, err := cfg.Stash.FindPerformers(r.Context(), filter)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, page)
	}
}

func getSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := cfg.CatalogService.Settings(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
	}
}

func updateSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var values map[string]string
		if err := decodeJSON(w, r, &values); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if err := cfg.CatalogService.UpdateSettings(r.Context(), values); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		settings, err := cfg.CatalogService.Settings(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
	}
}

func listPlaylistsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playlists, err := cfg.CatalogService.ListPlaylists(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if playlists == nil {
			playlists = []*catalog.Playlist{}
		}
		WriteJSON(w, http.StatusOK, PlaylistsResponse{Playlists: playlists})
	}
}

func createPlaylistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePlaylistRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		p, err := cfg.CatalogService.CreatePlaylist(r.Context(), req.Name, req.Description)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, p)
	}
}

func getPlaylistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadPlaylist(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

// loadPlaylist fetches the playlist named by the id URL parameter, writing
// the error response when it cannot.
func loadPlaylist(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*catalog.Playlist, bool) {
	p, err := cfg.CatalogService.GetPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, cfg.Logger, err)
		return nil, false
	}
	if p == nil {
		WriteError(w, http.StatusNotFound, "playlist not found", "NOT_FOUND")
		return nil, false
	}
	return p, true
}

func deletePlaylistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.CatalogService.DeletePlaylist(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addPlaylistItemsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddItemsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		p, err := cfg.CatalogService.AddPlaylistItems(r.Context(), chi.URLParam(r, "id"), req.Items)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func removePlaylistItemsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RemoveItemsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		p, err := cfg.CatalogService.RemovePlaylistItems(r.Context(), chi.URLParam(r, "id"), req.ItemIDs)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func getRatingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := cfg.CatalogService.GetRating(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, RatingResponse{ID: it.ID, Rating: it.Rating})
	}
}

func setRatingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetRatingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		it, err := cfg.CatalogService.SetRating(r.Context(), chi.URLParam(r, "id"), req.Rating)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, RatingResponse{ID: it.ID, Rating: it.Rating})
	}
}

func batchRatingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := queryList(r, "ids")
		if len(ids) == 0 {
			WriteError(w, http.StatusBadRequest, "ids is required", "BAD_REQUEST")
			return
		}
		if len(ids) > browse.MaxPerPage {
			WriteError(w, http.StatusBadRequest, "too many ids", "BAD_REQUEST")
			return
		}
		ratings, err := cfg.CatalogService.Ratings(r.Context(), ids)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, RatingsResponse{Ratings: ratings})
	}
}
