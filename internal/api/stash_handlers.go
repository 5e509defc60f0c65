package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/markerdeck/markerdeck/internal/browse"
	"github.com/markerdeck/markerdeck/internal/stash"
)

func getSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scene, err := cfg.Stash.FindScene(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if scene == nil {
			WriteError(w, http.StatusNotFound, "scene not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, scene)
	}
}

func updateSceneTagsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneTagsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		scene, err := cfg.Stash.UpdateSceneTags(r.Context(), chi.URLParam(r, "id"), req.TagIDs)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, scene)
	}
}

func listTagsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := cfg.Stash.AllTags(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		name := func(t stash.Tag) string { return t.Name }
		tags = browse.FilterByName(tags, name, r.URL.Query().Get("q"))
		browse.SortByName(tags, name, false)
		if tags == nil {
			tags = []stash.Tag{}
		}
		WriteJSON(w, http.StatusOK, TagsResponse{Tags: tags})
	}
}

// listMarkersHandler fetches markers for the requested performers, tags or
// scenes, merges local ratings, then filters, sorts and paginates locally.
func listMarkersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := stash.MarkerFilter{
			PerformerIDs: queryList(r, "performer"),
			TagIDs:       queryList(r, "tags"),
			SceneIDs:     queryList(r, "scene"),
		}
		if len(filter.PerformerIDs)+len(filter.TagIDs)+len(filter.SceneIDs) == 0 {
			WriteError(w, http.StatusBadRequest, "one of performer, tags or scene is required", "BAD_REQUEST")
			return
		}
		criteria := browse.Criteria{
			Query:     q.Get("q"),
			MinRating: queryInt(r, "min_rating", 0),
			Sort:      q.Get("sort"),
			Desc:      queryBool(r, "desc"),
		}
		if !browse.ValidSort(criteria.Sort) {
			WriteError(w, http.StatusBadRequest, "unknown sort key", "BAD_REQUEST")
			return
		}

		page, err := cfg.Stash.FindSceneMarkers(r.Context(), filter)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		rows := make([]browse.MarkerRow, 0, len(page.Markers))
		ids := make([]string, 0, len(page.Markers))
		for _, m := range page.Markers {
			rows = append(rows, markerRow(m))
			ids = append(ids, m.ID)
		}
		if len(ids) > 0 {
			ratings, err := cfg.CatalogService.Ratings(r.Context(), ids)
			if err != nil {
				writeServiceError(w, cfg.Logger, err)
				return
			}
			for i := range rows {
				rows[i].Rating = ratings[rows[i].ID]
			}
		}

		rows = browse.FilterSort(rows, criteria)
		WriteJSON(w, http.StatusOK, browse.Paginate(rows, queryInt(r, "page", 1), queryInt(r, "per_page", browse.DefaultPerPage)))
	}
}

// markerRow flattens an upstream marker. Media URLs point at the local
// proxy so the API key never reaches the browser.
func markerRow(m stash.SceneMarker) browse.MarkerRow {
	row := browse.MarkerRow{
		ID:         m.ID,
		Title:      m.Title,
		Seconds:    m.Seconds,
		EndSeconds: m.EndSeconds,
		TagIDs:     make([]string, 0, len(m.Tags)),
		TagNames:   make([]string, 0, len(m.Tags)+1),
		Preview:    m.Preview,
		CreatedAt:  m.CreatedAt,
	}
	if m.PrimaryTag != nil {
		row.PrimaryTagID = m.PrimaryTag.ID
		row.TagNames = append(row.TagNames, m.PrimaryTag.Name)
	}
	for _, t := range m.Tags {
		row.TagIDs = append(row.TagIDs, t.ID)
		row.TagNames = append(row.TagNames, t.Name)
	}
	if m.Scene != nil {
		row.SceneID = m.Scene.ID
		row.SceneTitle = m.Scene.Title
		scene := url.PathEscape(m.Scene.ID)
		row.Stream = "/api/media/scenes/" + scene + "/stream"
		row.Screenshot = "/api/media/scenes/" + scene + "/markers/" + url.PathEscape(m.ID) + "/screenshot"
	}
	return row
}
