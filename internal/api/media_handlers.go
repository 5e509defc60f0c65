package api

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/export"
	"github.com/markerdeck/markerdeck/internal/wall"
)

func streamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Media.Stream(w, r, chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
		}
	}
}

func sceneScreenshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.Media.SceneScreenshot(w, r, chi.URLParam(r, "id"), queryInt(r, "width", 0))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
		}
	}
}

func markerScreenshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.Media.MarkerScreenshot(w, r, chi.URLParam(r, "id"), chi.URLParam(r, "marker"), queryInt(r, "width", 0))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
		}
	}
}

func streamPath(sceneID string) string {
	return "/api/media/scenes/" + url.PathEscape(sceneID) + "/stream"
}

func exportPlaylistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadPlaylist(w, r, cfg)
		if !ok {
			return
		}

		fps := 30.0
		if v := r.URL.Query().Get("fps"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed <= 0 || parsed > 240 {
				WriteError(w, http.StatusBadRequest, "fps must be a positive number", "BAD_REQUEST")
				return
			}
			fps = parsed
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base := scheme + "://" + r.Host

		clips := make([]export.Clip, 0, len(p.Items))
		for _, it := range p.Items {
			payload := it.Payload.Data()
			clips = append(clips, export.Clip{
				Name:         payload.Title,
				Source:       base + streamPath(payload.SceneID),
				StartSeconds: payload.StartSeconds,
				EndSeconds:   payload.EndSeconds,
			})
		}

		doc, err := export.Render(r.URL.Query().Get("format"), p.Name, clips, fps)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, doc.Body)
	}
}

func wallClips(p *catalog.Playlist) []wall.Clip {
	clips := make([]wall.Clip, 0, len(p.Items))
	for _, it := range p.Items {
		payload := it.Payload.Data()
		clip := wall.Clip{
			ItemID:       it.ID,
			MarkerID:     payload.ID,
			Title:        payload.Title,
			SceneID:      payload.SceneID,
			StartSeconds: payload.StartSeconds,
			EndSeconds:   payload.EndSeconds,
		}
		if payload.SceneID != "" {
			clip.Stream = streamPath(payload.SceneID)
			clip.Screenshot = "/api/media/scenes/" + url.PathEscape(payload.SceneID) + "/markers/" + url.PathEscape(payload.ID) + "/screenshot"
		}
		clips = append(clips, clip)
	}
	return clips
}

func startWallHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartWallRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		p, err := cfg.CatalogService.GetPlaylist(r.Context(), req.PlaylistID)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if p == nil {
			WriteError(w, http.StatusNotFound, "playlist not found", "NOT_FOUND")
			return
		}

		seed := uint64(time.Now().UnixNano())
		switch {
		case req.Seed != nil:
			seed = *req.Seed
		case cfg.WallSeed != nil:
			seed = cfg.WallSeed()
		}

		wl, err := wall.NewWall(uuid.NewString(), p.ID, wallClips(p), seed)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		cfg.Walls.Put(wl.ID, wl)
		WriteJSON(w, http.StatusCreated, WallResponse{ID: wl.ID, PlaylistID: p.ID, Clips: wl.Len(), Slots: wl.Start()})
	}
}

func getWallHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wl, ok := cfg.Walls.Get(chi.URLParam(r, "id"))
		if !ok {
			WriteError(w, http.StatusNotFound, "wall not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, WallResponse{ID: wl.ID, PlaylistID: wl.PlaylistID, Clips: wl.Len(), Slots: wl.Current()})
	}
}

func nextTileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wl, ok := cfg.Walls.Get(chi.URLParam(r, "id"))
		if !ok {
			WriteError(w, http.StatusNotFound, "wall not found", "NOT_FOUND")
			return
		}
		tile, err := strconv.Atoi(chi.URLParam(r, "tile"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "tile must be a number", "BAD_REQUEST")
			return
		}
		clip, err := wl.Next(tile)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, TileResponse{Tile: tile, Clip: clip})
	}
}
