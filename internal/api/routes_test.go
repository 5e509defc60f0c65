package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/markerdeck/markerdeck/internal/browse"
	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/media"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, rr, http.StatusOK)

	var resp HealthResponse
	decodeInto(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.UptimeS < 10 {
		t.Errorf("uptime_s = %d, want >= 10", resp.UptimeS)
	}
	if !resp.StashConfigured {
		t.Error("expected stash_configured when a default server is set")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPut, "/api/settings", map[string]string{catalog.SettingThemeMode: "neon"})
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodPut, "/api/settings", map[string]string{catalog.SettingThemeMode: "dark"})
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/settings", nil)
	expectStatus(t, rr, http.StatusOK)
	var resp SettingsResponse
	decodeInto(t, rr, &resp)
	if resp.Settings[catalog.SettingThemeMode] != "dark" {
		t.Errorf("theme = %q, want dark", resp.Settings[catalog.SettingThemeMode])
	}
}

func TestActorEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/actors", ImportActorRequest{PerformerID: "p1"})
	expectStatus(t, rr, http.StatusCreated)
	rr = env.do(t, http.MethodPost, "/api/actors", ImportActorRequest{PerformerID: "p2"})
	expectStatus(t, rr, http.StatusCreated)

	rr = env.do(t, http.MethodPost, "/api/actors", ImportActorRequest{PerformerID: "nobody"})
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = env.do(t, http.MethodGet, "/api/actors", nil)
	expectStatus(t, rr, http.StatusOK)
	var list ActorsResponse
	decodeInto(t, rr, &list)
	if len(list.Actors) != 2 || list.Actors[0].Name != "alex Doe" {
		t.Fatalf("unexpected actor order: %+v", list.Actors)
	}

	rr = env.do(t, http.MethodGet, "/api/actors?q=JANE", nil)
	decodeInto(t, rr, &list)
	if len(list.Actors) != 1 || list.Actors[0].ID != "p1" {
		t.Fatalf("filter by name: %+v", list.Actors)
	}

	rr = env.do(t, http.MethodGet, "/api/actors/p1", nil)
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodDelete, "/api/actors/p1", nil)
	expectStatus(t, rr, http.StatusNoContent)

	rr = env.do(t, http.MethodGet, "/api/actors/p1", nil)
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestImportActorRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/actors", map[string]string{"performer": "p1"})
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")
}

func createPlaylist(t *testing.T, env *testEnv, name string, items int) *catalog.Playlist {
	t.Helper()

	rr := env.do(t, http.MethodPost, "/api/playlists", CreatePlaylistRequest{Name: name})
	expectStatus(t, rr, http.StatusCreated)
	var p catalog.Playlist
	decodeInto(t, rr, &p)

	if items > 0 {
		req := AddItemsRequest{}
		for i := range items {
			end := float64(i*60 + 15)
			req.Items = append(req.Items, catalog.ItemPayload{
				ID:           fmt.Sprintf("m%d", i+1),
				Title:        fmt.Sprintf("Clip %d", i+1),
				SceneID:      "s1",
				StartSeconds: float64(i * 60),
				EndSeconds:   &end,
			})
		}
		rr = env.do(t, http.MethodPost, "/api/playlists/"+p.ID+"/items", req)
		expectStatus(t, rr, http.StatusOK)
		decodeInto(t, rr, &p)
	}
	return &p
}

func TestPlaylistEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/playlists", CreatePlaylistRequest{Name: "  "})
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	p := createPlaylist(t, env, "Favourites", 3)
	if len(p.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(p.Items))
	}

	rr = env.do(t, http.MethodGet, "/api/playlists", nil)
	expectStatus(t, rr, http.StatusOK)
	var list PlaylistsResponse
	decodeInto(t, rr, &list)
	if len(list.Playlists) != 1 {
		t.Fatalf("playlists = %d, want 1", len(list.Playlists))
	}

	rr = env.do(t, http.MethodDelete, "/api/playlists/"+p.ID+"/items", RemoveItemsRequest{ItemIDs: []uint{p.Items[0].ID}})
	expectStatus(t, rr, http.StatusOK)
	var updated catalog.Playlist
	decodeInto(t, rr, &updated)
	if len(updated.Items) != 2 || updated.Items[0].MarkerID != "m2" {
		t.Fatalf("after remove: %+v", updated.Items)
	}

	rr = env.do(t, http.MethodDelete, "/api/playlists/"+p.ID, nil)
	expectStatus(t, rr, http.StatusNoContent)

	rr = env.do(t, http.MethodGet, "/api/playlists/"+p.ID, nil)
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestPlaylistExport(t *testing.T) {
	env := newTestEnv(t)
	p := createPlaylist(t, env, "Road Trip", 2)

	rr := env.do(t, http.MethodGet, "/api/playlists/"+p.ID+"/export?format=m3u", nil)
	expectStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	if !strings.HasPrefix(body, "#EXTM3U\n") {
		t.Errorf("m3u body does not start with header: %q", body)
	}
	if !strings.Contains(body, "http://example.com/api/media/scenes/s1/stream") {
		t.Errorf("m3u body missing absolute stream url: %q", body)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "road-trip.m3u8") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rr = env.do(t, http.MethodGet, "/api/playlists/"+p.ID+"/export", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.HasPrefix(rr.Body.String(), "TITLE: Road Trip") {
		t.Errorf("edl body = %q", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "* FROM CLIP NAME:  Clip 2") {
		t.Errorf("edl body missing clip name: %q", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/playlists/"+p.ID+"/export?format=xml", nil)
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodGet, "/api/playlists/"+p.ID+"/export?fps=500", nil)
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodGet, "/api/playlists/missing/export", nil)
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestRatingEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/items/m1/rating", nil)
	expectStatus(t, rr, http.StatusOK)
	var rating RatingResponse
	decodeInto(t, rr, &rating)
	if rating.ID != "m1" || rating.Rating != nil {
		t.Fatalf("fresh rating = %+v, want unrated", rating)
	}

	four := 4
	rr = env.do(t, http.MethodPatch, "/api/items/m1/rating", SetRatingRequest{Rating: &four})
	expectStatus(t, rr, http.StatusOK)
	decodeInto(t, rr, &rating)
	if rating.Rating == nil || *rating.Rating != 4 {
		t.Fatalf("rating = %v, want 4", rating.Rating)
	}

	nine := 9
	rr = env.do(t, http.MethodPatch, "/api/items/m1/rating", SetRatingRequest{Rating: &nine})
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodGet, "/api/items/ratings?ids=m1,m9", nil)
	expectStatus(t, rr, http.StatusOK)
	var batch RatingsResponse
	decodeInto(t, rr, &batch)
	if batch.Ratings["m1"] == nil || *batch.Ratings["m1"] != 4 {
		t.Errorf("batched m1 = %v, want 4", batch.Ratings["m1"])
	}
	if batch.Ratings["m9"] != nil {
		t.Errorf("batched m9 = %v, want nil", *batch.Ratings["m9"])
	}

	rr = env.do(t, http.MethodGet, "/api/items/ratings", nil)
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodPatch, "/api/items/m1/rating", SetRatingRequest{})
	expectStatus(t, rr, http.StatusOK)
	decodeInto(t, rr, &rating)
	if rating.Rating != nil {
		t.Errorf("cleared rating = %v, want nil", *rating.Rating)
	}
}

func TestListMarkers(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/markers", nil)
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodGet, "/api/markers?performer=p1&sort=random", nil)
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	five := 5
	if _, err := env.service.SetRating(t.Context(), "m1", &five); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	rr = env.do(t, http.MethodGet, "/api/markers?performer=p1,p2&sort=seconds", nil)
	expectStatus(t, rr, http.StatusOK)
	var page browse.Page[browse.MarkerRow]
	decodeInto(t, rr, &page)

	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0].ID != "m2" || page.Items[1].ID != "m1" {
		t.Errorf("order = %s,%s, want m2,m1", page.Items[0].ID, page.Items[1].ID)
	}
	if page.Items[1].Rating == nil || *page.Items[1].Rating != 5 {
		t.Errorf("m1 rating not merged: %v", page.Items[1].Rating)
	}
	if got := page.Items[0].Screenshot; got != "/api/media/scenes/s1/markers/m2/screenshot" {
		t.Errorf("screenshot = %q", got)
	}
	if got := env.stash.lastFilter.PerformerIDs; len(got) != 2 {
		t.Errorf("performer filter = %v, want two ids", got)
	}

	rr = env.do(t, http.MethodGet, "/api/markers?scene=s1&min_rating=3", nil)
	decodeInto(t, rr, &page)
	if page.Total != 1 || page.Items[0].ID != "m1" {
		t.Errorf("min_rating page = %+v", page.Items)
	}

	rr = env.do(t, http.MethodGet, "/api/markers?scene=s1&per_page=1&page=2&sort=title", nil)
	decodeInto(t, rr, &page)
	if page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].ID != "m1" {
		t.Errorf("paged = %+v", page)
	}

	rr = env.do(t, http.MethodGet, "/api/markers?scene=s1&page=288230376151711745", nil)
	expectStatus(t, rr, http.StatusOK)
	page = browse.Page[browse.MarkerRow]{}
	decodeInto(t, rr, &page)
	if page.Total != 2 || len(page.Items) != 0 {
		t.Errorf("far page = %+v, want empty items of 2", page)
	}
}

func TestSceneEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/scenes/s1", nil)
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/scenes/nope", nil)
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = env.do(t, http.MethodPut, "/api/scenes/s1/tags", SceneTagsRequest{TagIDs: []string{"t1", "t2"}})
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodPut, "/api/scenes/nope/tags", SceneTagsRequest{TagIDs: []string{"t1"}})
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = env.do(t, http.MethodGet, "/api/tags", nil)
	expectStatus(t, rr, http.StatusOK)
	var tags TagsResponse
	decodeInto(t, rr, &tags)
	if len(tags.Tags) != 2 || tags.Tags[0].Name != "night" {
		t.Errorf("tags = %+v, want collated order", tags.Tags)
	}
}

func TestMediaEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/media/scenes/s1/stream", nil)
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/media/scenes/s1/markers/m1/screenshot?width=320", nil)
	expectStatus(t, rr, http.StatusOK)

	env.media.mu.Lock()
	calls := append([]mediaCall(nil), env.media.calls...)
	env.media.mu.Unlock()
	if len(calls) != 2 {
		t.Fatalf("media calls = %d, want 2", len(calls))
	}
	if calls[1] != (mediaCall{kind: "marker", sceneID: "s1", markerID: "m1", width: 320}) {
		t.Errorf("marker call = %+v", calls[1])
	}

	env.media.err = media.ErrInvalidWidth
	rr = env.do(t, http.MethodGet, "/api/media/scenes/s1/screenshot?width=99999", nil)
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")
}

func TestWallEndpoints(t *testing.T) {
	env := newTestEnv(t)
	p := createPlaylist(t, env, "Wall", 6)

	rr := env.do(t, http.MethodPost, "/api/wall", StartWallRequest{PlaylistID: p.ID})
	expectStatus(t, rr, http.StatusCreated)
	var w WallResponse
	decodeInto(t, rr, &w)
	if w.Clips != 6 || len(w.Slots) != 4 {
		t.Fatalf("wall = %+v", w)
	}

	rr = env.do(t, http.MethodPost, "/api/wall/"+w.ID+"/tiles/2/next", nil)
	expectStatus(t, rr, http.StatusOK)
	var tile TileResponse
	decodeInto(t, rr, &tile)
	if tile.Tile != 2 {
		t.Errorf("tile = %d, want 2", tile.Tile)
	}
	for _, s := range w.Slots {
		if s.Tile != 2 && s.Clip.MarkerID == tile.Clip.MarkerID {
			t.Errorf("clip %s already on tile %d", tile.Clip.MarkerID, s.Tile)
		}
	}

	rr = env.do(t, http.MethodGet, "/api/wall/"+w.ID, nil)
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodPost, "/api/wall/"+w.ID+"/tiles/7/next", nil)
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodPost, "/api/wall/missing/tiles/0/next", nil)
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")

	empty := createPlaylist(t, env, "Empty", 0)
	rr = env.do(t, http.MethodPost, "/api/wall", StartWallRequest{PlaylistID: empty.ID})
	expectCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodPost, "/api/wall", StartWallRequest{PlaylistID: "missing"})
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestWallSeedIsReproducible(t *testing.T) {
	env := newTestEnv(t)
	p := createPlaylist(t, env, "Seeded", 10)

	seed := uint64(1234)
	var first, second WallResponse
	decodeInto(t, env.do(t, http.MethodPost, "/api/wall", StartWallRequest{PlaylistID: p.ID, Seed: &seed}), &first)
	decodeInto(t, env.do(t, http.MethodPost, "/api/wall", StartWallRequest{PlaylistID: p.ID, Seed: &seed}), &second)

	for i := range first.Slots {
		if first.Slots[i].Clip.MarkerID != second.Slots[i].Clip.MarkerID {
			t.Fatalf("slot %d differs between walls with the same seed", i)
		}
	}
}

func TestJobEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/maintenance/backup", nil)
	expectStatus(t, rr, http.StatusAccepted)
	var job JobResponse
	decodeInto(t, rr, &job)
	if job.Type != catalog.JobTypeBackup || job.Status != catalog.JobStatusPending {
		t.Fatalf("job = %+v", job)
	}

	rr = env.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil)
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/jobs?limit=5", nil)
	expectStatus(t, rr, http.StatusOK)
	var jobs JobsResponse
	decodeInto(t, rr, &jobs)
	if len(jobs.Jobs) != 1 {
		t.Errorf("jobs = %d, want 1", len(jobs.Jobs))
	}

	rr = env.do(t, http.MethodGet, "/api/jobs/missing", nil)
	expectCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestEventsOriginCheck(t *testing.T) {
	env := newTestEnv(t)

	req := func(origin string) int {
		r, _ := http.NewRequest(http.MethodGet, "/api/events?scene=s1", nil)
		r.Host = "markerdeck.local:8080"
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, r)
		return rr.Code
	}

	if got := req("http://evil.example.com"); got != http.StatusForbidden {
		t.Errorf("foreign origin = %d, want 403", got)
	}
	if got := req("http://localhost:3000"); got != http.StatusNotImplemented {
		t.Errorf("allowed origin = %d, want pass-through", got)
	}
	if got := req("http://markerdeck.local:8080"); got != http.StatusNotImplemented {
		t.Errorf("same origin = %d, want pass-through", got)
	}
	if got := req(""); got != http.StatusNotImplemented {
		t.Errorf("no origin = %d, want pass-through", got)
	}
}
