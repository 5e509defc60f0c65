package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/db"
	"github.com/markerdeck/markerdeck/internal/editor"
	"github.com/markerdeck/markerdeck/internal/session"
	"github.com/markerdeck/markerdeck/internal/stash"
	"github.com/markerdeck/markerdeck/internal/wall"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	handler http.Handler
	stash   *fakeStash
	media   *fakeMedia
	events  *recordingHub
	service *catalog.Service
	cfg     ServerConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.New(db.Options{Driver: db.DriverSQLite, Path: filepath.Join(t.TempDir(), "api.db")}, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := database.Migrate(catalog.Models()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	fs := newFakeStash()
	svc := catalog.NewService(catalog.NewRepository(database.Conn()), fs, catalog.Defaults{StashServer: "http://stash.test"}, testLogger())

	sessions := session.NewRegistry[*editor.Session]("edit", time.Hour, testLogger())
	walls := session.NewRegistry[*wall.Wall]("wall", time.Hour, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go sessions.Run(ctx)
	t.Cleanup(cancel)

	env := &testEnv{
		stash:   fs,
		media:   &fakeMedia{},
		events:  &recordingHub{},
		service: svc,
	}
	env.cfg = ServerConfig{
		Version:        "test",
		CatalogService: svc,
		Stash:          fs,
		Media:          env.media,
		Events:         env.events,
		Sessions:       sessions,
		Walls:          walls,
		Editor:         editor.SessionConfig{RefetchDelay: time.Hour, RequirePrimaryTag: true},
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         testLogger(),
		StartTime:      time.Now().Add(-10 * time.Second),
		WallSeed:       func() uint64 { return 7 },
	}
	env.handler = NewRouter(env.cfg)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", rr.Code, want, rr.Body.String())
	}
}

func expectCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	if got := decodeJSONBody(t, rr)["code"]; got != code {
		t.Fatalf("code = %v, want %s", got, code)
	}
}

func f64(v float64) *float64 { return &v }

// fakeStash is an in-memory upstream server.
type fakeStash struct {
	mu         sync.Mutex
	scenes     map[string]*stash.Scene
	performers map[string]*stash.Performer
	tags       []stash.Tag
	nextID     int
	failCreate error
	lastFilter stash.MarkerFilter
}

func newFakeStash() *fakeStash {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeStash{
		scenes: map[string]*stash.Scene{
			"s1": {
				ID:    "s1",
				Title: "Beach",
				SceneMarkers: []stash.SceneMarker{
					{ID: "m1", Title: "Opening", Seconds: 30, EndSeconds: f64(40), PrimaryTag: &stash.Tag{ID: "t1", Name: "Sunset"}, Tags: []stash.Tag{{ID: "t1", Name: "Sunset"}}, CreatedAt: created},
					{ID: "m2", Title: "Closing", Seconds: 10, EndSeconds: f64(20), PrimaryTag: &stash.Tag{ID: "t2", Name: "Night"}, Tags: []stash.Tag{{ID: "t2", Name: "Night"}}, CreatedAt: created.Add(time.Hour)},
				},
			},
		},
		performers: map[string]*stash.Performer{
			"p1": {ID: "p1", Name: "Jane Roe", SceneCount: 3, SceneMarkerCount: 9},
			"p2": {ID: "p2", Name: "alex Doe", SceneCount: 1},
		},
		tags:   []stash.Tag{{ID: "t2", Name: "night"}, {ID: "t1", Name: "Sunset"}},
		nextID: 100,
	}
}

func (f *fakeStash) FindScene(ctx context.Context, id string) (*stash.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scenes[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.SceneMarkers = append([]stash.SceneMarker(nil), s.SceneMarkers...)
	return &cp, nil
}

func (f *fakeStash) FindSceneMarkers(ctx context.Context, filter stash.MarkerFilter) (*stash.MarkerPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter

	page := &stash.MarkerPage{}
	for _, s := range f.scenes {
		for _, m := range s.SceneMarkers {
			m.Scene = &stash.SceneRef{ID: s.ID, Title: s.Title}
			page.Markers = append(page.Markers, m)
		}
	}
	page.Count = len(page.Markers)
	return page, nil
}

func (f *fakeStash) FindPerformers(ctx context.Context, filter stash.FindFilter) (*stash.PerformerPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &stash.PerformerPage{}
	for _, p := range f.performers {
		page.Performers = append(page.Performers, *p)
	}
	page.Count = len(page.Performers)
	return page, nil
}

func (f *fakeStash) FindPerformer(ctx context.Context, id string) (*stash.Performer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.performers[id], nil
}

func (f *fakeStash) AllTags(ctx context.Context) ([]stash.Tag, error) {
	return append([]stash.Tag(nil), f.tags...), nil
}

func (f *fakeStash) markerFromInput(id string, in stash.MarkerInput) stash.SceneMarker {
	m := stash.SceneMarker{ID: id, Title: in.Title, Seconds: in.Seconds, EndSeconds: in.EndSeconds}
	if in.PrimaryTagID != nil {
		m.PrimaryTag = &stash.Tag{ID: *in.PrimaryTagID}
	}
	for _, t := range in.TagIDs {
		m.Tags = append(m.Tags, stash.Tag{ID: t})
	}
	return m
}

func (f *fakeStash) CreateMarker(ctx context.Context, in stash.MarkerInput) (*stash.SceneMarker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	s, ok := f.scenes[in.SceneID]
	if !ok {
		return nil, &stash.GraphQLError{Messages: []string{"scene not found"}}
	}
	f.nextID++
	m := f.markerFromInput(fmt.Sprintf("m%d", f.nextID), in)
	s.SceneMarkers = append(s.SceneMarkers, m)
	return &m, nil
}

func (f *fakeStash) UpdateMarker(ctx context.Context, id string, in stash.MarkerInput) (*stash.SceneMarker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scenes {
		for i := range s.SceneMarkers {
			if s.SceneMarkers[i].ID == id {
				s.SceneMarkers[i] = f.markerFromInput(id, in)
				m := s.SceneMarkers[i]
				return &m, nil
			}
		}
	}
	return nil, &stash.GraphQLError{Messages: []string{"marker not found"}}
}

func (f *fakeStash) DestroyMarker(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scenes {
		for i, m := range s.SceneMarkers {
			if m.ID == id {
				s.SceneMarkers = append(s.SceneMarkers[:i], s.SceneMarkers[i+1:]...)
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStash) UpdateSceneTags(ctx context.Context, sceneID string, tagIDs []string) (*stash.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scenes[sceneID]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", sceneID, stash.ErrNotFound)
	}
	s.Tags = nil
	for _, id := range tagIDs {
		s.Tags = append(s.Tags, stash.Tag{ID: id})
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStash) markerCount(sceneID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scenes[sceneID].SceneMarkers)
}

type mediaCall struct {
	kind     string
	sceneID  string
	markerID string
	width    int
}

type fakeMedia struct {
	mu    sync.Mutex
	calls []mediaCall
	err   error
}

func (f *fakeMedia) record(c mediaCall, w http.ResponseWriter) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(c.kind))
	return nil
}

func (f *fakeMedia) Stream(w http.ResponseWriter, r *http.Request, sceneID string) error {
	return f.record(mediaCall{kind: "stream", sceneID: sceneID}, w)
}

func (f *fakeMedia) SceneScreenshot(w http.ResponseWriter, r *http.Request, sceneID string, width int) error {
	return f.record(mediaCall{kind: "scene", sceneID: sceneID, width: width}, w)
}

func (f *fakeMedia) MarkerScreenshot(w http.ResponseWriter, r *http.Request, sceneID, markerID string, width int) error {
	return f.record(mediaCall{kind: "marker", sceneID: sceneID, markerID: markerID, width: width}, w)
}

type published struct {
	sceneID string
	kind    string
}

type recordingHub struct {
	mu     sync.Mutex
	events []published
}

func (h *recordingHub) Publish(sceneID, kind string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, published{sceneID: sceneID, kind: kind})
}

func (h *recordingHub) Handler(checkOrigin func(r *http.Request) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			WriteError(w, http.StatusForbidden, "origin not allowed", "FORBIDDEN")
			return
		}
		WriteError(w, http.StatusNotImplemented, "websocket not available in tests", "NOT_IMPLEMENTED")
	}
}

func (h *recordingHub) kinds() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.kind)
	}
	return out
}

var errBoom = errors.New("boom")
