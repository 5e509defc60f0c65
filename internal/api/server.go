package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/editor"
	"github.com/markerdeck/markerdeck/internal/session"
	"github.com/markerdeck/markerdeck/internal/stash"
	"github.com/markerdeck/markerdeck/internal/wall"
)

// MediaService proxies upstream media.
type MediaService interface {
	Stream(w http.ResponseWriter, r *http.Request, sceneID string) error
	SceneScreenshot(w http.ResponseWriter, r *http.Request, sceneID string, width int) error
	MarkerScreenshot(w http.ResponseWriter, r *http.Request, sceneID, markerID string, width int) error
}

// EventHub publishes editor events and serves the websocket endpoint.
type EventHub interface {
	editor.Publisher
	Handler(checkOrigin func(r *http.Request) bool) http.HandlerFunc
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Host           string
	Port           int
	Version        string
	CatalogService catalog.CatalogService
	Stash          stash.Client
	Media          MediaService
	Events         EventHub
	Sessions       *session.Registry[*editor.Session]
	Walls          *session.Registry[*wall.Wall]
	Editor         editor.SessionConfig
	Runner         *catalog.Runner
	AllowedOrigins []string
	Logger         *slog.Logger
	StartTime      time.Time
	// WallSeed supplies shuffle seeds for new walls. Defaults to the clock.
	WallSeed func() uint64
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Streams and websockets are long-lived.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
