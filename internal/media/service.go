// Package media proxies scene streams and screenshots from the upstream
// server. Screenshots are resized on request and cached on disk.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"golang.org/x/sync/singleflight"

	"github.com/markerdeck/markerdeck/internal/stash"
)

// MaxWidth bounds the width a screenshot can be resized to.
const MaxWidth = 1920

var (
	ErrInvalidID    = errors.New("invalid media id")
	ErrInvalidWidth = errors.New("invalid width")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// forwarded response headers for the stream proxy.
var streamHeaders = []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges", "Last-Modified", "ETag"}

type Service struct {
	endpoints stash.EndpointSource
	client    *http.Client
	cacheDir  string
	logger    *slog.Logger
	fetches   singleflight.Group
	maxBytes  int64
}

// NewService creates a media proxy. The client should carry no overall
// timeout, since streams are long-lived; request contexts bound them.
func NewService(endpoints stash.EndpointSource, client *http.Client, cacheDir string, logger *slog.Logger) *Service {
	if client == nil {
		client = &http.Client{}
	}
	return &Service{
		endpoints: endpoints,
		client:    client,
		cacheDir:  cacheDir,
		logger:    logger,
		maxBytes:  maxScreenshotBytes,
	}
}

// Stream proxies the scene's video stream, forwarding the Range header.
func (s *Service) Stream(w http.ResponseWriter, r *http.Request, sceneID string) error {
	if !idPattern.MatchString(sceneID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, sceneID)
	}

	resp, err := s.get(r.Context(), "/scene/"+url.PathEscape(sceneID)+"/stream", r.Header.Get("Range"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("scene %s stream: %w", sceneID, stash.ErrNotFound)
	}
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &stash.RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	for _, k := range streamHeaders {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// The client usually went away mid-stream.
		s.logger.Debug("stream copy ended", "scene_id", sceneID, "error", err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, path, rangeHeader string) (*http.Response, error) {
	ep, err := s.endpoints.Endpoint(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.Resolve(path), nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	if ep.APIKey != "" {
		req.Header.Set("ApiKey", ep.APIKey)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media request %s: %w: %w", path, stash.ErrUnavailable, err)
	}
	return resp, nil
}
