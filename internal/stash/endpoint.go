package stash

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured is returned when no upstream server URL is known.
	ErrNotConfigured = errors.New("stash server is not configured")
	ErrNotFound      = errors.New("not found upstream")
	// ErrUnavailable wraps transport failures reaching the server.
	ErrUnavailable = errors.New("stash server unreachable")
)

type Endpoint struct {
	ServerURL string
	APIKey    string
}

// GraphQLURL returns the GraphQL endpoint of the server.
func (e Endpoint) GraphQLURL() string {
	return e.ServerURL + "/graphql"
}

// Resolve turns a server-relative path into an absolute URL. Absolute
// URLs are returned unchanged.
func (e Endpoint) Resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.ServerURL + path
}

// EndpointSource supplies the upstream endpoint at call time, so settings
// changes apply without a restart.
type EndpointSource interface {
	Endpoint(ctx context.Context) (Endpoint, error)
}

type StaticEndpoint Endpoint

func (s StaticEndpoint) Endpoint(ctx context.Context) (Endpoint, error) {
	if s.ServerURL == "" {
		return Endpoint{}, ErrNotConfigured
	}
	return Endpoint{ServerURL: strings.TrimRight(s.ServerURL, "/"), APIKey: s.APIKey}, nil
}
