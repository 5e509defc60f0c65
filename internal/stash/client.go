package stash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Client interface {
	FindScene(ctx context.Context, id string) (*Scene, error)
	FindSceneMarkers(ctx context.Context, filter MarkerFilter) (*MarkerPage, error)
	FindPerformers(ctx context.Context, filter FindFilter) (*PerformerPage, error)
	FindPerformer(ctx context.Context, id string) (*Performer, error)
	AllTags(ctx context.Context) ([]Tag, error)
	CreateMarker(ctx context.Context, in MarkerInput) (*SceneMarker, error)
	UpdateMarker(ctx context.Context, id string, in MarkerInput) (*SceneMarker, error)
	DestroyMarker(ctx context.Context, id string) (bool, error)
	UpdateSceneTags(ctx context.Context, sceneID string, tagIDs []string) (*Scene, error)
}

// RequestError is a non-2xx response from the upstream server.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("stash request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx)
// are considered permanent.
func (e *RequestError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// GraphQLError carries the errors array of a 200 response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "stash graphql error: " + strings.Join(e.Messages, "; ")
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// HTTPClient talks GraphQL over HTTP to a Stash-compatible server.
type HTTPClient struct {
	endpoints  EndpointSource
	httpClient *http.Client
	logger     *slog.Logger
	requests   metric.Int64Counter
}

func NewHTTPClient(endpoints EndpointSource, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	requests, err := meter().Int64Counter(
		"stash.requests",
		metric.WithDescription("Upstream GraphQL requests by operation and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}
	return &HTTPClient{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		requests:   requests,
	}, nil
}

// HTTP returns the underlying client, shared with the media proxy.
func (c *HTTPClient) HTTP() *http.Client {
	return c.httpClient
}

// Endpoints returns the endpoint source the client resolves against.
func (c *HTTPClient) Endpoints() EndpointSource {
	return c.endpoints
}

// do posts one GraphQL document and decodes data into out.
func (c *HTTPClient) do(ctx context.Context, operation, query string, vars map[string]any, out any) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}()

	ep, err := c.endpoints.Endpoint(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.GraphQLURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if ep.APIKey != "" {
		req.Header.Set("ApiKey", ep.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", operation, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RequestError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var gql graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gql); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}
		return &GraphQLError{Messages: msgs}
	}

	if c.logger != nil {
		c.logger.Debug("stash request", "operation", operation, "duration", time.Since(start))
	}

	if out == nil || len(gql.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", operation, err)
	}
	return nil
}
