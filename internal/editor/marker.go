package editor

import "context"

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Marker is the server's view of a scene marker.
type Marker struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Seconds    float64  `json:"seconds"`
	EndSeconds *float64 `json:"end_seconds"`
	PrimaryTag *Tag     `json:"primary_tag"`
	Tags       []Tag    `json:"tags"`
}

// MarkerInput is what create and update mutations send. TagIDs is always
// normalized to include PrimaryTagID.
type MarkerInput struct {
	SceneID      string
	Title        string
	Seconds      float64
	EndSeconds   *float64
	PrimaryTagID *string
	TagIDs       []string
}

// Upstream is the remote marker service the store saves to.
type Upstream interface {
	SceneMarkers(ctx context.Context, sceneID string) ([]Marker, error)
	CreateMarker(ctx context.Context, in MarkerInput) (Marker, error)
	UpdateMarker(ctx context.Context, id string, in MarkerInput) (Marker, error)
	DestroyMarker(ctx context.Context, id string) (bool, error)
}
