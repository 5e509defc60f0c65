package stash

import "time"

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Performer struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ImagePath        string `json:"image_path,omitempty"`
	SceneCount       int    `json:"scene_count"`
	SceneMarkerCount int    `json:"scene_marker_count"`
}

type SceneRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ScenePaths struct {
	Stream     string `json:"stream,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

type SceneFile struct {
	Duration float64 `json:"duration"`
}

type SceneMarker struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Seconds    float64   `json:"seconds"`
	EndSeconds *float64  `json:"end_seconds"`
	PrimaryTag *Tag      `json:"primary_tag"`
	Tags       []Tag     `json:"tags"`
	Scene      *SceneRef `json:"scene,omitempty"`
	Stream     string    `json:"stream,omitempty"`
	Preview    string    `json:"preview,omitempty"`
	Screenshot string    `json:"screenshot,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Scene struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Paths        ScenePaths    `json:"paths"`
	Files        []SceneFile   `json:"files,omitempty"`
	Performers   []Performer   `json:"performers"`
	Tags         []Tag         `json:"tags"`
	SceneMarkers []SceneMarker `json:"scene_markers"`
}

// MarkerInput is the create/update payload for a scene marker. SceneID is
// only sent on create.
type MarkerInput struct {
	SceneID      string   `json:"scene_id,omitempty"`
	Title        string   `json:"title"`
	Seconds      float64  `json:"seconds"`
	EndSeconds   *float64 `json:"end_seconds"`
	PrimaryTagID *string  `json:"primary_tag_id"`
	TagIDs       []string `json:"tag_ids"`
}

// FindFilter mirrors the upstream paging/sort filter. Zero values are
// omitted so the server defaults apply.
type FindFilter struct {
	Q         string `json:"q,omitempty"`
	Page      int    `json:"page,omitempty"`
	PerPage   int    `json:"per_page,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
}

type MarkerFilter struct {
	SceneIDs     []string
	PerformerIDs []string
	TagIDs       []string
	Find         FindFilter
}

type MarkerPage struct {
	Count   int           `json:"count"`
	Markers []SceneMarker `json:"scene_markers"`
}

type PerformerPage struct {
	Count      int         `json:"count"`
	Performers []Performer `json:"performers"`
}
