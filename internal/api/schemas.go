package api

import (
	"time"

	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/editor"
	"github.com/markerdeck/markerdeck/internal/stash"
	"github.com/markerdeck/markerdeck/internal/wall"
)

type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	UptimeS         int64  `json:"uptime_s"`
	ActiveJobs      int    `json:"active_jobs"`
	RunnerPaused    bool   `json:"runner_paused"`
	EditSessions    int    `json:"edit_sessions"`
	StashConfigured bool   `json:"stash_configured"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error    string           `json:"error"`
	Code     string           `json:"code"`
	Invalid  int              `json:"invalid"`
	Problems []editor.Problem `json:"problems"`
}

type BatchErrorResponse struct {
	Error  string           `json:"error"`
	Code   string           `json:"code"`
	Saved  int              `json:"saved"`
	Total  int              `json:"total"`
	Failed editor.MarkerRef `json:"failed"`
}

type ActorsResponse struct {
	Actors []*catalog.Actor `json:"actors"`
}

type ImportActorRequest struct {
	PerformerID string `json:"performer_id"`
}

type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type PlaylistsResponse struct {
	Playlists []*catalog.Playlist `json:"playlists"`
}

type AddItemsRequest struct {
	Items []catalog.ItemPayload `json:"items"`
}

type RemoveItemsRequest struct {
	ItemIDs []uint `json:"item_ids"`
}

type RatingResponse struct {
	ID     string `json:"id"`
	Rating *int   `json:"rating"`
}

// SetRatingRequest clears the rating when Rating is null or absent.
type SetRatingRequest struct {
	Rating *int `json:"rating"`
}

type RatingsResponse struct {
	Ratings map[string]*int `json:"ratings"`
}

type TagsResponse struct {
	Tags []stash.Tag `json:"tags"`
}

type SceneTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

type EditSessionResponse struct {
	ID             string            `json:"id"`
	SceneID        string            `json:"scene_id"`
	CreatedAt      string            `json:"created_at"`
	Rows           []editor.Row      `json:"rows"`
	DirtyCount     int               `json:"dirty_count"`
	PendingDelete  *editor.MarkerRef `json:"pending_delete,omitempty"`
	PlayerActive   bool              `json:"player_active"`
	RefetchPending bool              `json:"refetch_pending"`
}

type DraftRefResponse struct {
	Ref     editor.MarkerRef    `json:"ref"`
	Session EditSessionResponse `json:"session"`
}

type DeleteRowResponse struct {
	Removed bool                `json:"removed"`
	Session EditSessionResponse `json:"session"`
}

type SaveAllResponse struct {
	Result  *editor.SaveResult  `json:"result"`
	Session EditSessionResponse `json:"session"`
}

type PlayerRequest struct {
	Active bool `json:"active"`
}

type StartWallRequest struct {
	PlaylistID string  `json:"playlist_id"`
	Seed       *uint64 `json:"seed,omitempty"`
}

type WallResponse struct {
	ID         string      `json:"id"`
	PlaylistID string      `json:"playlist_id"`
	Clips      int         `json:"clips"`
	Slots      []wall.Slot `json:"slots"`
}

type TileResponse struct {
	Tile int       `json:"tile"`
	Clip wall.Clip `json:"clip"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

func JobToResponse(j *catalog.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		Progress:  j.Progress,
		Error:     j.Error,
		Detail:    j.Detail,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}

func SessionToResponse(s *editor.Session) EditSessionResponse {
	store := s.Store()
	resp := EditSessionResponse{
		ID:             s.ID,
		SceneID:        s.SceneID,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		Rows:           store.Rows(),
		DirtyCount:     store.DirtyCount(),
		PlayerActive:   s.Reconciler().PlayerActive(),
		RefetchPending: s.Reconciler().Pending(),
	}
	if ref, ok := store.PendingDelete(); ok {
		resp.PendingDelete = &ref
	}
	return resp
}
