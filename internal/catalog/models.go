package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Known setting keys.
const (
	SettingStashServer          = "STASH_SERVER"
	SettingStashAPI             = "STASH_API"
	SettingThemeMode            = "THEME_MODE"
	SettingActorRefreshInterval = "ACTOR_REFRESH_INTERVAL"
)

var ThemeModes = map[string]bool{
	"light":  true,
	"dark":   true,
	"system": true,
}

type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     string    `json:"value" gorm:"type:text;not null;default:''"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is a performer imported from the upstream server. ID is the
// upstream performer id.
type Actor struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	ImagePath   string    `json:"image_path,omitempty" gorm:"type:text"`
	SceneCount  int       `json:"scene_count"`
	MarkerCount int       `json:"marker_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Playlist struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Items       []PlaylistItem `json:"items,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PlaylistItem references a marker. The marker fields needed for playback
// are copied into Payload so a playlist plays without upstream lookups.
type PlaylistItem struct {
	ID         uint                            `json:"id" gorm:"primaryKey;autoIncrement"`
	PlaylistID string                          `json:"playlist_id" gorm:"size:36;not null;index:idx_playlist_position,priority:1"`
	MarkerID   string                          `json:"marker_id" gorm:"size:64;not null;index"`
	Position   int                             `json:"position" gorm:"not null;index:idx_playlist_position,priority:2"`
	Payload    datatypes.JSONType[ItemPayload] `json:"payload"`
	CreatedAt  time.Time                       `json:"created_at"`
}

type ItemPayload struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	SceneID      string   `json:"scene_id"`
	StartSeconds float64  `json:"start_seconds"`
	EndSeconds   *float64 `json:"end_seconds,omitempty"`
	Screenshot   string   `json:"screenshot,omitempty"`
	Stream       string   `json:"stream,omitempty"`
	Rating       *int     `json:"rating,omitempty"`
}

// Item is the local record attached to an upstream marker id. It exists
// only to hold a rating and is created lazily.
type Item struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Rating    *int      `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

const (
	JobTypeBackup        = "backup"
	JobTypeRefreshActors = "refresh_actors"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

type Job struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Type      string    `json:"type" gorm:"size:32;not null;index"`
	Status    string    `json:"status" gorm:"size:16;not null;index"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty" gorm:"type:text"`
	Detail    string    `json:"detail,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Models lists every table owned by the catalog, for db.Migrate.
func Models() []any {
	return []any{
		&Setting{},
		&Actor{},
		&Playlist{},
		&PlaylistItem{},
		&Item{},
		&Job{},
	}
}

func NewID() string {
	return uuid.NewString()
}

func newPayload(p ItemPayload) datatypes.JSONType[ItemPayload] {
	return datatypes.NewJSONType(p)
}
