package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	SetSettings(ctx context.Context, values map[string]string) error
	ListSettings(ctx context.Context) ([]*Setting, error)

	UpsertActor(ctx context.Context, actor *Actor) error
	GetActor(ctx context.Context, id string) (*Actor, error)
	ListActors(ctx context.Context) ([]*Actor, error)
	DeleteActor(ctx context.Context, id string) error

	CreatePlaylist(ctx context.Context, playlist *Playlist) error
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	ListPlaylists(ctx context.Context) ([]*Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AppendPlaylistItems(ctx context.Context, playlistID string, items []PlaylistItem) error
	RemovePlaylistItems(ctx context.Context, playlistID string, itemIDs []uint) (int64, error)

	GetItem(ctx context.Context, id string) (*Item, error)
	CreateItem(ctx context.Context, item *Item) error
	SetRating(ctx context.Context, id string, rating *int) (*Item, error)
	ListItems(ctx context.Context, ids []string) ([]*Item, error)

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	LatestJob(ctx context.Context, jobType string) (*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	UpdateJobDetail(ctx context.Context, id, detail string) error
	FailInterruptedJobs(ctx context.Context) (int64, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var s Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return s.Value, err
}

func (r *GormRepository) SetSetting(ctx context.Context, key, value string) error {
	return r.upsertSetting(r.db.WithContext(ctx), key, value)
}

func (r *GormRepository) SetSettings(ctx context.Context, values map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			if err := r.upsertSetting(tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepository) upsertSetting(tx *gorm.DB, key, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: key, Value: value, UpdatedAt: time.Now()}).Error
}

func (r *GormRepository) ListSettings(ctx context.Context) ([]*Setting, error) {
	var settings []*Setting
	err := r.db.WithContext(ctx).Order("key").Find(&settings).Error
	return settings, err
}

func (r *GormRepository) UpsertActor(ctx context.Context, a *Actor) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "image_path", "scene_count", "marker_count", "updated_at"}),
	}).Create(a).Error
}

func (r *GormRepository) GetActor(ctx context.Context, id string) (*Actor, error) {
	var a Actor
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepository) ListActors(ctx context.Context) ([]*Actor, error) {
	var actors []*Actor
	err := r.db.WithContext(ctx).Order("name").Find(&actors).Error
	return actors, err
}

func (r *GormRepository) DeleteActor(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Actor{}).Error
}

func (r *GormRepository) CreatePlaylist(ctx context.Context, p *Playlist) error {
	return r.db.WithContext(ctx).Omit("Items").Create(p).Error
}

func (r *GormRepository) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	var p Playlist
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) ListPlaylists(ctx context.Context) ([]*Playlist, error) {
	var playlists []*Playlist
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&playlists).Error
	return playlists, err
}

func (r *GormRepository) DeletePlaylist(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&PlaylistItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Playlist{}).Error
	})
}

// AppendPlaylistItems adds items after the current last position, keeping
// the given order.
func (r *GormRepository) AppendPlaylistItems(ctx context.Context, playlistID string, items []PlaylistItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Model(&PlaylistItem{}).
			Where("playlist_id = ?", playlistID).
			Select("COALESCE(MAX(position), -1)").
			Row().Scan(&maxPos); err != nil {
			return err
		}
		next := maxPos + 1
		for i := range items {
			items[i].ID = 0
			items[i].PlaylistID = playlistID
			items[i].Position = next + i
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		return tx.Model(&Playlist{}).Where("id = ?", playlistID).Update("updated_at", time.Now()).Error
	})
}

func (r *GormRepository) RemovePlaylistItems(ctx context.Context, playlistID string, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("playlist_id = ? AND id IN ?", playlistID, itemIDs).
		Delete(&PlaylistItem{})
	return res.RowsAffected, res.Error
}

func (r *GormRepository) GetItem(ctx context.Context, id string) (*Item, error) {
	var it Item
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateItem inserts the item, leaving an existing row untouched.
func (r *GormRepository) CreateItem(ctx context.Context, it *Item) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(it).Error
}

func (r *GormRepository) SetRating(ctx context.Context, id string, rating *int) (*Item, error) {
	now := time.Now()
	it := &Item{ID: id, Rating: rating, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(it).Error
	if err != nil {
		return nil, err
	}
	return r.GetItem(ctx, id)
}

func (r *GormRepository) ListItems(ctx context.Context, ids []string) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []*Item
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *GormRepository) CreateJob(ctx context.Context, j *Job) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *GormRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	var j Job
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *GormRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []*Job
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

func (r *GormRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	var jobs []*Job
	err := r.db.WithContext(ctx).
		Where("status = ?", JobStatusPending).
		Order("created_at ASC").Find(&jobs).Error
	return jobs, err
}

func (r *GormRepository) LatestJob(ctx context.Context, jobType string) (*Job, error) {
	var j Job
	err := r.db.WithContext(ctx).
		Where("type = ?", jobType).
		Order("created_at DESC").Take(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *GormRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(map[string]any{
		"status":     status,
		"error":      errorMsg,
		"updated_at": time.Now(),
	}).Error
}

func (r *GormRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	return r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(map[string]any{
		"progress":   progress,
		"updated_at": time.Now(),
	}).Error
}

func (r *GormRepository) UpdateJobDetail(ctx context.Context, id, detail string) error {
	return r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(map[string]any{
		"detail":     detail,
		"updated_at": time.Now(),
	}).Error
}

// FailInterruptedJobs marks jobs left running by a previous process as failed.
func (r *GormRepository) FailInterruptedJobs(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Job{}).
		Where("status = ?", JobStatusRunning).
		Updates(map[string]any{
			"status":     JobStatusFailed,
			"error":      "interrupted by restart",
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
