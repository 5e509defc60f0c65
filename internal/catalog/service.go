package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/markerdeck/markerdeck/internal/stash"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type CatalogService interface {
	Settings(ctx context.Context) (map[string]string, error)
	UpdateSettings(ctx context.Context, values map[string]string) error
	Endpoint(ctx context.Context) (stash.Endpoint, error)

	ImportActor(ctx context.Context, performerID string) (*Actor, error)
	GetActor(ctx context.Context, id string) (*Actor, error)
	ListActors(ctx context.Context) ([]*Actor, error)
	RemoveActor(ctx context.Context, id string) error

	CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	ListPlaylists(ctx context.Context) ([]*Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AddPlaylistItems(ctx context.Context, playlistID string, payloads []ItemPayload) (*Playlist, error)
	RemovePlaylistItems(ctx context.Context, playlistID string, itemIDs []uint) (*Playlist, error)

	GetRating(ctx context.Context, markerID string) (*Item, error)
	SetRating(ctx context.Context, markerID string, rating *int) (*Item, error)
	Ratings(ctx context.Context, markerIDs []string) (map[string]*int, error)

	EnqueueJob(ctx context.Context, jobType string) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
}

// PerformerSource looks performers up on the upstream server.
type PerformerSource interface {
	FindPerformer(ctx context.Context, id string) (*stash.Performer, error)
}

// Defaults are the configured upstream settings used until the matching
// setting rows exist.
type Defaults struct {
	StashServer string
	StashAPIKey string
}

type Service struct {
	repo       Repository
	performers PerformerSource
	defaults   Defaults
	logger     *slog.Logger
}

func NewService(repo Repository, performers PerformerSource, defaults Defaults, logger *slog.Logger) *Service {
	return &Service{repo: repo, performers: performers, defaults: defaults, logger: logger}
}

// SetPerformerSource wires the upstream client after construction, since the
// client itself reads its endpoint from this service.
func (s *Service) SetPerformerSource(p PerformerSource) {
	s.performers = p
}

// SeedSettings stores the configured upstream defaults when no value has
// been saved yet.
func (s *Service) SeedSettings(ctx context.Context) error {
	seeds := map[string]string{
		SettingStashServer: s.defaults.StashServer,
		SettingStashAPI:    s.defaults.StashAPIKey,
		SettingThemeMode:   "system",
	}
	for key, value := range seeds {
		if value == "" {
			continue
		}
		existing, err := s.repo.GetSetting(ctx, key)
		if err != nil {
			return fmt.Errorf("read setting %s: %w", key, err)
		}
		if existing != "" {
			continue
		}
		if err := s.repo.SetSetting(ctx, key, value); err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return nil
}

func (s *Service) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (s *Service) UpdateSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no settings given", ErrInvalidInput)
	}
	clean := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return fmt.Errorf("%w: empty setting key", ErrInvalidInput)
		}

		switch key {
		case SettingStashServer:
			u, err := url.Parse(value)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: %s must be an http(s) URL", ErrInvalidInput, key)
			}
			value = strings.TrimRight(value, "/")
		case SettingThemeMode:
			if !ThemeModes[value] {
				return fmt.Errorf("%w: %s must be light, dark or system", ErrInvalidInput, key)
			}
		case SettingActorRefreshInterval:
			if value != "" {
				d, err := time.ParseDuration(value)
				if err != nil || d < time.Minute {
					return fmt.Errorf("%w: %s must be a duration of at least 1m", ErrInvalidInput, key)
				}
			}
		}
		clean[key] = value
	}

	if err := s.repo.SetSettings(ctx, clean); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("settings updated", "keys", len(clean))
	}
	return nil
}

// Endpoint implements stash.EndpointSource.
func (s *Service) Endpoint(ctx context.Context) (stash.Endpoint, error) {
	server, err := s.repo.GetSetting(ctx, SettingStashServer)
	if err != nil {
		return stash.Endpoint{}, err
	}
	apiKey, err := s.repo.GetSetting(ctx, SettingStashAPI)
	if err != nil {
		return stash.Endpoint{}, err
	}
	if server == "" {
		server = s.defaults.StashServer
	}
	if apiKey == "" {
		apiKey = s.defaults.StashAPIKey
	}
	if server == "" {
		return stash.Endpoint{}, stash.ErrNotConfigured
	}
	return stash.Endpoint{ServerURL: strings.TrimRight(server, "/"), APIKey: apiKey}, nil
}

func (s *Service) ImportActor(ctx context.Context, performerID string) (*Actor, error) {
	performerID = strings.TrimSpace(performerID)
	if performerID == "" {
		return nil, fmt.Errorf("%w: performer id is required", ErrInvalidInput)
	}
	if s.performers == nil {
		return nil, stash.ErrNotConfigured
	}

	p, err := s.performers.FindPerformer(ctx, performerID)
	if err != nil {
		return nil, fmt.Errorf("find performer %s: %w", performerID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("performer %s: %w", performerID, ErrNotFound)
	}

	now := time.Now()
	actor := actorFromPerformer(p, now)
	if err := s.repo.UpsertActor(ctx, actor); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("actor imported", "actor_id", actor.ID, "name", actor.Name)
	}
	return s.repo.GetActor(ctx, actor.ID)
}

// RefreshActors re-reads every saved actor from upstream. Actors missing
// upstream are kept as they are. progress may be nil.
func (s *Service) RefreshActors(ctx context.Context, progress func(done, total int)) (int, error) {
	if s.performers == nil {
		return 0, stash.ErrNotConfigured
	}
	actors, err := s.repo.ListActors(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i, a := range actors {
		select {
		case <-ctx.Done():
			return updated, ctx.Err()
		default:
		}

		p, err := s.performers.FindPerformer(ctx, a.ID)
		if err != nil {
			return updated, fmt.Errorf("refresh actor %s: %w", a.ID, err)
		}
		if p != nil {
			fresh := actorFromPerformer(p, time.Now())
			if err := s.repo.UpsertActor(ctx, fresh); err != nil {
				return updated, err
			}
			updated++
		} else if s.logger != nil {
			s.logger.Warn("actor no longer exists upstream", "actor_id", a.ID)
		}

		if progress != nil {
			progress(i+1, len(actors))
		}
	}
	return updated, nil
}

func actorFromPerformer(p *stash.Performer, now time.Time) *Actor {
	return &Actor{
		ID:          p.ID,
		Name:        p.Name,
		ImagePath:   p.ImagePath,
		SceneCount:  p.SceneCount,
		MarkerCount: p.SceneMarkerCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Service) GetActor(ctx context.Context, id string) (*Actor, error) {
	return s.repo.GetActor(ctx, id)
}

func (s *Service) ListActors(ctx context.Context) ([]*Actor, error) {
	return s.repo.ListActors(ctx)
}

func (s *Service) RemoveActor(ctx context.Context, id string) error {
	a, err := s.repo.GetActor(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("actor %s: %w", id, ErrNotFound)
	}
	return s.repo.DeleteActor(ctx, id)
}

func (s *Service) CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	now := time.Now()
	p := &Playlist{
		ID:          NewID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreatePlaylist(ctx, p); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("playlist created", "playlist_id", p.ID, "name", p.Name)
	}
	return p, nil
}

func (s *Service) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	return s.repo.GetPlaylist(ctx, id)
}

func (s *Service) ListPlaylists(ctx context.Context) ([]*Playlist, error) {
	return s.repo.ListPlaylists(ctx)
}

func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	p, err := s.repo.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	return s.repo.DeletePlaylist(ctx, id)
}

func (s *Service) AddPlaylistItems(ctx context.Context, playlistID string, payloads []ItemPayload) (*Playlist, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", ErrInvalidInput)
	}
	p, err := s.repo.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}

	items := make([]PlaylistItem, 0, len(payloads))
	now := time.Now()
	for _, payload := range payloads {
		if payload.ID == "" {
			return nil, fmt.Errorf("%w: item id is required", ErrInvalidInput)
		}
		if payload.StartSeconds < 0 {
			return nil, fmt.Errorf("%w: item %s has a negative start", ErrInvalidInput, payload.ID)
		}
		if payload.EndSeconds != nil && *payload.EndSeconds <= payload.StartSeconds {
			return nil, fmt.Errorf("%w: item %s ends before it starts", ErrInvalidInput, payload.ID)
		}
		items = append(items, PlaylistItem{
			MarkerID:  payload.ID,
			Payload:   newPayload(payload),
			CreatedAt: now,
		})
	}

	if err := s.repo.AppendPlaylistItems(ctx, playlistID, items); err != nil {
		return nil, err
	}
	return s.repo.GetPlaylist(ctx, playlistID)
}

func (s *Service) RemovePlaylistItems(ctx context.Context, playlistID string, itemIDs []uint) (*Playlist, error) {
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("%w: item ids must not be empty", ErrInvalidInput)
	}
	p, err := s.repo.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if _, err := s.repo.RemovePlaylistItems(ctx, playlistID, itemIDs); err != nil {
		return nil, err
	}
	return s.repo.GetPlaylist(ctx, playlistID)
}

// GetRating returns the local item for a marker, creating it on first
// lookup.
func (s *Service) GetRating(ctx context.Context, markerID string) (*Item, error) {
	if markerID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	it, err := s.repo.GetItem(ctx, markerID)
	if err != nil {
		return nil, err
	}
	if it != nil {
		return it, nil
	}

	now := time.Now()
	if err := s.repo.CreateItem(ctx, &Item{ID: markerID, CreatedAt: now, UpdatedAt: now}); err != nil {
		return nil, fmt.Errorf("create item %s: %w", markerID, err)
	}
	if s.logger != nil {
		s.logger.Debug("item created lazily", "item_id", markerID)
	}
	return s.repo.GetItem(ctx, markerID)
}

// SetRating stores a rating in [MinRating, MaxRating]; nil clears it.
func (s *Service) SetRating(ctx context.Context, markerID string, rating *int) (*Item, error) {
	if markerID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	if rating != nil && (*rating < MinRating || *rating > MaxRating) {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, MinRating, MaxRating)
	}
	return s.repo.SetRating(ctx, markerID, rating)
}

// Ratings returns the rating for every requested id. Ids without a local
// item map to nil.
func (s *Service) Ratings(ctx context.Context, markerIDs []string) (map[string]*int, error) {
	out := make(map[string]*int, len(markerIDs))
	for _, id := range markerIDs {
		out[id] = nil
	}
	items, err := s.repo.ListItems(ctx, markerIDs)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it.Rating
	}
	return out, nil
}

func (s *Service) EnqueueJob(ctx context.Context, jobType string) (*Job, error) {
	switch jobType {
	case JobTypeBackup, JobTypeRefreshActors:
	default:
		return nil, fmt.Errorf("%w: unknown job type %q", ErrInvalidInput, jobType)
	}

	now := time.Now()
	job := &Job{
		ID:        NewID(),
		Type:      jobType,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("job created", "job_id", job.ID, "type", jobType)
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}
