package editor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event kinds published by a session.
const (
	EventMarkersRefetched = "markers.refetched"
	EventMarkersSaved     = "markers.saved"
	EventMarkerDeleted    = "marker.deleted"
)

// Publisher fans session events out to interested clients.
type Publisher interface {
	Publish(sceneID, kind string, payload any)
}

type SessionConfig struct {
	RefetchDelay      time.Duration
	RequirePrimaryTag bool
}

// Session is one client's editing of one scene: a Store plus its
// delayed reconciliation.
type Session struct {
	ID        string
	SceneID   string
	CreatedAt time.Time

	store      *Store
	upstream   Upstream
	reconciler *Reconciler
	publisher  Publisher
	logger     *slog.Logger
}

// OpenSession loads the scene's markers and returns a ready session.
func OpenSession(ctx context.Context, sceneID string, upstream Upstream, cfg SessionConfig, publisher Publisher, logger *slog.Logger) (*Session, error) {
	if sceneID == "" {
		return nil, fmt.Errorf("open session: scene id is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	id := uuid.NewString()
	logger = logger.With("session_id", id, "scene_id", sceneID)
	sess := &Session{
		ID:        id,
		SceneID:   sceneID,
		CreatedAt: time.Now(),
		upstream:  upstream,
		publisher: publisher,
		logger:    logger,
	}
	sess.reconciler = NewReconciler(cfg.RefetchDelay, sess.refetch, logger)
	sess.store = NewStore(sceneID, upstream, Options{
		RequirePrimaryTag: cfg.RequirePrimaryTag,
		Refetch:           sess.reconciler,
		Logger:            logger,
	})

	if err := sess.Refresh(ctx); err != nil {
		return nil, err
	}
	logger.Info("edit session opened", "markers", sess.store.Len())
	return sess, nil
}

func (s *Session) Store() *Store { return s.store }

func (s *Session) Reconciler() *Reconciler { return s.reconciler }

// Refresh loads the scene's markers from upstream into the store now.
func (s *Session) Refresh(ctx context.Context) error {
	markers, err := s.upstream.SceneMarkers(ctx, s.SceneID)
	if err != nil {
		return fmt.Errorf("load markers for scene %s: %w", s.SceneID, err)
	}
	s.store.Load(markers)
	return nil
}

func (s *Session) refetch(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	s.store.metrics.refetch(ctx)
	s.publish(EventMarkersRefetched, map[string]any{"session_id": s.ID, "count": s.store.Len()})
	return nil
}

func (s *Session) SaveRow(ctx context.Context, ref MarkerRef) (MarkerRef, error) {
	next, err := s.store.SaveRow(ctx, ref)
	if err != nil {
		return next, err
	}
	s.publish(EventMarkersSaved, map[string]any{"session_id": s.ID, "refs": []MarkerRef{next}})
	return next, nil
}

func (s *Session) SaveAll(ctx context.Context) (*SaveResult, error) {
	res, err := s.store.SaveAll(ctx)
	if res != nil && res.Total > 0 && (len(res.Created) > 0 || len(res.Updated) > 0) {
		s.publish(EventMarkersSaved, map[string]any{
			"session_id": s.ID,
			"created":    res.Created,
			"updated":    res.Updated,
		})
	}
	return res, err
}

func (s *Session) ConfirmDelete(ctx context.Context) (MarkerRef, error) {
	ref, err := s.store.ConfirmDelete(ctx)
	if err != nil {
		return ref, err
	}
	s.publish(EventMarkerDeleted, map[string]any{"session_id": s.ID, "ref": ref})
	return ref, nil
}

func (s *Session) SetPlayerActive(active bool) {
	s.reconciler.SetPlayerActive(active)
}

// Close stops pending reconciliation. The registry calls it on expiry.
func (s *Session) Close() {
	s.reconciler.Close()
	s.logger.Info("edit session closed")
}

func (s *Session) publish(kind string, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(s.SceneID, kind, payload)
}
