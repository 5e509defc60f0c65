package editor

import (
	"context"
	"fmt"
)

// RequestDelete records ref as the delete awaiting confirmation. Only
// existing markers go through confirmation.
func (s *Store) RequestDelete(ref MarkerRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[ref]; !ok {
		return fmt.Errorf("%w %s", ErrUnknownRef, ref)
	}
	if !ref.IsExisting() {
		return ErrNotExisting
	}
	if s.saving[ref] {
		return ErrSaveInProgress
	}
	s.pendingDelete = ref
	return nil
}

func (s *Store) CancelDelete() {
	s.mu.Lock()
	s.pendingDelete = MarkerRef{}
	s.mu.Unlock()
}

// PendingDelete returns the ref awaiting confirmation, if any.
func (s *Store) PendingDelete() (MarkerRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDelete, !s.pendingDelete.IsZero()
}

// ConfirmDelete destroys the marker awaiting confirmation. On failure the
// draft and the confirmation target are kept so the delete can be retried.
func (s *Store) ConfirmDelete(ctx context.Context) (MarkerRef, error) {
	s.mu.Lock()
	ref := s.pendingDelete
	if ref.IsZero() {
		s.mu.Unlock()
		return ref, ErrNoPendingDelete
	}
	if s.saving[ref] {
		s.mu.Unlock()
		return ref, ErrSaveInProgress
	}
	s.saving[ref] = true
	s.mu.Unlock()

	ok, err := s.upstream.DestroyMarker(ctx, ref.ID())
	if err == nil && !ok {
		err = ErrDeleteRefused
	}
	s.metrics.mutation(ctx, "delete", err)
	if err != nil {
		s.finish(ref)
		s.opts.Logger.Error("delete marker failed", "scene_id", s.sceneID, "marker_id", ref.ID(), "error", err)
		return ref, fmt.Errorf("delete marker %s: %w", ref.ID(), err)
	}

	s.mu.Lock()
	delete(s.saving, ref)
	s.removeLocked(ref)
	s.mu.Unlock()

	s.opts.Logger.Info("marker deleted", "scene_id", s.sceneID, "marker_id", ref.ID())
	if s.opts.Refetch != nil {
		s.opts.Refetch.Schedule()
	}
	return ref, nil
}

// DeleteRow removes a pending draft immediately and returns true. For an
// existing marker it requests confirmation and returns false.
func (s *Store) DeleteRow(ref MarkerRef) (bool, error) {
	if ref.IsPending() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.entries[ref]; !ok {
			return false, fmt.Errorf("%w %s", ErrUnknownRef, ref)
		}
		if s.saving[ref] {
			return false, ErrSaveInProgress
		}
		s.removeLocked(ref)
		return true, nil
	}
	return false, s.RequestDelete(ref)
}
