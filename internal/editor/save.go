package editor

import (
	"context"
	"fmt"
)

// RefChange records a pending draft that became an existing marker.
type RefChange struct {
	From MarkerRef `json:"from"`
	To   MarkerRef `json:"to"`
}

type SaveResult struct {
	Created []RefChange `json:"created"`
	Updated []MarkerRef `json:"updated"`
	Total   int         `json:"total"`
}

type saveJob struct {
	ref     MarkerRef
	version uint64
	sent    Draft
	input   MarkerInput
}

// SaveRow validates and saves one draft. It returns the draft's ref after
// the save, which differs from ref when a pending draft was created. A
// clean existing draft is a no-op.
func (s *Store) SaveRow(ctx context.Context, ref MarkerRef) (MarkerRef, error) {
	s.mu.Lock()
	e, ok := s.entries[ref]
	if !ok {
		s.mu.Unlock()
		return ref, fmt.Errorf("%w %s", ErrUnknownRef, ref)
	}
	if s.saving[ref] {
		s.mu.Unlock()
		return ref, ErrSaveInProgress
	}
	if problems := validateDraft(ref, e.draft, s.opts.RequirePrimaryTag); len(problems) > 0 {
		s.mu.Unlock()
		return ref, &ValidationError{Problems: problems}
	}
	if !e.dirty(ref) {
		s.mu.Unlock()
		return ref, nil
	}
	job := s.beginLocked(ref, e)
	s.mu.Unlock()

	return s.run(ctx, job)
}

// beginLocked marks ref as saving and captures what will be sent.
func (s *Store) beginLocked(ref MarkerRef, e *entry) saveJob {
	s.saving[ref] = true
	sent := e.draft.normalized()
	return saveJob{ref: ref, version: e.version, sent: sent, input: s.input(sent)}
}

func (s *Store) run(ctx context.Context, job saveJob) (MarkerRef, error) {
	if job.ref.IsPending() {
		m, err := s.upstream.CreateMarker(ctx, job.input)
		s.metrics.mutation(ctx, "create", err)
		if err != nil {
			s.finish(job.ref)
			s.opts.Logger.Error("create marker failed", "scene_id", s.sceneID, "ref", job.ref.String(), "error", err)
			return job.ref, fmt.Errorf("create marker: %w", err)
		}
		next := s.applyCreated(job, m)
		s.opts.Logger.Info("marker created", "scene_id", s.sceneID, "marker_id", m.ID)
		return next, nil
	}

	m, err := s.upstream.UpdateMarker(ctx, job.ref.ID(), job.input)
	s.metrics.mutation(ctx, "update", err)
	if err != nil {
		s.finish(job.ref)
		s.opts.Logger.Error("update marker failed", "scene_id", s.sceneID, "marker_id", job.ref.ID(), "error", err)
		return job.ref, fmt.Errorf("update marker %s: %w", job.ref.ID(), err)
	}
	s.applyUpdated(job, m)
	s.opts.Logger.Info("marker updated", "scene_id", s.sceneID, "marker_id", job.ref.ID())
	return job.ref, nil
}

func (s *Store) finish(ref MarkerRef) {
	s.mu.Lock()
	delete(s.saving, ref)
	s.mu.Unlock()
}

// applyCreated turns the pending entry into an existing one. Edits made
// while the create was in flight are kept and remain dirty.
func (s *Store) applyCreated(job saveJob, m Marker) MarkerRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.saving, job.ref)
	next := Existing(m.ID)
	base := draftFromMarker(m)

	cur, ok := s.entries[job.ref]
	if !ok {
		return next
	}
	e := &entry{draft: base.clone(), base: &base, version: s.nextVersion()}
	if cur.version != job.version {
		e.draft = cur.draft
	}
	s.replaceLocked(job.ref, next, e)
	return next
}

// applyUpdated moves the snapshot to the sent values. The draft is only
// normalized when it was not edited during the save.
func (s *Store) applyUpdated(job saveJob, _ Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.saving, job.ref)
	cur, ok := s.entries[job.ref]
	if !ok {
		return
	}
	base := job.sent.clone()
	cur.base = &base
	if cur.version == job.version {
		cur.draft = base.clone()
	}
}

// SaveAll validates every dirty draft, then creates pending drafts in
// creation order and updates existing ones in display order, one at a
// time. The first failure stops the batch; earlier saves are kept.
func (s *Store) SaveAll(ctx context.Context) (*SaveResult, error) {
	s.mu.Lock()
	var creates, updates []MarkerRef
	for _, ref := range s.order {
		e := s.entries[ref]
		switch {
		case ref.IsPending():
			creates = append(creates, ref)
		case e.dirty(ref):
			updates = append(updates, ref)
		}
	}
	batch := append(creates, updates...)

	var problems []Problem
	for _, ref := range batch {
		problems = append(problems, validateDraft(ref, s.entries[ref].draft, s.opts.RequirePrimaryTag)...)
	}
	if len(problems) > 0 {
		s.mu.Unlock()
		return nil, &ValidationError{Problems: problems}
	}
	for _, ref := range batch {
		if s.saving[ref] {
			s.mu.Unlock()
			return nil, ErrSaveInProgress
		}
	}

	jobs := make([]saveJob, 0, len(batch))
	for _, ref := range batch {
		jobs = append(jobs, s.beginLocked(ref, s.entries[ref]))
	}
	s.mu.Unlock()

	result := &SaveResult{Created: []RefChange{}, Updated: []MarkerRef{}, Total: len(jobs)}
	for i, job := range jobs {
		next, err := s.run(ctx, job)
		if err != nil {
			for _, rest := range jobs[i+1:] {
				s.finish(rest.ref)
			}
			return result, &BatchError{Failed: job.ref, Saved: i, Total: len(jobs), Err: err}
		}
		if job.ref.IsPending() {
			result.Created = append(result.Created, RefChange{From: job.ref, To: next})
		} else {
			result.Updated = append(result.Updated, job.ref)
		}
	}

	if len(jobs) > 0 && s.opts.Refetch != nil {
		s.opts.Refetch.Schedule()
	}
	return result, nil
}
