package editor

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// RefetchScheduler arranges a delayed reload of the scene's markers.
type RefetchScheduler interface {
	Schedule()
}

type Options struct {
	// RequirePrimaryTag makes a missing primary tag a validation problem.
	RequirePrimaryTag bool
	// Refetch is notified after a successful save-all or delete. May be nil.
	Refetch RefetchScheduler
	Logger  *slog.Logger
}

type entry struct {
	draft Draft
	// base is the last-known server state; nil for pending drafts.
	base    *Draft
	version uint64
}

// Store holds the drafts of one scene. Upstream calls are made without
// holding the lock.
type Store struct {
	sceneID  string
	upstream Upstream
	opts     Options
	metrics  *metrics

	mu            sync.Mutex
	entries       map[MarkerRef]*entry
	order         []MarkerRef
	saving        map[MarkerRef]bool
	pendingDelete MarkerRef
	seq           uint64
}

func NewStore(sceneID string, upstream Upstream, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	m, err := newMetrics()
	if err != nil {
		opts.Logger.Warn("editor metrics unavailable", "error", err)
	}
	return &Store{
		sceneID:  sceneID,
		upstream: upstream,
		opts:     opts,
		metrics:  m,
		entries:  make(map[MarkerRef]*entry),
		saving:   make(map[MarkerRef]bool),
	}
}

func (s *Store) SceneID() string { return s.sceneID }

// nextVersion must be called with mu held.
func (s *Store) nextVersion() uint64 {
	s.seq++
	return s.seq
}

// Load replaces every existing draft with the given server markers. Pending
// drafts are kept, after the server markers, in creation order.
func (s *Store) Load(markers []Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]MarkerRef, 0)
	for _, ref := range s.order {
		if ref.IsPending() {
			pending = append(pending, ref)
		} else {
			delete(s.entries, ref)
		}
	}

	order := make([]MarkerRef, 0, len(markers)+len(pending))
	for _, m := range markers {
		ref := Existing(m.ID)
		if _, dup := s.entries[ref]; dup {
			continue
		}
		base := draftFromMarker(m)
		s.entries[ref] = &entry{draft: base.clone(), base: &base, version: s.nextVersion()}
		order = append(order, ref)
	}
	s.order = append(order, pending...)

	if !s.pendingDelete.IsZero() {
		if _, ok := s.entries[s.pendingDelete]; !ok {
			s.pendingDelete = MarkerRef{}
		}
	}
}

// SetDraft merges patch into the draft. No validation happens here.
func (s *Store) SetDraft(ref MarkerRef, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ref]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownRef, ref)
	}
	patch.apply(&e.draft)
	e.version = s.nextVersion()
	return nil
}

// IsDirty is always true for pending drafts. Existing drafts are dirty when
// any field differs from the server snapshot, with tags compared as sets.
func (s *Store) IsDirty(ref MarkerRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ref]
	if !ok {
		return false
	}
	return e.dirty(ref)
}

func (e *entry) dirty(ref MarkerRef) bool {
	if ref.IsPending() || e.base == nil {
		return true
	}
	return !equalDrafts(e.draft, *e.base)
}

func (s *Store) Draft(ref MarkerRef) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ref]
	if !ok {
		return Draft{}, false
	}
	return e.draft.clone(), true
}

// AddNewDraft inserts a pending draft and returns its ref.
func (s *Store) AddNewDraft(nd NewDraft) MarkerRef {
	title := nd.Title
	if title == "" {
		title = DefaultNewTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := NewPendingRef()
	s.entries[ref] = &entry{
		draft:   Draft{Title: title, Seconds: nd.Seconds, TagIDs: []string{}},
		version: s.nextVersion(),
	}
	s.order = append(s.order, ref)
	return ref
}

// DiscardDraft removes a pending draft or resets an existing one to its
// server snapshot.
func (s *Store) DiscardDraft(ref MarkerRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ref]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownRef, ref)
	}
	if s.saving[ref] {
		return ErrSaveInProgress
	}
	if ref.IsPending() {
		s.removeLocked(ref)
		return nil
	}
	e.draft = e.base.clone()
	e.version = s.nextVersion()
	return nil
}

// RemoveDraft drops a draft after its marker was deleted upstream.
func (s *Store) RemoveDraft(ref MarkerRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ref)
}

func (s *Store) removeLocked(ref MarkerRef) {
	if _, ok := s.entries[ref]; !ok {
		return
	}
	delete(s.entries, ref)
	s.order = slices.DeleteFunc(s.order, func(r MarkerRef) bool { return r == ref })
	if s.pendingDelete == ref {
		s.pendingDelete = MarkerRef{}
	}
}

// replaceLocked swaps ref for next in place, keeping its position.
func (s *Store) replaceLocked(ref, next MarkerRef, e *entry) {
	delete(s.entries, ref)
	if _, exists := s.entries[next]; exists {
		s.order = slices.DeleteFunc(s.order, func(r MarkerRef) bool { return r == ref })
	} else if i := slices.Index(s.order, ref); i >= 0 {
		s.order[i] = next
	} else {
		s.order = append(s.order, next)
	}
	s.entries[next] = e
}

// Row is a read-only view of one draft.
type Row struct {
	Ref           MarkerRef `json:"ref"`
	Draft         Draft     `json:"draft"`
	Dirty         bool      `json:"dirty"`
	Saving        bool      `json:"saving"`
	PendingDelete bool      `json:"pending_delete"`
}

// Rows returns every draft in display order.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]Row, 0, len(s.order))
	for _, ref := range s.order {
		e := s.entries[ref]
		rows = append(rows, Row{
			Ref:           ref,
			Draft:         e.draft.clone(),
			Dirty:         e.dirty(ref),
			Saving:        s.saving[ref],
			PendingDelete: s.pendingDelete == ref,
		})
	}
	return rows
}

// DirtyCount is the number of unsaved drafts, pending ones included.
func (s *Store) DirtyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, ref := range s.order {
		if s.entries[ref].dirty(ref) {
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Store) input(d Draft) MarkerInput {
	n := d.normalized()
	return MarkerInput{
		SceneID:      s.sceneID,
		Title:        n.Title,
		Seconds:      n.Seconds,
		EndSeconds:   n.EndSeconds,
		PrimaryTagID: n.PrimaryTagID,
		TagIDs:       n.TagIDs,
	}
}
