package editor

import (
	"fmt"
	"math"
	"strings"
)

// IsValidTimeRange reports whether end is present, both bounds are finite
// and non-negative, and end is strictly after start.
func IsValidTimeRange(start float64, end *float64) bool {
	if end == nil {
		return false
	}
	if !isFiniteNonNegative(start) || !isFiniteNonNegative(*end) {
		return false
	}
	return *end > start
}

func isFiniteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// NormalizedTagIDs returns the draft's tag ids plus its primary tag id,
// deduplicated in first-seen order. Empty ids are dropped.
func NormalizedTagIDs(d Draft) []string {
	seen := make(map[string]struct{}, len(d.TagIDs)+1)
	out := make([]string, 0, len(d.TagIDs)+1)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range d.TagIDs {
		add(id)
	}
	if d.PrimaryTagID != nil {
		add(*d.PrimaryTagID)
	}
	return out
}

// TagSetsEqual compares two id collections as sets.
func TagSetsEqual(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, id := range a {
		as[id] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, id := range b {
		bs[id] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if _, ok := bs[id]; !ok {
			return false
		}
	}
	return true
}

type Problem struct {
	Ref     MarkerRef `json:"ref"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// ValidationError lists every draft that failed validation. It is returned
// before any upstream call is made.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		p := e.Problems[0]
		return fmt.Sprintf("marker %q: %s", p.Title, p.Message)
	}
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, fmt.Sprintf("%q: %s", p.Title, p.Message))
	}
	return fmt.Sprintf("%d markers are invalid: %s", e.InvalidCount(), strings.Join(msgs, "; "))
}

// InvalidCount is the number of distinct drafts with problems.
func (e *ValidationError) InvalidCount() int {
	refs := make(map[MarkerRef]struct{}, len(e.Problems))
	for _, p := range e.Problems {
		refs[p.Ref] = struct{}{}
	}
	return len(refs)
}

func validateDraft(ref MarkerRef, d Draft, requirePrimaryTag bool) []Problem {
	var problems []Problem
	add := func(msg string) {
		problems = append(problems, Problem{Ref: ref, Title: d.Title, Message: msg})
	}

	switch {
	case d.EndSeconds == nil:
		add("end time is required")
	case !isFiniteNonNegative(d.Seconds):
		add("start time must be a non-negative number")
	case !isFiniteNonNegative(*d.EndSeconds):
		add("end time must be a non-negative number")
	case !IsValidTimeRange(d.Seconds, d.EndSeconds):
		add("end time must be after start time")
	}

	if requirePrimaryTag && (d.PrimaryTagID == nil || *d.PrimaryTagID == "") {
		add("primary tag is required")
	}
	return problems
}
