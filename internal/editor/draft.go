package editor

import (
	"bytes"
	"encoding/json"
	"slices"
)

const DefaultNewTitle = "New marker"

// Draft is the editable copy of a marker.
type Draft struct {
	Title        string   `json:"title"`
	Seconds      float64  `json:"seconds"`
	EndSeconds   *float64 `json:"end_seconds"`
	PrimaryTagID *string  `json:"primary_tag_id"`
	TagIDs       []string `json:"tag_ids"`
}

func (d Draft) clone() Draft {
	out := d
	if d.EndSeconds != nil {
		v := *d.EndSeconds
		out.EndSeconds = &v
	}
	if d.PrimaryTagID != nil {
		v := *d.PrimaryTagID
		out.PrimaryTagID = &v
	}
	out.TagIDs = slices.Clone(d.TagIDs)
	if out.TagIDs == nil {
		out.TagIDs = []string{}
	}
	return out
}

// normalized returns a copy whose tag ids include the primary tag.
func (d Draft) normalized() Draft {
	out := d.clone()
	out.TagIDs = NormalizedTagIDs(d)
	return out
}

func draftFromMarker(m Marker) Draft {
	d := Draft{
		Title:   m.Title,
		Seconds: m.Seconds,
		TagIDs:  make([]string, 0, len(m.Tags)),
	}
	if m.EndSeconds != nil {
		v := *m.EndSeconds
		d.EndSeconds = &v
	}
	if m.PrimaryTag != nil && m.PrimaryTag.ID != "" {
		v := m.PrimaryTag.ID
		d.PrimaryTagID = &v
	}
	for _, t := range m.Tags {
		d.TagIDs = append(d.TagIDs, t.ID)
	}
	return d.normalized()
}

// Nullable distinguishes an absent JSON field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func SetTo[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

func SetNull[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Patch is a partial draft update. Nil or unset fields are left alone.
type Patch struct {
	Title        *string           `json:"title,omitempty"`
	Seconds      *float64          `json:"seconds,omitempty"`
	EndSeconds   Nullable[float64] `json:"end_seconds"`
	PrimaryTagID Nullable[string]  `json:"primary_tag_id"`
	TagIDs       *[]string         `json:"tag_ids,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Seconds == nil && !p.EndSeconds.Set && !p.PrimaryTagID.Set && p.TagIDs == nil
}

func (p Patch) apply(d *Draft) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Seconds != nil {
		d.Seconds = *p.Seconds
	}
	if p.EndSeconds.Set {
		if p.EndSeconds.Value == nil {
			d.EndSeconds = nil
		} else {
			v := *p.EndSeconds.Value
			d.EndSeconds = &v
		}
	}
	if p.PrimaryTagID.Set {
		if p.PrimaryTagID.Value == nil || *p.PrimaryTagID.Value == "" {
			d.PrimaryTagID = nil
		} else {
			v := *p.PrimaryTagID.Value
			d.PrimaryTagID = &v
		}
	}
	if p.TagIDs != nil {
		d.TagIDs = slices.Clone(*p.TagIDs)
		if d.TagIDs == nil {
			d.TagIDs = []string{}
		}
	}
}

// NewDraft holds the caller-supplied fields of a new marker.
type NewDraft struct {
	Seconds float64 `json:"seconds"`
	Title   string  `json:"title,omitempty"`
}

func equalDrafts(a, b Draft) bool {
	return a.Title == b.Title &&
		a.Seconds == b.Seconds &&
		equalPtr(a.EndSeconds, b.EndSeconds) &&
		equalPtr(a.PrimaryTagID, b.PrimaryTagID) &&
		TagSetsEqual(NormalizedTagIDs(a), NormalizedTagIDs(b))
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
