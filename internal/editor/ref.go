package editor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type refKind uint8

const (
	kindExisting refKind = iota + 1
	kindPending
)

// MarkerRef identifies a draft. It is either Existing(server id) or
// Pending(local id); the two spaces never collide. MarkerRef is comparable
// and used as a map key.
type MarkerRef struct {
	kind refKind
	id   string
}

func Existing(id string) MarkerRef {
	return MarkerRef{kind: kindExisting, id: id}
}

func Pending(localID string) MarkerRef {
	return MarkerRef{kind: kindPending, id: localID}
}

// NewPendingRef mints a pending ref with a random local id.
func NewPendingRef() MarkerRef {
	return Pending(uuid.NewString())
}

func (r MarkerRef) IsExisting() bool { return r.kind == kindExisting }
func (r MarkerRef) IsPending() bool  { return r.kind == kindPending }
func (r MarkerRef) IsZero() bool     { return r.kind == 0 }

// ID is the server id for existing refs and the local id for pending ones.
func (r MarkerRef) ID() string { return r.id }

func (r MarkerRef) String() string {
	switch r.kind {
	case kindExisting:
		return "existing:" + r.id
	case kindPending:
		return "pending:" + r.id
	default:
		return ""
	}
}

func (r MarkerRef) MarshalText() ([]byte, error) {
	if r.IsZero() {
		return nil, fmt.Errorf("marshal empty marker ref")
	}
	return []byte(r.String()), nil
}

func (r *MarkerRef) UnmarshalText(b []byte) error {
	parsed, err := ParseRef(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRef parses the "existing:<id>" / "pending:<id>" text form.
func ParseRef(s string) (MarkerRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return MarkerRef{}, fmt.Errorf("invalid marker ref %q", s)
	}
	switch kind {
	case "existing":
		return Existing(id), nil
	case "pending":
		return Pending(id), nil
	default:
		return MarkerRef{}, fmt.Errorf("invalid marker ref kind %q", kind)
	}
}
