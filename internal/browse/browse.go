// Package browse derives filtered, sorted and paginated views of marker
// and actor lists. Every function is pure and computed on demand.
package browse

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort keys.
const (
	SortTitle   = "title"
	SortSeconds = "seconds"
	SortRating  = "rating"
	SortCreated = "created"
)

type MarkerRow struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SceneID      string    `json:"scene_id"`
	SceneTitle   string    `json:"scene_title"`
	Seconds      float64   `json:"seconds"`
	EndSeconds   *float64  `json:"end_seconds"`
	PrimaryTagID string    `json:"primary_tag_id,omitempty"`
	TagIDs       []string  `json:"tag_ids"`
	TagNames     []string  `json:"tag_names"`
	Screenshot   string    `json:"screenshot,omitempty"`
	Stream       string    `json:"stream,omitempty"`
	Preview      string    `json:"preview,omitempty"`
	Rating       *int      `json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
}

type Criteria struct {
	// Query matches title, scene title and tag names, ignoring case.
	Query string
	// TagIDs must all be present on a row.
	TagIDs    []string
	MinRating int
	Sort      string
	Desc      bool
}

// FilterSort returns the rows matching c in the requested order. Ties keep
// their input order. The input slice is not modified.
func FilterSort(rows []MarkerRow, c Criteria) []MarkerRow {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(c.Query))

	out := make([]MarkerRow, 0, len(rows))
	for _, r := range rows {
		if query != "" && !matchesQuery(fold, r, query) {
			continue
		}
		if !hasAllTags(r, c.TagIDs) {
			continue
		}
		if c.MinRating > 0 && (r.Rating == nil || *r.Rating < c.MinRating) {
			continue
		}
		out = append(out, r)
	}

	cmp := markerComparator(c.Sort)
	if cmp == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b MarkerRow) int {
		if c.Desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out
}

func matchesQuery(fold cases.Caser, r MarkerRow, query string) bool {
	if strings.Contains(fold.String(r.Title), query) || strings.Contains(fold.String(r.SceneTitle), query) {
		return true
	}
	for _, name := range r.TagNames {
		if strings.Contains(fold.String(name), query) {
			return true
		}
	}
	return false
}

func hasAllTags(r MarkerRow, want []string) bool {
	for _, id := range want {
		if id == r.PrimaryTagID {
			continue
		}
		if !slices.Contains(r.TagIDs, id) {
			return false
		}
	}
	return true
}

func markerComparator(key string) func(a, b MarkerRow) int {
	switch key {
	case SortTitle:
		col := newCollator()
		return func(a, b MarkerRow) int { return col.CompareString(a.Title, b.Title) }
	case SortSeconds:
		return func(a, b MarkerRow) int { return compareFloat(a.Seconds, b.Seconds) }
	case SortRating:
		// Unrated rows sort below every rating.
		return func(a, b MarkerRow) int { return ratingValue(a.Rating) - ratingValue(b.Rating) }
	case SortCreated:
		return func(a, b MarkerRow) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return nil
	}
}

// ValidSort reports whether key is a known marker sort key. The empty key
// keeps upstream order.
func ValidSort(key string) bool {
	return key == "" || markerComparator(key) != nil
}

func ratingValue(r *int) int {
	if r == nil {
		return 0
	}
	return *r
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
}

// SortByName orders items by a display name using locale collation.
func SortByName[T any](items []T, name func(T) string, desc bool) {
	col := newCollator()
	slices.SortStableFunc(items, func(a, b T) int {
		if desc {
			return col.CompareString(name(b), name(a))
		}
		return col.CompareString(name(a), name(b))
	})
}

// FilterByName keeps items whose name contains query, ignoring case.
func FilterByName[T any](items []T, name func(T) string, query string) []T {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(fold.String(name(it)), q) {
			out = append(out, it)
		}
	}
	return out
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

const (
	DefaultPerPage = 40
	MaxPerPage     = 500
)

// Paginate slices items into 1-based pages. Out-of-range pages are empty.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}

	// Compare pages before multiplying so huge page numbers cannot overflow.
	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	p.Items = items[start:end]
	return p
}
