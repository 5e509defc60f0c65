package browse

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rating(v int) *int { return &v }

func sampleRows() []MarkerRow {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []MarkerRow{
		{ID: "1", Title: "item 10", SceneTitle: "Beach", Seconds: 30, TagIDs: []string{"a"}, TagNames: []string{"Sunset"}, Rating: rating(3), CreatedAt: base.Add(3 * time.Hour)},
		{ID: "2", Title: "Item 2", SceneTitle: "City", Seconds: 10, TagIDs: []string{"a", "b"}, TagNames: []string{"Night"}, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "3", Title: "Élan", SceneTitle: "Beach", Seconds: 20, PrimaryTagID: "c", TagIDs: []string{"b", "c"}, TagNames: []string{"Dance"}, Rating: rating(5), CreatedAt: base.Add(2 * time.Hour)},
		{ID: "4", Title: "apple", SceneTitle: "Forest", Seconds: 20, Rating: rating(3), CreatedAt: base},
	}
}

func ids(rows []MarkerRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterSort_Query(t *testing.T) {
	rows := sampleRows()

	assert.Equal(t, []string{"1", "3"}, ids(FilterSort(rows, Criteria{Query: "BEACH"})))
	assert.Equal(t, []string{"2"}, ids(FilterSort(rows, Criteria{Query: "night"})))
	assert.Equal(t, []string{"3"}, ids(FilterSort(rows, Criteria{Query: "élan"})))
	assert.Len(t, FilterSort(rows, Criteria{Query: "  "}), 4)
}

func TestFilterSort_Tags(t *testing.T) {
	rows := sampleRows()

	assert.Equal(t, []string{"2"}, ids(FilterSort(rows, Criteria{TagIDs: []string{"a", "b"}})))
	assert.Equal(t, []string{"3"}, ids(FilterSort(rows, Criteria{TagIDs: []string{"c"}})))
}

func TestFilterSort_MinRating(t *testing.T) {
	rows := sampleRows()
	assert.Equal(t, []string{"1", "3", "4"}, ids(FilterSort(rows, Criteria{MinRating: 3})))
	assert.Equal(t, []string{"3"}, ids(FilterSort(rows, Criteria{MinRating: 4})))
}

func TestFilterSort_Sort(t *testing.T) {
	rows := sampleRows()

	assert.Equal(t, []string{"2", "3", "4", "1"}, ids(FilterSort(rows, Criteria{Sort: SortSeconds})))
	// Equal seconds keep input order when descending too.
	assert.Equal(t, []string{"1", "3", "4", "2"}, ids(FilterSort(rows, Criteria{Sort: SortSeconds, Desc: true})))
	assert.Equal(t, []string{"3", "1", "4", "2"}, ids(FilterSort(rows, Criteria{Sort: SortRating, Desc: true})))
	assert.Equal(t, []string{"4", "2", "3", "1"}, ids(FilterSort(rows, Criteria{Sort: SortCreated})))

	// Collation ignores case and orders numbers numerically.
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(FilterSort(rows, Criteria{Sort: SortTitle})))
}

func TestFilterSort_DoesNotModifyInput(t *testing.T) {
	rows := sampleRows()
	FilterSort(rows, Criteria{Sort: SortSeconds})
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(rows))
}

func TestValidSort(t *testing.T) {
	assert.True(t, ValidSort(""))
	assert.True(t, ValidSort(SortTitle))
	assert.False(t, ValidSort("random"))
}

func TestSortAndFilterByName(t *testing.T) {
	names := []string{"zoe", "Anna", "émile", "bob"}
	SortByName(names, func(s string) string { return s }, false)
	assert.Equal(t, []string{"Anna", "bob", "émile", "zoe"}, names)

	SortByName(names, func(s string) string { return s }, true)
	assert.Equal(t, "zoe", names[0])

	assert.Equal(t, []string{"Anna"}, FilterByName(names, func(s string) string { return s }, "ANN"))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Items)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 5, p.Total)

	p = Paginate(items, 3, 2)
	assert.Equal(t, []int{5}, p.Items)

	p = Paginate(items, 9, 2)
	require.NotNil(t, p.Items)
	assert.Empty(t, p.Items)

	p = Paginate(items, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Len(t, p.Items, 5)

	p = Paginate([]int{}, 1, 10)
	assert.Zero(t, p.TotalPages)
	assert.Empty(t, p.Items)
}

func TestPaginate_HugePage(t *testing.T) {
	items := []int{1, 2, 3}

	p := Paginate(items, 288230376151711745, 40)
	require.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 3, p.Total)

	p = Paginate(items, math.MaxInt, MaxPerPage)
	assert.Empty(t, p.Items)
}
