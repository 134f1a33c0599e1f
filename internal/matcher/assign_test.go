package matcher

import (
	"testing"

	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/stretchr/testify/assert"
)

func page(index int, ids ...string) models.Page {
	return models.Page{Index: index, Identifiers: ids}
}

func TestAssign_EndToEnd(t *testing.T) {
	records := models.RecordsFromIdentifiers([]string{"A-100", "A-200"})
	pages := []models.Page{page(0, "A200"), page(1, "A100")}

	got := Engine{}.Assign(records, pages)

	assert.Equal(t, map[int]int{0: 1, 1: 0}, got.Pages)
	assert.Equal(t, []int{}, got.Leftover)
	assert.Equal(t, []int{1, 0}, FinalOrder(got, len(records)))
	assert.Equal(t, models.MatchDetail{Page: 1, Score: 100, Reason: models.ReasonExact}, got.Details[0])
}

func TestAssign_DuplicateIdentifiersFirstWins(t *testing.T) {
	records := models.RecordsFromIdentifiers([]string{"A-100", "a100"})
	pages := []models.Page{page(0, "B1"), page(1, "A100")}

	got := Engine{}.Assign(records, pages)

	assert.Equal(t, map[int]int{0: 1}, got.Pages)
	assert.Equal(t, models.ReasonNoMatch, got.Details[1].Reason)
	assert.Equal(t, models.Unmatched, got.Details[1].Page)
	assert.Equal(t, []int{0}, got.Leftover)
}

func TestAssign_EmptyIdentifier(t *testing.T) {
	records := models.RecordsFromIdentifiers([]string{"", "A100"})
	pages := []models.Page{page(0, "A100")}

	got := Engine{}.Assign(records, pages)

	assert.Equal(t, models.MatchDetail{Page: models.Unmatched, Reason: models.ReasonEmptyIdentifier}, got.Details[0])
	assert.Equal(t, map[int]int{1: 0}, got.Pages)
}

func TestAssign_FirstExactPageWins(t *testing.T) {
	records := models.RecordsFromIdentifiers([]string{"A100"})
	pages := []models.Page{page(0), page(1, "A100"), page(2, "A100")}

	got := Engine{}.Assign(records, pages)

	assert.Equal(t, 1, got.Pages[0])
	assert.Equal(t, []int{0, 2}, got.Leftover)
}

func TestAssign_FuzzyPicksBestPage(t *testing.T) {
	records := models.RecordsFromIdentifiers([]string{"ABCDEFGHIJ"})
	pages := []models.Page{page(0, "ABCDEFGXYZ"), page(1, "ABCDEFGHIX")}

	got := Engine{UseFuzzy: true, Threshold: 70}.Assign(records, pages)

	assert.Equal(t, 1, got.Pages[0])
	assert.Equal(t, "fuzzy(90%)", got.Details[0].Reason)
}

func TestAssign_Invariants(t *testing.T) {
	records := models.RecordsFromIdentifiers([]string{"A1", "", "A2", "A1", "A3", "ZZ"})
	pages := []models.Page{page(0, "A3"), page(1, "A1", "A2"), page(2, "A2"), page(3, "A1")}

	got := Engine{}.Assign(records, pages)

	seen := make(map[int]bool)
	for rec, p := range got.Pages {
		assert.False(t, seen[p], "page %d assigned twice", p)
		seen[p] = true
		assert.NotEqual(t, 1, rec, "record with empty identifier was assigned")
	}
	assert.Len(t, got.Details, len(records))
	assert.Equal(t, len(pages), len(got.Pages)+len(got.Leftover))
	assert.Equal(t, map[int]int{0: 1, 2: 2, 3: 3, 4: 0}, got.Pages)
}

func TestFinalOrder(t *testing.T) {
	a := models.Assignment{Pages: map[int]int{0: 2, 2: 0}, Leftover: []int{1, 3}}
	assert.Equal(t, []int{2, 0, 1, 3}, FinalOrder(a, 3))
}

func TestLabels(t *testing.T) {
	records := models.RecordsFromIdentifiers([]string{"A-1", "B-2", "a1", "C-3"})
	a := models.Assignment{Pages: map[int]int{0: 3, 1: 0, 2: 1}, Leftover: []int{2}}

	got := Labels(records, a)

	assert.Equal(t, map[int]string{0: "1", 1: "2", 2: "1"}, got)
}
