package recency

import (
	"testing"
	"time"

	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int64) time.Time { return time.Unix(sec, 0) }

func TestSelectBest_ModifiedTime(t *testing.T) {
	matches := []models.OrderMatch{
		{Path: "a.pdf", ModTime: at(100)},
		{Path: "c.pdf", ModTime: at(300)},
		{Path: "b.pdf", ModTime: at(200)},
	}

	best, tier, err := SelectBest(matches)

	require.NoError(t, err)
	assert.Equal(t, "c.pdf", best.Path)
	assert.Equal(t, models.TierModifiedTime, tier)
}

func TestSelectBest_DocDateBeatsNewerMtime(t *testing.T) {
	now := time.Now()
	dated := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	for _, order := range [][]models.OrderMatch{
		{{Path: "dated.pdf", DocDate: &dated, ModTime: now.Add(-time.Hour)}, {Path: "plain.pdf", ModTime: now}},
		{{Path: "plain.pdf", ModTime: now}, {Path: "dated.pdf", DocDate: &dated, ModTime: now.Add(-time.Hour)}},
	} {
		best, tier, err := SelectBest(order)
		require.NoError(t, err)
		assert.Equal(t, "dated.pdf", best.Path)
		assert.Equal(t, models.TierDocDate, tier)
	}
}

func TestSelectBest_TierHoldsForAnyMagnitude(t *testing.T) {
	// An ancient document date still beats a filename date far in the future.
	ancient := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(9000, 1, 1, 0, 0, 0, 0, time.UTC)

	best, tier, err := SelectBest([]models.OrderMatch{
		{Path: "named.pdf", FilenameDate: &future, ModTime: future},
		{Path: "dated.pdf", DocDate: &ancient},
	})

	require.NoError(t, err)
	assert.Equal(t, "dated.pdf", best.Path)
	assert.Equal(t, models.TierDocDate, tier)
}

func TestSelectBest_SingleMatchReportsItsTier(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	_, tier, err := SelectBest([]models.OrderMatch{{FilenameDate: &d}})
	require.NoError(t, err)
	assert.Equal(t, models.TierFilenameDate, tier)
}

func TestSelectBest_Empty(t *testing.T) {
	_, _, err := SelectBest(nil)
	assert.ErrorIs(t, err, ErrNoMatches)
}

func TestPriority(t *testing.T) {
	d := time.Unix(1_700_000_000, 0)
	assert.Equal(t, int64(1_700_000_000_000_000), Priority(models.OrderMatch{DocDate: &d, ModTime: at(5)}))
	assert.Equal(t, int64(1_700_000_000_000), Priority(models.OrderMatch{FilenameDate: &d, ModTime: at(5)}))
	assert.Equal(t, int64(5), Priority(models.OrderMatch{ModTime: at(5)}))
}

func TestBuild(t *testing.T) {
	m := Build("A1", "/in/orders_2024-03-01.pdf", []int{2}, nil, at(10))

	require.NotNil(t, m.FilenameDate)
	assert.Equal(t, 2024, m.FilenameDate.Year())
	assert.Equal(t, models.TierFilenameDate, m.Tier())
	assert.Equal(t, m.FilenameDate.Unix()*1000, m.Priority)
}

func TestSort(t *testing.T) {
	d := time.Date(2023, 1, 1, 0, 0, 0, 0, time.Local)
	matches := []models.OrderMatch{
		{Path: "old.pdf", ModTime: at(1)},
		{Path: "dated.pdf", DocDate: &d},
		{Path: "new.pdf", ModTime: at(2)},
	}
	Sort(matches)
	assert.Equal(t, []string{"dated.pdf", "new.pdf", "old.pdf"}, []string{matches[0].Path, matches[1].Path, matches[2].Path})
}
