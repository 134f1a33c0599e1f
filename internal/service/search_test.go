package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/recency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrinter struct {
	jobs []printer.Job
	err  error
}

func (p *fakePrinter) Print(ctx context.Context, job printer.Job) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

type searchFixture struct {
	dir   string
	store *document.MemoryStore
}

func (f *searchFixture) add(t *testing.T, name string, modTime time.Time, pages ...string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	f.store.Put(document.NewMemory(path, pages))
	return path
}

func newSearchService(t *testing.T, p printer.Printer) (*SearchService, *searchFixture, *history.Store) {
	t.Helper()
	hist, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	f := &searchFixture{dir: t.TempDir(), store: document.NewMemoryStore()}
	cfg := config.Default()
	cfg.Search.Folder = f.dir
	cfg.Print.Printer = "office"
	svc, err := NewSearchService(cfg, f.store, p, hist, nil, nil)
	require.NoError(t, err)
	return svc, f, hist
}

func TestSearchService_Find(t *testing.T) {
	svc, f, hist := newSearchService(t, nil)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)

	older := f.add(t, "orders_2024-04-01.pdf", base.Add(2*time.Hour), "주문 A-123456", "other", "A-123456 cont.")
	newer := f.add(t, "orders_2024-04-20.pdf", base, "cover", "주문 A-123456")
	f.add(t, "unrelated.pdf", base.Add(time.Hour), "B-999999")

	result, rep, err := svc.Find(context.Background(), "", "a-123456", nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "A123456", result.Identifier)
	assert.Equal(t, newer, result.Best.Path)
	assert.Equal(t, []int{2}, result.Best.Pages)
	assert.Equal(t, models.TierFilenameDate, result.DecidedBy)
	require.Len(t, result.All, 2)
	assert.Equal(t, newer, result.All[0].Path)
	assert.Equal(t, older, result.All[1].Path)
	assert.Equal(t, 3, rep.Total)
	assert.Empty(t, rep.Failures)

	entries, err := hist.RecentSearches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Found)
	assert.Equal(t, newer, entries[0].UsedFile)
	assert.Equal(t, "2", entries[0].PageRanges)
	assert.Equal(t, 2, entries[0].TotalMatches)
}

func TestSearchService_FindNothing(t *testing.T) {
	svc, f, hist := newSearchService(t, nil)
	f.add(t, "a.pdf", time.Now(), "B-999999")

	result, rep, err := svc.Find(context.Background(), f.dir, "A-123456", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, rep.Scanned)

	entries, err := hist.RecentSearches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Found)
}

func TestSearchService_FindInvalidFolder(t *testing.T) {
	svc, f, _ := newSearchService(t, nil)
	_, _, err := svc.Find(context.Background(), filepath.Join(f.dir, "missing"), "A-123456", nil)
	assert.Error(t, err)
}

func TestSearchService_FindAll(t *testing.T) {
	svc, f, _ := newSearchService(t, nil)
	now := time.Now()
	f.add(t, "a.pdf", now.Add(-time.Hour), "A-111111", "B-222222")
	b := f.add(t, "b.pdf", now, "A-111111 again")

	results, rep, err := svc.FindAll(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Total)

	require.Len(t, results, 2)
	assert.Equal(t, "A111111", results[0].Identifier)
	assert.Equal(t, b, results[0].Best.Path)
	assert.Len(t, results[0].All, 2)
	assert.Equal(t, models.TierModifiedTime, results[0].DecidedBy)
	assert.Equal(t, "B222222", results[1].Identifier)
	assert.Equal(t, []int{2}, results[1].Best.Pages)
}

func TestSearchService_Print(t *testing.T) {
	p := &fakePrinter{}
	svc, f, hist := newSearchService(t, p)
	path := f.add(t, "a.pdf", time.Now(), "A-123456", "A-123456", "x", "A-123456")

	result, _, err := svc.Find(context.Background(), "", "A-123456", nil)
	require.NoError(t, err)

	job, err := svc.Print(context.Background(), result, PrintOptions{Copies: 2})
	require.NoError(t, err)
	assert.Equal(t, "1-2,4", job.Pages)

	require.Len(t, p.jobs, 1)
	assert.Equal(t, printer.Job{Path: path, Pages: "1-2,4", Printer: "office", Copies: 2}, p.jobs[0])

	prints, err := hist.RecentPrints(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, prints, 1)
	assert.True(t, prints[0].Success)
	assert.Equal(t, "1-2,4", prints[0].PageRanges)
}

func TestSearchService_PrintExtracted(t *testing.T) {
	p := &fakePrinter{}
	svc, f, _ := newSearchService(t, p)
	path := f.add(t, "a.pdf", time.Now(), "x", "A-123456")

	result, _, err := svc.Find(context.Background(), "", "A-123456", nil)
	require.NoError(t, err)

	job, err := svc.Print(context.Background(), result, PrintOptions{Extract: true})
	require.NoError(t, err)
	assert.Equal(t, path, job.Path)

	require.Len(t, p.jobs, 1)
	assert.NotEqual(t, path, p.jobs[0].Path)
	assert.Empty(t, p.jobs[0].Pages)
	assert.Equal(t, 1, p.jobs[0].Copies)
}

func TestSearchService_PrintErrors(t *testing.T) {
	svc, _, _ := newSearchService(t, nil)
	_, err := svc.Print(context.Background(), nil, PrintOptions{})
	assert.ErrorIs(t, err, recency.ErrNoMatches)

	_, err = svc.Print(context.Background(), &models.SearchResult{}, PrintOptions{})
	assert.Error(t, err)

	p := &fakePrinter{err: errors.New("printer offline")}
	svc, f, hist := newSearchService(t, p)
	f.add(t, "a.pdf", time.Now(), "A-123456")
	result, _, err := svc.Find(context.Background(), "", "A-123456", nil)
	require.NoError(t, err)

	_, err = svc.Print(context.Background(), result, PrintOptions{})
	assert.ErrorContains(t, err, "printer offline")

	prints, err := hist.RecentPrints(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, prints, 1)
	assert.False(t, prints[0].Success)
	assert.Equal(t, "printer offline", prints[0].Error)
}

func TestSearchService_Extract(t *testing.T) {
	svc, f, _ := newSearchService(t, nil)
	src := f.add(t, "a.pdf", time.Now(), "p1", "p2", "p3", "p4")
	dst := filepath.Join(f.dir, "out.pdf")

	pages, err := svc.Extract(context.Background(), src, "1,3-4", dst)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, pages)

	doc, err := f.store.Open(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount())

	_, err = svc.Extract(context.Background(), src, "2-9", dst)
	assert.ErrorIs(t, err, printer.ErrInvalidRange)
}
