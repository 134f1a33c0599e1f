package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longText(tag string) string {
	return tag + " " + strings.Repeat("x", 60)
}

func TestHasTextLayer(t *testing.T) {
	tests := []struct {
		name    string
		pages   []string
		wantErr bool
	}{
		{name: "all text", pages: []string{longText("a"), longText("b")}},
		{name: "four of five", pages: []string{longText("a"), longText("b"), "", longText("c"), longText("d"), ""}},
		{name: "three of five", pages: []string{longText("a"), "", "", longText("c"), longText("d")}, wantErr: true},
		{name: "short text", pages: []string{"   only a few words   "}, wantErr: true},
		{name: "no pages", pages: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HasTextLayer(NewMemory("doc.pdf", tt.pages))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNoTextLayer), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMemoryStore_ReorderIdentity(t *testing.T) {
	ctx := context.Background()
	pages := []string{"one", "two", "three"}
	store := NewMemoryStore(NewMemory("in.pdf", pages))

	require.NoError(t, store.Reorder(ctx, "in.pdf", []int{0, 1, 2}, "out.pdf"))

	out, err := store.Open(ctx, "out.pdf")
	require.NoError(t, err)
	got, err := Texts(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, pages, got)
}

func TestMemoryStore_ReorderRepeatsAndOmissions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewMemory("in.pdf", []string{"a", "b", "c"}))

	require.NoError(t, store.Reorder(ctx, "in.pdf", []int{2, 2, 0}, "out.pdf"))
	out, err := store.Open(ctx, "out.pdf")
	require.NoError(t, err)
	got, _ := Texts(ctx, out)
	assert.Equal(t, []string{"c", "c", "a"}, got)

	err = store.Reorder(ctx, "in.pdf", []int{3}, "bad.pdf")
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestMemoryStore_Annotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewMemory("in.pdf", []string{"a", "b", "c"}))

	require.NoError(t, store.Annotate(ctx, "in.pdf", map[int]string{0: "1", 2: "2"}, "out.pdf"))

	doc, err := store.Open(ctx, "out.pdf")
	require.NoError(t, err)
	mem := doc.(*Memory)

	l, ok := mem.Label(0)
	assert.True(t, ok)
	assert.Equal(t, "1", l)
	_, ok = mem.Label(1)
	assert.False(t, ok)
	text, _ := mem.PageText(1)
	assert.Equal(t, "b", text)

	err = store.Annotate(ctx, "in.pdf", map[int]string{5: "x"}, "bad.pdf")
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestMemoryStore_Extract(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewMemory("in.pdf", []string{"a", "b", "c", "d"}))

	require.NoError(t, store.Extract(ctx, "in.pdf", []int{2, 4}, "out.pdf"))
	out, err := store.Open(ctx, "out.pdf")
	require.NoError(t, err)
	got, _ := Texts(ctx, out)
	assert.Equal(t, []string{"b", "d"}, got)
}

func TestMemoryStore_OpenMissing(t *testing.T) {
	_, err := NewMemoryStore().Open(context.Background(), "nope.pdf")
	assert.Error(t, err)
}

func TestPDF_OpenInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := NewPDF(nil).Open(context.Background(), path)
	assert.Error(t, err)
}
