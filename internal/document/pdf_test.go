package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPDF writes a PDF with one Helvetica text line per page.
func writeTestPDF(t *testing.T, path string, texts ...string) {
	t.Helper()

	var b bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	b.WriteString("%PDF-1.4\n")
	kids := make([]string, len(texts))
	for i := range texts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(texts)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range texts {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
}

func pageTexts(t *testing.T, path string) []string {
	t.Helper()
	doc, err := NewPDF(nil).Open(context.Background(), path)
	require.NoError(t, err)
	texts, err := Texts(context.Background(), doc)
	require.NoError(t, err)
	for i := range texts {
		texts[i] = strings.TrimSpace(texts[i])
	}
	return texts
}

// stampedPages reports, per 1-based page, whether its content stream carries
// a watermark.
func stampedPages(t *testing.T, path string) map[int]bool {
	t.Helper()
	n, err := api.PageCountFile(path)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, api.ExtractContentFile(path, dir, nil, config()))

	stem := strings.TrimSuffix(filepath.Base(path), ".pdf")
	out := make(map[int]bool, n)
	for p := 1; p <= n; p++ {
		content, err := os.ReadFile(filepath.Join(dir, stem+"_Content_page_"+strconv.Itoa(p)+".txt"))
		require.NoError(t, err)
		out[p] = strings.Contains(string(content), "/Subtype /Watermark")
	}
	return out
}

func TestPDF_Open(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.pdf")
	writeTestPDF(t, src, "first", "second", "third")

	assert.Equal(t, []string{"first", "second", "third"}, pageTexts(t, src))
}

func TestPDF_Reorder(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	writeTestPDF(t, src, "first", "second", "third")

	tests := []struct {
		name  string
		order []int
		want  []string
	}{
		{name: "identity", order: []int{0, 1, 2}, want: []string{"first", "second", "third"}},
		{name: "reversed", order: []int{2, 1, 0}, want: []string{"third", "second", "first"}},
		{name: "repeats", order: []int{2, 0, 1, 0}, want: []string{"third", "first", "second", "first"}},
		{name: "subset", order: []int{1}, want: []string{"second"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "out.pdf")
			require.NoError(t, NewPDF(nil).Reorder(context.Background(), src, tt.order, dst))

			n, err := api.PageCountFile(dst)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
			assert.Equal(t, tt.want, pageTexts(t, dst))
		})
	}
}

func TestPDF_ReorderErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	writeTestPDF(t, src, "first", "second")
	p := NewPDF(nil)

	assert.Error(t, p.Reorder(context.Background(), src, nil, filepath.Join(dir, "empty.pdf")))
	assert.Error(t, p.Reorder(context.Background(), src, []int{0, 2}, filepath.Join(dir, "range.pdf")))
	assert.NoFileExists(t, filepath.Join(dir, "range.pdf"))
}

func TestPDF_Annotate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	writeTestPDF(t, src, "first", "second", "third")

	tests := []struct {
		name    string
		inPlace bool
	}{
		{name: "separate output"},
		{name: "in place", inPlace: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := src
			dst := filepath.Join(t.TempDir(), "labelled.pdf")
			if tt.inPlace {
				writeTestPDF(t, dst, "first", "second", "third")
				in = dst
			}

			err := NewPDF(nil).Annotate(context.Background(), in, map[int]string{0: "1", 2: "2"}, dst)
			require.NoError(t, err)

			assert.Equal(t, map[int]bool{1: true, 2: false, 3: true}, stampedPages(t, dst))
			texts := pageTexts(t, dst)
			require.Len(t, texts, 3)
			for i, want := range []string{"first", "second", "third"} {
				assert.Contains(t, texts[i], want)
			}
			assert.Equal(t, map[int]bool{1: false, 2: false, 3: false}, stampedPages(t, src))
		})
	}
}
