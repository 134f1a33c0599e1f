package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultLabelPoints is the font size of stamped page labels.
const DefaultLabelPoints = 5

// PDF opens PDF files with ledongthuc/pdf and composes new ones with pdfcpu.
type PDF struct {
	LabelPoints int
	Logger      *slog.Logger
}

// NewPDF returns a PDF with default label settings.
func NewPDF(logger *slog.Logger) *PDF {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDF{LabelPoints: DefaultLabelPoints, Logger: logger}
}

// Open reads the text of every page of the file at path. Malformed files can
// make the text extractor panic; that is reported as an error.
func (p *PDF) Open(ctx context.Context, path string) (doc Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			p.logger().Debug("page text unavailable", "path", path, "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}
	return NewMemory(path, pages), nil
}

// Reorder copies the zero-based pages of src into dst in order. pdfcpu keeps
// the given sequence including repeats.
func (p *PDF) Reorder(ctx context.Context, src string, order []int, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	count, err := api.PageCountFile(src)
	if err != nil {
		return fmt.Errorf("count pages of %s: %w", src, err)
	}
	if err := checkRange(order, count, 0); err != nil {
		return fmt.Errorf("reorder %s: %w", src, err)
	}
	if len(order) == 0 {
		return fmt.Errorf("reorder %s: empty page order", src)
	}

	selected := make([]string, len(order))
	for i, idx := range order {
		selected[i] = strconv.Itoa(idx + 1)
	}
	if err := api.CollectFile(src, dst, selected, config()); err != nil {
		return fmt.Errorf("collect pages of %s: %w", src, err)
	}
	p.logger().Debug("reordered pdf", "src", src, "dst", dst, "pages", len(order))
	return nil
}

// Extract copies the one-based pages of src into dst.
func (p *PDF) Extract(ctx context.Context, src string, pages []int, dst string) error {
	order := make([]int, len(pages))
	for i, pg := range pages {
		order[i] = pg - 1
	}
	return p.Reorder(ctx, src, order, dst)
}

// Annotate stamps each label right-aligned in the top-right margin of its
// zero-based page. Pages sharing a label are stamped in one pass. src and
// dst may be the same file.
func (p *PDF) Annotate(ctx context.Context, src string, labels map[int]string, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	count, err := api.PageCountFile(src)
	if err != nil {
		return fmt.Errorf("count pages of %s: %w", src, err)
	}

	byLabel := make(map[string][]string)
	var keys []int
	for pg := range labels {
		keys = append(keys, pg)
	}
	if err := checkRange(keys, count, 0); err != nil {
		return fmt.Errorf("annotate %s: %w", src, err)
	}
	sort.Ints(keys)
	var order []string
	for _, pg := range keys {
		l := labels[pg]
		if _, ok := byLabel[l]; !ok {
			order = append(order, l)
		}
		byLabel[l] = append(byLabel[l], strconv.Itoa(pg+1))
	}

	if src != dst {
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	desc := p.stampDescription()
	for _, l := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := api.AddTextWatermarksFile(dst, dst, byLabel[l], true, l, desc, config()); err != nil {
			return fmt.Errorf("stamp label %q on %s: %w", l, dst, err)
		}
	}
	p.logger().Debug("annotated pdf", "src", src, "dst", dst, "labels", len(order))
	return nil
}

func (p *PDF) stampDescription() string {
	points := p.LabelPoints
	if points <= 0 {
		points = DefaultLabelPoints
	}
	return fmt.Sprintf("fontname:Helvetica, points:%d, position:tr, offset:-15 -10, scalefactor:1 abs, rotation:0, opacity:1, fillcolor:#000000", points)
}

func (p *PDF) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func config() *model.Configuration {
	return model.NewDefaultConfiguration()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
