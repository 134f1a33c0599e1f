package document

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Memory is a document held as page texts.
type Memory struct {
	path   string
	pages  []string
	labels map[int]string
}

// NewMemory returns a document with the given page texts.
func NewMemory(path string, pages []string) *Memory {
	return &Memory{path: path, pages: append([]string(nil), pages...)}
}

func (m *Memory) Path() string   { return m.path }
func (m *Memory) PageCount() int { return len(m.pages) }

func (m *Memory) PageText(i int) (string, error) {
	if i < 0 || i >= len(m.pages) {
		return "", fmt.Errorf("page %d of %d: %w", i, len(m.pages), ErrPageOutOfRange)
	}
	return m.pages[i], nil
}

// Label returns the label stamped on page i, if any.
func (m *Memory) Label(i int) (string, bool) {
	l, ok := m.labels[i]
	return l, ok
}

// MemoryStore keeps Memory documents by path. It implements Opener and
// Assembler and is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Memory
}

// NewMemoryStore returns a store holding docs.
func NewMemoryStore(docs ...*Memory) *MemoryStore {
	s := &MemoryStore{docs: make(map[string]*Memory)}
	for _, d := range docs {
		s.docs[d.path] = d
	}
	return s
}

// Put adds or replaces a document.
func (s *MemoryStore) Put(doc *Memory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.path] = doc
}

func (s *MemoryStore) get(path string) (*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return d, nil
}

func (s *MemoryStore) Open(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.get(path)
}

func (s *MemoryStore) Reorder(ctx context.Context, src string, order []int, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := s.get(src)
	if err != nil {
		return err
	}
	if err := checkRange(order, len(d.pages), 0); err != nil {
		return fmt.Errorf("reorder %s: %w", src, err)
	}

	out := &Memory{path: dst, pages: make([]string, len(order))}
	for i, p := range order {
		out.pages[i] = d.pages[p]
		if l, ok := d.labels[p]; ok {
			out.setLabel(i, l)
		}
	}
	s.Put(out)
	return nil
}

func (s *MemoryStore) Annotate(ctx context.Context, src string, labels map[int]string, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := s.get(src)
	if err != nil {
		return err
	}

	out := NewMemory(dst, d.pages)
	for p, l := range d.labels {
		out.setLabel(p, l)
	}
	for p, l := range labels {
		if p < 0 || p >= len(d.pages) {
			return fmt.Errorf("annotate %s: page %d of %d: %w", src, p, len(d.pages), ErrPageOutOfRange)
		}
		out.setLabel(p, l)
	}
	s.Put(out)
	return nil
}

func (s *MemoryStore) Extract(ctx context.Context, src string, pages []int, dst string) error {
	order := make([]int, len(pages))
	for i, p := range pages {
		order[i] = p - 1
	}
	return s.Reorder(ctx, src, order, dst)
}

func (m *Memory) setLabel(i int, l string) {
	if m.labels == nil {
		m.labels = make(map[int]string)
	}
	m.labels[i] = l
}
