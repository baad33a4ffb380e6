package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/cellmap/pkg/layout"
)

// MemoryStore keeps layouts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	layouts map[string]layout.Layout
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{layouts: make(map[string]layout.Layout)}
}

func (s *MemoryStore) Save(ctx context.Context, l *layout.Layout) (string, error) {
	prepare(l)
	s.mu.Lock()
	s.layouts[l.ID] = *l
	s.mu.Unlock()
	return l.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*layout.Layout, error) {
	s.mu.RLock()
	l, ok := s.layouts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.layouts))
	for _, l := range s.layouts {
		out = append(out, Summarize(&l))
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if n := limitOrDefault(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.layouts, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func sortNewestFirst(out []Summary) {
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

var _ Store = (*MemoryStore)(nil)
