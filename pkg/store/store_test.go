package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/layout"
)

func testLayout(seed uint64, created time.Time) *layout.Layout {
	return &layout.Layout{
		CreatedAt: created,
		Width:     100,
		Height:    50,
		Seed:      seed,
		Total:     3,
		Cells: []layout.Cell{
			{Depth: 0, Value: 3, Polygon: geom.Rectangle(0, 0, 100, 50)},
			{Path: []string{"north"}, Depth: 1, Value: 3, Polygon: geom.Rectangle(0, 0, 100, 50)},
		},
	}
}

// testStore runs the behavior every Store implementation shares.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l := testLayout(1, time.Time{})
	id, err := s.Save(ctx, l)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id == "" || l.ID != id || l.CreatedAt.IsZero() {
		t.Fatalf("Save() should assign ID and CreatedAt: id=%q l=%+v", id, l)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Seed != 1 || len(got.Cells) != 2 || got.Cells[1].Key() != "north" {
		t.Errorf("Get() = %+v", got)
	}

	l.Seed = 2
	if _, err := s.Save(ctx, l); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, id); got == nil || got.Seed != 2 {
		t.Errorf("Save() with ID should replace, got %+v", got)
	}

	older := testLayout(3, base.Add(-time.Hour))
	newer := testLayout(4, base.Add(time.Hour*24*365*10))
	for _, x := range []*layout.Layout{older, newer} {
		if _, err := s.Save(ctx, x); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 || list[0].ID != newer.ID || list[2].ID != older.ID {
		t.Errorf("List() order = %+v", list)
	}
	if list[0].Cells != 2 {
		t.Errorf("Summary.Cells = %d, want 2", list[0].Cells)
	}
	if list, _ := s.List(ctx, 1); len(list) != 1 {
		t.Errorf("List(1) returned %d", len(list))
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)

	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(context.Background(), 0); err != nil {
		t.Errorf("List() should skip unreadable files: %v", err)
	}
	if _, err := s.Get(context.Background(), "../escape"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(traversal) error = %v", err)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b || len(a) != 36 {
		t.Errorf("NewID() = %q, %q", a, b)
	}
}
