// Package store persists computed layouts so they can be served and
// re-rendered by ID.
//
// Implementations exist for different deployments:
//   - [MemoryStore]: in-process, for tests and single runs
//   - [FileStore]: a directory of JSON files, for the CLI
//   - [MongoStore]: a MongoDB collection, for the HTTP server
//
// # Usage
//
//	s, err := store.NewMongoStore(ctx, store.MongoConfig{URI: "mongodb://localhost:27017"})
//	if err != nil {
//	    return err
//	}
//	defer s.Close(ctx)
//
//	id, err := s.Save(ctx, &l)
//	saved, err := s.Get(ctx, id)
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/cellmap/pkg/layout"
)

// ErrNotFound is returned when no layout has the requested ID.
var ErrNotFound = errors.New("layout not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Store saves and loads layouts.
type Store interface {
	// Save stores l and returns its ID. A layout without an ID is given a
	// new one; a layout with an ID replaces any stored layout of that ID.
	// Save sets l.ID and, when zero, l.CreatedAt.
	Save(ctx context.Context, l *layout.Layout) (string, error)

	// Get returns the layout with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*layout.Layout, error)

	// List returns summaries of the newest layouts first.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Delete removes a layout. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	Close(ctx context.Context) error
}

// Summary describes a stored layout without its geometry.
type Summary struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Width     float64   `json:"width" bson:"width"`
	Height    float64   `json:"height" bson:"height"`
	Seed      uint64    `json:"seed" bson:"seed"`
	Total     float64   `json:"total" bson:"total"`
	Cells     int       `json:"cells" bson:"cells"`
}

// Summarize returns the summary of l.
func Summarize(l *layout.Layout) Summary {
	return Summary{
		ID:        l.ID,
		CreatedAt: l.CreatedAt,
		Width:     l.Width,
		Height:    l.Height,
		Seed:      l.Seed,
		Total:     l.Total,
		Cells:     len(l.Cells),
	}
}

// NewID returns a random layout ID.
func NewID() string { return uuid.NewString() }

// prepare assigns an ID and creation time to l where missing.
func prepare(l *layout.Layout) {
	if l.ID == "" {
		l.ID = NewID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
