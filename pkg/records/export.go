package records

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/matzehuels/cellmap/pkg/treemap"
)

type exported struct {
	Region  string   `json:"region"`
	Group   string   `json:"group"`
	Cluster string   `json:"cluster"`
	Size    *float64 `json:"size,omitempty"`
}

// WriteJSON encodes records as an indented JSON array. Absent sizes are
// omitted, so the output reads back identically with [ReadJSON].
func WriteJSON(recs []treemap.Record, w io.Writer) error {
	out := make([]exported, len(recs))
	for i, r := range recs {
		out[i] = exported{Region: r.Region, Group: r.Group, Cluster: r.Cluster}
		if !math.IsNaN(r.Size) {
			size := r.Size
			out[i].Size = &size
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Export writes records to a JSON file at path.
func Export(recs []treemap.Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(recs, f)
}
