package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/matzehuels/cellmap/pkg/cache"
	cerrors "github.com/matzehuels/cellmap/pkg/errors"
	"github.com/matzehuels/cellmap/pkg/position"
	"github.com/matzehuels/cellmap/pkg/records"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// =============================================================================
// Loading
// =============================================================================

// Load returns the records named by opts: the inline Records when set,
// otherwise the decoded Input file.
func Load(opts Options) ([]treemap.Record, error) {
	if len(opts.Records) > 0 {
		return opts.Records, nil
	}
	data, err := readInput(opts.Input)
	if err != nil {
		return nil, err
	}
	return decodeRecords(opts.Input, data)
}

// LoadHints returns the position hints of opts, reading HintsFile when no
// inline hints are given.
func LoadHints(opts Options) ([]position.Hint, error) {
	if len(opts.Hints) > 0 || opts.HintsFile == "" {
		return opts.Hints, nil
	}
	if err := cerrors.ValidatePath(opts.HintsFile); err != nil {
		return nil, err
	}
	hints, err := records.ImportHints(opts.HintsFile)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "read hints %s", opts.HintsFile)
	}
	return hints, nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, cerrors.Wrap(cerrors.ErrCodeFileNotFound, err, "input %s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func decodeRecords(path string, data []byte) ([]treemap.Record, error) {
	format, err := records.FormatFromPath(path)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidFormat, err, "unsupported input %s", path)
	}
	recs, err := records.Read(bytes.NewReader(data), format)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "decode %s", path)
	}
	if len(recs) == 0 {
		return nil, cerrors.New(cerrors.ErrCodeEmptyDataset, "%s contains no records", path)
	}
	if err := ValidateRecords(recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ValidateRecords checks that recs is not empty and that every key is
// acceptable.
func ValidateRecords(recs []treemap.Record) error {
	if len(recs) == 0 {
		return cerrors.New(cerrors.ErrCodeEmptyDataset, "no records given")
	}
	for _, r := range recs {
		for _, k := range []string{r.Region, r.Group, r.Cluster} {
			if err := cerrors.ValidateKey(k); err != nil {
				return err
			}
		}
	}
	return nil
}


// encodeRecords returns the canonical JSON form of recs. Absent sizes are
// omitted, which plain json.Marshal cannot do for NaN.
func encodeRecords(recs []treemap.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := records.WriteJSON(recs, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DatasetHash returns the content hash of recs, used to key layouts.
func DatasetHash(recs []treemap.Record) string {
	data, err := encodeRecords(recs)
	if err != nil {
		// Infinite sizes have no JSON form.
		data = []byte(fmt.Sprintf("%v", recs))
	}
	return cache.Hash(data)
}
