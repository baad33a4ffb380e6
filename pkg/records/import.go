package records

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/cellmap/pkg/position"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// Format identifies an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned for inputs whose format cannot be determined.
var ErrUnknownFormat = errors.New("records: unknown format")

// FormatFromPath returns the format implied by the extension of path.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// record is the wire shape of one record. Sizes are pointers so an absent
// size can be told apart from zero.
type record struct {
	Region string `json:"region" yaml:"region"`

	Group      string `json:"group" yaml:"group"`
	BigCluster string `json:"bigClusterLabel" yaml:"bigClusterLabel"`

	Cluster      string `json:"cluster" yaml:"cluster"`
	ClusterLabel string `json:"clusterLabel" yaml:"clusterLabel"`

	Size       *float64 `json:"size" yaml:"size"`
	BubbleSize *float64 `json:"bubbleSize" yaml:"bubbleSize"`
}

func (r record) toRecord() treemap.Record {
	out := treemap.Record{
		Region:  r.Region,
		Group:   firstNonEmpty(r.Group, r.BigCluster),
		Cluster: firstNonEmpty(r.Cluster, r.ClusterLabel),
		Size:    math.NaN(),
	}
	switch {
	case r.Size != nil:
		out.Size = *r.Size
	case r.BubbleSize != nil:
		out.Size = *r.BubbleSize
	}
	return out
}

type dataset struct {
	Records []record `json:"records" yaml:"records"`
}

// Read decodes records in the given format from r. Read does not close r.
func Read(r io.Reader, format Format) ([]treemap.Record, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(r)
	case FormatYAML:
		return ReadYAML(r)
	case FormatCSV:
		return ReadCSV(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Import reads the records file at path, choosing the format from its
// extension.
func Import(path string) ([]treemap.Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format)
}

// ReadJSON decodes a JSON array of records, or an object holding one under
// "records".
func ReadJSON(r io.Reader) ([]treemap.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	data = bytes.TrimSpace(data)

	var list []record
	if len(data) > 0 && data[0] == '{' {
		var ds dataset
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		list = ds.Records
	} else if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return convert(list), nil
}

// ReadYAML decodes a YAML sequence of records, or a mapping holding one
// under "records".
func ReadYAML(r io.Reader) ([]treemap.Record, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode: %w", err)
	}

	var list []record
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.MappingNode {
		var ds dataset
		if err := root.Decode(&ds); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		list = ds.Records
	} else if err := root.Decode(&list); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return convert(list), nil
}

// csvColumns maps accepted header names to record fields.
var csvColumns = map[string]string{
	"region":          "region",
	"group":           "group",
	"bigclusterlabel": "group",
	"cluster":         "cluster",
	"clusterlabel":    "cluster",
	"size":            "size",
	"bubblesize":      "size",
}

// ReadCSV decodes CSV records. The first row is a header; a region column
// is required. An empty size cell means the size is absent.
func ReadCSV(r io.Reader) ([]treemap.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		if field, ok := csvColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	if _, ok := cols["region"]; !ok {
		return nil, fmt.Errorf("header: missing region column")
	}

	cell := func(row []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []treemap.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec := treemap.Record{
			Region:  cell(row, "region"),
			Group:   cell(row, "group"),
			Cluster: cell(row, "cluster"),
			Size:    math.NaN(),
		}
		if s := cell(row, "size"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: size %q: %w", line, s, err)
			}
			rec.Size = v
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadHints decodes position hints in JSON or YAML.
func ReadHints(r io.Reader, format Format) ([]position.Hint, error) {
	var hints []position.Hint
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&hints); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&hints); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: hints must be json or yaml, got %q", ErrUnknownFormat, format)
	}
	for i, h := range hints {
		if h.Depth < treemap.DepthRegion || h.Depth > treemap.MaxDepth {
			return nil, fmt.Errorf("hint %d (%s): depth %d out of range", i, h.Key, h.Depth)
		}
		if math.IsNaN(h.X) || math.IsNaN(h.Y) || math.IsInf(h.X, 0) || math.IsInf(h.Y, 0) {
			return nil, fmt.Errorf("hint %d (%s): coordinates must be finite", i, h.Key)
		}
	}
	return hints, nil
}

// ImportHints reads the hints file at path.
func ImportHints(path string) ([]position.Hint, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadHints(f, format)
}

func convert(list []record) []treemap.Record {
	out := make([]treemap.Record, len(list))
	for i, r := range list {
		out[i] = r.toRecord()
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
