package layout

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

func sampleTree(t *testing.T) *treemap.Node {
	t.Helper()
	root, err := treemap.Build([]treemap.Record{
		{Region: "north", Group: "A", Cluster: "a1", Size: 3},
		{Region: "north", Group: "A", Cluster: "a2", Size: 1},
		{Region: "south", Group: "B", Cluster: "b1", Size: 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	root.Polygon = geom.Rectangle(0, 0, 100, 50)
	return root
}

func sampleLayout(t *testing.T) Layout {
	t.Helper()
	root := sampleTree(t)
	return Layout{
		Width:  100,
		Height: 50,
		Seed:   10,
		Shape:  ShapeRectangle,
		Clip:   root.Polygon,
		Total:  root.Value,
		Cells:  CellsFromTree(root),
	}
}

func TestCellsFromTree(t *testing.T) {
	l := sampleLayout(t)

	if len(l.Cells) != 8 {
		t.Fatalf("got %d cells, want 8", len(l.Cells))
	}
	if l.Cells[0].Depth != treemap.DepthRoot || len(l.Cells[0].Path) != 0 {
		t.Errorf("first cell = %+v, want root", l.Cells[0])
	}

	tests := []struct {
		depth int
		want  int
	}{
		{treemap.DepthRegion, 2},
		{treemap.DepthGroup, 2},
		{treemap.DepthCluster, 3},
	}
	for _, tt := range tests {
		if got := len(l.AtDepth(tt.depth)); got != tt.want {
			t.Errorf("AtDepth(%d) = %d cells, want %d", tt.depth, got, tt.want)
		}
	}

	c, ok := l.Find("north/A/a1")
	if !ok {
		t.Fatal("north/A/a1 not found")
	}
	if c.Key() != "a1" || c.Value != 3 {
		t.Errorf("cell = %+v", c)
	}
	if got := l.Share(c); got != 3.0/8.0 {
		t.Errorf("Share() = %v, want 0.375", got)
	}
	if _, ok := l.Find("north/Z"); ok {
		t.Error("Find() should miss unknown paths")
	}
	if got := l.AreaShare(l.Cells[0]); got != 1 {
		t.Errorf("root AreaShare() = %v, want 1", got)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	l := sampleLayout(t)

	data, err := Marshal(l)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"path": [`) {
		t.Errorf("marshalled layout missing cell paths:\n%s", data)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Width != l.Width || got.Seed != l.Seed || len(got.Cells) != len(l.Cells) {
		t.Errorf("round trip = %+v", got)
	}
	if got.Cells[3].PathString() != l.Cells[3].PathString() {
		t.Errorf("cell order changed: %q vs %q", got.Cells[3].PathString(), l.Cells[3].PathString())
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Malformed", `{"width": `},
		{"NoSize", `{"cells": [{"path": [], "depth": 0}]}`},
		{"NoCells", `{"width": 10, "height": 10}`},
		{"NoRoot", `{"width": 10, "height": 10, "cells": [{"path": ["a"], "depth": 1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.data)); err == nil {
				t.Error("Unmarshal() should fail")
			}
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	l := sampleLayout(t)

	if err := WriteFile(l, path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(got.Cells) != len(l.Cells) {
		t.Errorf("got %d cells, want %d", len(got.Cells), len(l.Cells))
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v", err)
	}
}
