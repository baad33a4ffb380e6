package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/cellmap/pkg/label"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// captureUI redirects status output to a buffer for the rest of the test.
func captureUI(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := uiOut
	uiOut = &buf
	t.Cleanup(func() { uiOut = prev })
	return &buf
}

func TestPrintStats(t *testing.T) {
	tests := []struct {
		name    string
		cells   int
		labels  int
		cached  bool
		want    []string
		notWant []string
	}{
		{"fresh", 11, 7, false, []string{"11 cells", "7 labels", iconFresh}, []string{iconCached}},
		{"cached", 11, 0, true, []string{"11 cells", iconCached}, []string{"labels"}},
		{"empty", 0, 0, false, []string{iconFresh}, []string{"cells"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureUI(t)
			printStats(tt.cells, tt.labels, tt.cached)
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output %q should contain %q", out, s)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("output %q should not contain %q", out, s)
				}
			}
		})
	}
}

func TestPrintDiagnostics(t *testing.T) {
	buf := captureUI(t)
	printDiagnostics(layout.Layout{})
	if buf.Len() != 0 {
		t.Errorf("clean layout should print nothing, got %q", buf.String())
	}

	printDiagnostics(layout.Layout{Diagnostics: layout.Diagnostics{
		Partition:         treemap.Diagnostics{NonConverged: 2, Degenerate: []string{"north/A"}},
		Labels:            label.Stats{Missing: 3},
		DegenerateCorners: 4,
	}})
	out := buf.String()
	for _, want := range []string{"2 cell(s) did not converge", "1 cell(s) were crowded out", "3 label(s)", "4 outline corner(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got %q", want, out)
		}
	}
}

func TestPrintCellDetails(t *testing.T) {
	buf := captureUI(t)
	printCellDetails(CellRow{Path: "north/A", Depth: 2, Value: 40, Count: 2, Target: 0.4, Achieved: 0.38})
	out := buf.String()
	for _, want := range []string{"north/A", "40", "40.00%", "38.00%", "5.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("details should contain %q, got %q", want, out)
		}
	}
	if strings.Contains(out, "Iterations") {
		t.Error("rows without a relaxation should not list iterations")
	}
}
