package cli

import (
	"context"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/pipeline"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

func testLayout(t *testing.T) layout.Layout {
	t.Helper()
	recs := []treemap.Record{
		{Region: "north", Group: "A", Cluster: "a1", Size: 30},
		{Region: "north", Group: "A", Cluster: "a2", Size: 10},
		{Region: "north", Group: "B", Cluster: "b1", Size: 20},
		{Region: "south", Group: "C", Cluster: "c1", Size: 25},
		{Region: "south", Group: "C", Cluster: "c2", Size: 15},
	}
	l, err := pipeline.GenerateLayout(context.Background(), recs, pipeline.Options{Shape: layout.ShapeRectangle})
	if err != nil {
		t.Fatalf("GenerateLayout: %v", err)
	}
	return l
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBuildCellRows(t *testing.T) {
	l := testLayout(t)
	rows := buildCellRows(l)

	if len(rows) != len(l.Cells)-1 {
		t.Fatalf("rows = %d, want every cell but the root (%d)", len(rows), len(l.Cells)-1)
	}

	var regionTarget, regionAchieved float64
	for _, r := range rows {
		if r.Depth == 1 {
			regionTarget += r.Target
			regionAchieved += r.Achieved
		}
		if r.Depth == treemap.DepthCluster && r.Relaxed {
			t.Errorf("leaf %s should not report a relaxation", r.Path)
		}
	}
	if math.Abs(regionTarget-1) > 1e-9 {
		t.Errorf("region targets sum to %v, want 1", regionTarget)
	}
	if math.Abs(regionAchieved-1) > 0.05 {
		t.Errorf("region areas sum to %v, want about 1", regionAchieved)
	}

	north := rows[0]
	if north.Path != "north" || !north.Relaxed {
		t.Errorf("first row = %+v, want the relaxed north region", north)
	}
}

func TestCellRowError(t *testing.T) {
	tests := []struct {
		row  CellRow
		want float64
	}{
		{CellRow{Target: 0.5, Achieved: 0.5}, 0},
		{CellRow{Target: 0.5, Achieved: 0.4}, 0.2},
		{CellRow{Target: 0.25, Achieved: 0.3}, 0.2},
		{CellRow{Target: 0, Achieved: 0.1}, 0},
	}
	for _, tt := range tests {
		if got := tt.row.Error(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Error(%+v) = %v, want %v", tt.row, got, tt.want)
		}
	}
}

func TestInspectModelNavigation(t *testing.T) {
	m := NewInspectModel(testLayout(t))
	total := len(m.visible)

	next, _ := m.Update(key("d"))
	m = next.(InspectModel)
	if m.MaxDepth != 1 || len(m.visible) != 2 {
		t.Fatalf("depth filter 1: MaxDepth=%d visible=%d, want 1 and 2 regions", m.MaxDepth, len(m.visible))
	}

	for range 3 {
		next, _ = m.Update(key("d"))
		m = next.(InspectModel)
	}
	if m.MaxDepth != 0 || len(m.visible) != total {
		t.Errorf("cycling past the deepest level should list everything, got depth %d with %d rows", m.MaxDepth, len(m.visible))
	}

	next, _ = m.Update(key("down"))
	m = next.(InspectModel)
	if m.Cursor != 1 {
		t.Errorf("Cursor = %d, want 1", m.Cursor)
	}

	next, cmd := m.Update(key("enter"))
	m = next.(InspectModel)
	if m.Selected == nil || m.Selected.Path != m.Rows[m.visible[1]].Path {
		t.Errorf("enter should select the cursor row, got %+v", m.Selected)
	}
	if cmd == nil {
		t.Error("enter should quit")
	}
}

func TestInspectModelSortByError(t *testing.T) {
	m := NewInspectModel(testLayout(t))
	next, _ := m.Update(key("s"))
	m = next.(InspectModel)

	for i := 1; i < len(m.visible); i++ {
		prev, cur := m.Rows[m.visible[i-1]], m.Rows[m.visible[i]]
		if prev.Error() < cur.Error() {
			t.Fatalf("rows not sorted by error at %d: %v < %v", i, prev.Error(), cur.Error())
		}
	}
}

func TestInspectModelView(t *testing.T) {
	m := NewInspectModel(testLayout(t))
	view := m.View()

	for _, want := range []string{"Cellmap Layout", "seed 10", "north", "Target", "[1/"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatValue(1200); got != "1200" {
		t.Errorf("formatValue(1200) = %q", got)
	}
	if got := formatValue(2.5); got != "2.50" {
		t.Errorf("formatValue(2.5) = %q", got)
	}
	if got := formatShare(0.1234); got != "12.34%" {
		t.Errorf("formatShare(0.1234) = %q", got)
	}
	if got := lastSegment("north/A/a1"); got != "a1" {
		t.Errorf("lastSegment = %q", got)
	}
	if got := relaxStatus(CellRow{}); got != "—" {
		t.Errorf("relaxStatus(leaf) = %q", got)
	}
}
