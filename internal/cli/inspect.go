package cli

import (
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Inspect Command
// =============================================================================

// inspectCommand creates the inspect command for browsing a layout.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		plain    bool
		maxDepth int
	)

	cmd := &cobra.Command{
		Use:   "inspect [layout.json]",
		Short: "Browse the cells of a layout with their target and achieved shares",
		Long: `Browse the cells of a layout with their target and achieved shares.

Every cell is listed with the share of the total value it should cover, the
share of the canvas it actually covers, and how the relaxation of its
children went. Cells that missed their target stand out when sorted by error.

Keys: ↑/↓ navigate, d cycle depth, s sort by error, ⏎ details, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := layout.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("load layout %s: %w", args[0], err)
			}

			m := NewInspectModel(l)
			m.MaxDepth = maxDepth
			m.refresh()

			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), m.renderTable(false))
				return nil
			}

			finalModel, err := tea.NewProgram(m).Run()
			if err != nil {
				return err
			}
			fm, ok := finalModel.(InspectModel)
			if !ok || fm.Selected == nil {
				return nil
			}
			printCellDetails(*fm.Selected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the table and exit")
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "deepest level listed (0 = all)")

	return cmd
}

// =============================================================================
// Cell Rows
// =============================================================================

// CellRow is one line of the inspector.
type CellRow struct {
	Path     string
	Depth    int
	Value    float64
	Count    int
	Target   float64 // share of the total value
	Achieved float64 // share of the canvas area

	// Relaxation of the cell's children. Relaxed is false for leaves.
	Relaxed    bool
	Iterations int
	AreaError  float64
	Converged  bool
}

// Error returns the relative deviation of the achieved share from the target.
func (r CellRow) Error() float64 {
	if r.Target <= 0 {
		return 0
	}
	return math.Abs(r.Achieved-r.Target) / r.Target
}

// buildCellRows lists every cell of l except the root, in layout order.
func buildCellRows(l layout.Layout) []CellRow {
	stats := make(map[string]treemap.NodeStats, len(l.Diagnostics.Partition.Nodes))
	for _, s := range l.Diagnostics.Partition.Nodes {
		stats[s.Path] = s
	}

	var rows []CellRow
	for _, cell := range l.Cells {
		if cell.Depth == 0 {
			continue
		}
		row := CellRow{
			Path:     cell.PathString(),
			Depth:    cell.Depth,
			Value:    cell.Value,
			Count:    cell.Count,
			Target:   l.Share(cell),
			Achieved: l.AreaShare(cell),
		}
		if s, ok := stats[row.Path]; ok {
			row.Relaxed = true
			row.Iterations = s.Iterations
			row.AreaError = s.AreaError
			row.Converged = s.Converged
		}
		rows = append(rows, row)
	}
	return rows
}

// =============================================================================
// InspectModel - Interactive cell browser
// =============================================================================

// InspectModel is the bubbletea model for browsing layout cells.
type InspectModel struct {
	Rows        []CellRow
	MaxDepth    int // 0 lists every depth
	SortByError bool
	Cursor      int
	Offset      int
	Height      int
	Selected    *CellRow

	summary string
	visible []int
	deepest int
}

// NewInspectModel creates a new inspector over l.
func NewInspectModel(l layout.Layout) InspectModel {
	m := InspectModel{
		Rows:    buildCellRows(l),
		Height:  15,
		summary: layoutSummary(l),
	}
	for _, r := range m.Rows {
		m.deepest = max(m.deepest, r.Depth)
	}
	m.refresh()
	return m
}

// refresh recomputes the visible rows from the depth filter and sort order.
func (m *InspectModel) refresh() {
	visible := make([]int, 0, len(m.Rows))
	for i, r := range m.Rows {
		if m.MaxDepth > 0 && r.Depth > m.MaxDepth {
			continue
		}
		visible = append(visible, i)
	}
	m.visible = visible
	if m.SortByError {
		sort.SliceStable(m.visible, func(a, b int) bool {
			return m.Rows[m.visible[a]].Error() > m.Rows[m.visible[b]].Error()
		})
	}
	if m.Cursor >= len(m.visible) {
		m.Cursor = max(len(m.visible)-1, 0)
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.visible)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "d":
			m.MaxDepth++
			if m.MaxDepth > m.deepest {
				m.MaxDepth = 0
			}
			m.Cursor, m.Offset = 0, 0
			m.refresh()
		case "s":
			m.SortByError = !m.SortByError
			m.Cursor, m.Offset = 0, 0
			m.refresh()
		case "enter":
			if len(m.visible) == 0 {
				return m, nil
			}
			row := m.Rows[m.visible[m.Cursor]]
			m.Selected = &row
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m InspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Cellmap Layout"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(m.summary))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  d depth  s sort by error  ⏎ details  q quit"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTable(true))
	b.WriteString("\n\n")

	depth := "all"
	if m.MaxDepth > 0 {
		depth = fmt.Sprint(m.MaxDepth)
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  depth: %s", m.Cursor+1, len(m.visible), depth)))

	return b.String()
}

// renderTable renders the visible rows. In interactive mode only the
// scrolled window is drawn and the cursor row is highlighted.
func (m InspectModel) renderTable(interactive bool) string {
	start, end := 0, len(m.visible)
	if interactive {
		start = m.Offset
		end = min(m.Offset+m.Height, len(m.visible))
	}

	rows := make([][]string, 0, end-start)
	for i := start; i < end; i++ {
		r := m.Rows[m.visible[i]]
		cursor := "  "
		if interactive && i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			strings.Repeat("  ", r.Depth-1) + lastSegment(r.Path),
			formatValue(r.Value),
			formatShare(r.Target),
			formatShare(r.Achieved),
			fmt.Sprintf("%.1f%%", r.Error()*100),
			relaxStatus(r),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Cell", "Value", "Target", "Achieved", "Error", "Relax").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			idx := start + row
			if idx >= len(m.visible) {
				return lipgloss.NewStyle()
			}
			r := m.Rows[m.visible[idx]]
			base := lipgloss.NewStyle()
			if col == 6 && r.Relaxed && !r.Converged {
				base = base.Foreground(colorYellow)
			}
			if interactive && idx == m.Cursor {
				return listSelectedStyle.Inherit(base)
			}
			if col >= 2 && col <= 5 {
				return base.Foreground(colorGray)
			}
			return base
		})

	return t.Render()
}

// =============================================================================
// Helpers
// =============================================================================

func layoutSummary(l layout.Layout) string {
	return fmt.Sprintf("%gx%g %s · seed %d · %d cells · %d non-converged",
		l.Width, l.Height, l.Shape, l.Seed, len(l.Cells), l.Diagnostics.Partition.NonConverged)
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func formatShare(s float64) string {
	return fmt.Sprintf("%.2f%%", s*100)
}

func relaxStatus(r CellRow) string {
	if !r.Relaxed {
		return "—"
	}
	if r.Converged {
		return fmt.Sprintf("%s %d", iconSuccess, r.Iterations)
	}
	return fmt.Sprintf("%s %d", iconWarning, r.Iterations)
}

// printCellDetails prints every field of a selected row.
func printCellDetails(r CellRow) {
	printNewline()
	uiPrintln(StyleTitle.Render(r.Path))
	printKeyValue("Depth", fmt.Sprint(r.Depth))
	printKeyValue("Value", StyleNumber.Render(formatValue(r.Value)))
	printKeyValue("Records", fmt.Sprint(r.Count))
	printKeyValue("Target", formatShare(r.Target))
	printKeyValue("Achieved", formatShare(r.Achieved))
	printKeyValue("Error", fmt.Sprintf("%.2f%%", r.Error()*100))
	if r.Relaxed {
		printKeyValue("Iterations", fmt.Sprint(r.Iterations))
		printKeyValue("Area error", fmt.Sprintf("%.4f", r.AreaError))
		printKeyValue("Converged", fmt.Sprint(r.Converged))
	}
}
