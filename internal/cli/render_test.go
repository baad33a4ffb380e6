package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/cellmap/pkg/layout"
)

const testRecordsCSV = `region,group,cluster,size
Seoul,Welfare,Pension,5200
Seoul,Welfare,Housing,1800
Seoul,Transport,Subway,2600
Busan,Transport,Port,1400
Busan,Culture,Festival,700
Incheon,Culture,Museum,900
`

// setupWorkspace isolates cache and config directories and writes a records
// file. It returns the records path.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "budget.csv")
	if err := os.WriteFile(path, []byte(testRecordsCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI executes a fresh root command and returns what it wrote to its
// output stream.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "svg", []string{"svg"}},
		{"multiple formats", "svg,pdf,png", []string{"svg", "pdf", "png"}},
		{"spaces and case", " SVG , dot ", []string{"svg", "dot"}},
		{"empty items dropped", "svg,,json", []string{"svg", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "data/budget.csv", "data/budget"},
		{"", "data/budget.layout.json", "data/budget"},
		{"out/map.svg", "budget.csv", "out/map"},
		{"out/map.dot", "budget.csv", "out/map"},
		{"out/map", "budget.csv", "out/map"},
		{"out/map.v2", "budget.csv", "out/map.v2"},
	}

	for _, tt := range tests {
		t.Run(tt.output+"|"+tt.input, func(t *testing.T) {
			if got := basePath(tt.output, tt.input); got != tt.want {
				t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}

func TestArtifactPaths(t *testing.T) {
	single := artifactPaths([]string{"png"}, "budget.csv", "map.image")
	if single["png"] != "map.image" {
		t.Errorf("single format path = %q, want output as given", single["png"])
	}

	multi := artifactPaths([]string{"svg", "json"}, "budget.csv", "out/map.svg")
	if multi["svg"] != "out/map.svg" || multi["json"] != "out/map.json" {
		t.Errorf("multi format paths = %v", multi)
	}

	derived := artifactPaths([]string{"svg"}, "data/budget.csv", "")
	if derived["svg"] != "data/budget.svg" {
		t.Errorf("derived path = %q, want data/budget.svg", derived["svg"])
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{"svg": []byte("<svg/>"), "json": []byte("{}")},
		formats:   []string{"svg", "json", "png"},
		input:     "budget.csv",
		output:    filepath.Join(dir, "map"),
	})
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}

	for _, name := range []string{"map.svg", "map.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "map.png")); !os.IsNotExist(err) {
		t.Error("formats without an artifact should be skipped")
	}
}

func TestRenderCommand(t *testing.T) {
	input := setupWorkspace(t)
	base := strings.TrimSuffix(input, ".csv")

	if _, err := runCLI(t, "render", input, "-f", "svg,json,dot", "--no-cache", "--title", "Budget"); err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte("Budget")) {
		t.Error("svg output should be an SVG document with the title")
	}

	l, err := layout.ReadFile(base + ".json")
	if err != nil {
		t.Fatalf("json output should be a layout: %v", err)
	}
	if _, ok := l.Find("Seoul/Welfare/Pension"); !ok {
		t.Error("layout should contain the Seoul/Welfare/Pension cell")
	}

	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(dot), []byte("digraph")) {
		t.Errorf("dot output should be a digraph, got %.40q", dot)
	}
}

func TestRenderCommandInvalidFormat(t *testing.T) {
	input := setupWorkspace(t)
	if _, err := runCLI(t, "render", input, "-f", "gif", "--no-cache"); err == nil {
		t.Error("render with an unknown format should fail")
	}
}

func TestLayoutVisualizeInspect(t *testing.T) {
	input := setupWorkspace(t)
	base := strings.TrimSuffix(input, ".csv")

	if _, err := runCLI(t, "layout", input, "--shape", "rectangle", "--seed", "7"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	layoutPath := base + ".layout.json"
	l, err := layout.ReadFile(layoutPath)
	if err != nil {
		t.Fatalf("read layout: %v", err)
	}
	if l.Shape != "rectangle" || l.Seed != 7 {
		t.Errorf("layout shape/seed = %s/%d, want rectangle/7", l.Shape, l.Seed)
	}

	if _, err := runCLI(t, "visualize", layoutPath, "-f", "svg"); err != nil {
		t.Fatalf("visualize: %v", err)
	}
	if _, err := os.Stat(base + ".svg"); err != nil {
		t.Errorf("visualize should write %s.svg: %v", base, err)
	}

	out, err := runCLI(t, "inspect", layoutPath, "--plain")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Seoul", "Welfare", "Pension", "Target", "Achieved"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output should contain %q", want)
		}
	}
}

func TestLayoutCommandMissingInput(t *testing.T) {
	setupWorkspace(t)
	if _, err := runCLI(t, "layout", filepath.Join(t.TempDir(), "missing.csv"), "--no-cache"); err == nil {
		t.Error("layout of a missing file should fail")
	}
}
