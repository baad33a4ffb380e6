package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/cellmap/pkg/cache"
)

func TestCountEntries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ab/one.json", "ab/two.json", "cd/three.json"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := countEntries(dir); got != 3 {
		t.Errorf("countEntries() = %d, want 3", got)
	}
	if got := countEntries(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("countEntries(missing) = %d, want 0", got)
	}
}

func TestCacheClearCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"layout:a", "layout:b"} {
		if err := fc.Set(ctx, key, []byte("data"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	root := New(os.Stderr, LogInfo).RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	if got := countEntries(dir); got != 0 {
		t.Errorf("entries after clear = %d, want 0", got)
	}
	if _, hit, _ := fc.Get(ctx, "layout:a"); hit {
		t.Error("cleared entry should miss")
	}
}
