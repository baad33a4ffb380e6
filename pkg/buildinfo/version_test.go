package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetPrefersLdflags(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-02T03:04:05Z"

	i := Get()
	if i.Version != "v1.2.3" || i.Commit != "abc123" || i.Date != "2026-01-02T03:04:05Z" {
		t.Errorf("Get() = %+v, want the ldflags values", i)
	}
	if i.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", i.GoVersion, runtime.Version())
	}
}

func TestStringAndTemplate(t *testing.T) {
	defer func(v string) { Version = v }(Version)
	Version = "v0.9.0"

	if s := String(); !strings.Contains(s, "version: v0.9.0") || !strings.Contains(s, "go: ") {
		t.Errorf("String() = %q", s)
	}
	if tpl := Template(); !strings.HasPrefix(tpl, "{{.Name}} version v0.9.0\n") {
		t.Errorf("Template() = %q", tpl)
	}
}
