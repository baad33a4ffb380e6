package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cellmap/pkg/buildinfo"
	"github.com/matzehuels/cellmap/pkg/cache"
	"github.com/matzehuels/cellmap/pkg/pipeline"
	"github.com/matzehuels/cellmap/pkg/store"
)

const testRecordsJSON = `[
	{"region": "north", "group": "A", "cluster": "a1", "size": 30},
	{"region": "north", "group": "A", "cluster": "a2", "size": 10},
	{"region": "north", "group": "B", "cluster": "b1", "size": 20},
	{"region": "south", "group": "C", "cluster": "c1", "size": 25},
	{"region": "south", "group": "C", "cluster": "c2", "size": 15}
]`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(cache.NewMemoryCache(), nil, logger)
	s := newServer(runner, store.NewMemoryStore(), logger, pipeline.Options{Shape: "rectangle"})
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func createLayout(t *testing.T, ts *httptest.Server, body string) createResponse {
	t.Helper()
	resp, data := do(t, http.MethodPost, ts.URL+"/v1/layouts", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /v1/layouts = %d: %s", resp.StatusCode, data)
	}
	var out createResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID == "" {
		t.Fatal("response has no id")
	}
	if got := resp.Header.Get("Location"); got != "/v1/layouts/"+out.ID {
		t.Errorf("Location = %q", got)
	}
	return out
}

func TestServeHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestServeVersion(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/version", "")
	var info buildinfo.Info
	if err := json.Unmarshal(body, &info); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("version = %d: %s", resp.StatusCode, body)
	}
	if info.Version == "" || info.GoVersion == "" {
		t.Errorf("version info incomplete: %+v", info)
	}
}

func TestServeLayoutLifecycle(t *testing.T) {
	ts := newTestServer(t)

	created := createLayout(t, ts, `{"records": `+testRecordsJSON+`, "options": {"seed": 7}}`)
	if created.Seed != 7 {
		t.Errorf("seed = %d, want 7", created.Seed)
	}
	if created.Cells != 11 {
		t.Errorf("cells = %d, want 11 with the root", created.Cells)
	}
	if created.Total != 100 {
		t.Errorf("total = %v, want 100", created.Total)
	}

	resp, data := do(t, http.MethodGet, ts.URL+"/v1/layouts/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET layout = %d: %s", resp.StatusCode, data)
	}
	if !bytes.Contains(data, []byte(`"north"`)) {
		t.Error("stored layout should contain the north region")
	}

	renderURL := ts.URL + "/v1/layouts/" + created.ID + "/render.svg?title=Budget"
	resp, data = do(t, http.MethodGet, renderURL, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("render svg = %d: %s", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := resp.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("first render X-Cache = %q, want MISS", got)
	}
	if !bytes.Contains(data, []byte("<svg")) || !bytes.Contains(data, []byte("Budget")) {
		t.Error("render should be an svg with the title")
	}

	resp, _ = do(t, http.MethodGet, renderURL, "")
	if got := resp.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("second render X-Cache = %q, want HIT", got)
	}

	resp, data = do(t, http.MethodGet, ts.URL+"/v1/layouts/"+created.ID+"/render.dot", "")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(data, []byte("digraph")) {
		t.Errorf("render dot = %d: %s", resp.StatusCode, data)
	}

	resp, data = do(t, http.MethodGet, ts.URL+"/v1/layouts", "")
	var list struct {
		Layouts []store.Summary `json:"layouts"`
	}
	if err := json.Unmarshal(data, &list); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d: %s", resp.StatusCode, data)
	}
	if len(list.Layouts) != 1 || list.Layouts[0].ID != created.ID {
		t.Errorf("list = %+v", list.Layouts)
	}

	resp, _ = do(t, http.MethodDelete, ts.URL+"/v1/layouts/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/layouts/"+created.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", resp.StatusCode)
	}
}

func TestServeCreateEllipse(t *testing.T) {
	ts := newTestServer(t)
	created := createLayout(t, ts, `{"records": `+testRecordsJSON+`, "options": {"shape": "ellipse", "width": 800, "height": 600}}`)
	if created.Cells != 11 {
		t.Errorf("cells = %d, want 11 with the root", created.Cells)
	}
	if created.Diagnostics.Partition.Nodes == nil {
		t.Error("ellipse layout should carry partition diagnostics")
	}
}

func TestServeCreateBareArray(t *testing.T) {
	ts := newTestServer(t)
	created := createLayout(t, ts, testRecordsJSON)
	if created.Seed != pipeline.DefaultSeed {
		t.Errorf("seed = %d, want the default %d", created.Seed, pipeline.DefaultSeed)
	}
}

func TestServeCreateCached(t *testing.T) {
	ts := newTestServer(t)
	first := createLayout(t, ts, testRecordsJSON)
	second := createLayout(t, ts, testRecordsJSON)
	if first.Cached {
		t.Error("first layout should be computed")
	}
	if !second.Cached {
		t.Error("identical request should hit the cache")
	}
	if first.ID == second.ID {
		t.Error("every request stores a new layout")
	}
}

func TestServeErrors(t *testing.T) {
	ts := newTestServer(t)
	created := createLayout(t, ts, testRecordsJSON)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"invalid id", http.MethodGet, "/v1/layouts/not-an-id", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown id", http.MethodGet, "/v1/layouts/00000000-0000-4000-8000-000000000000", "", http.StatusNotFound, "LAYOUT_NOT_FOUND"},
		{"unknown format", http.MethodGet, "/v1/layouts/" + created.ID + "/render.gif", "", http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad query value", http.MethodGet, "/v1/layouts/" + created.ID + "/render.svg?scale=big", "", http.StatusBadRequest, "INVALID_OPTIONS"},
		{"render unknown id", http.MethodGet, "/v1/layouts/00000000-0000-4000-8000-000000000000/render.svg", "", http.StatusNotFound, "LAYOUT_NOT_FOUND"},
		{"empty records", http.MethodPost, "/v1/layouts", `[]`, http.StatusUnprocessableEntity, "EMPTY_DATASET"},
		{"malformed body", http.MethodPost, "/v1/layouts", `{"records": [`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad limit", http.MethodGet, "/v1/layouts?limit=-1", "", http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, tt.method, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.wantCode, data)
			}
			var e errorResponse
			if err := json.Unmarshal(data, &e); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if e.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
			}
			if e.Message == "" {
				t.Error("error should carry a message")
			}
		})
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := map[string]string{
		":8080":          "localhost:8080",
		"0.0.0.0:9000":   "0.0.0.0:9000",
		"localhost:1234": "localhost:1234",
	}
	for in, want := range tests {
		if got := displayAddr(in); got != want {
			t.Errorf("displayAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
