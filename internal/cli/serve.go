package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cellmap/pkg/buildinfo"
	"github.com/matzehuels/cellmap/pkg/cache"
	cerrors "github.com/matzehuels/cellmap/pkg/errors"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/observability"
	"github.com/matzehuels/cellmap/pkg/pipeline"
	"github.com/matzehuels/cellmap/pkg/records"
	"github.com/matzehuels/cellmap/pkg/store"
)

const (
	// defaultAddr is the listen address of the serve command.
	defaultAddr = ":8080"

	// maxRequestBytes caps the size of a POST /v1/layouts body.
	maxRequestBytes = 32 << 20

	shutdownTimeout = 30 * time.Second
)

// contentTypes maps render formats to response content types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
}

// =============================================================================
// Serve Command
// =============================================================================

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
		srv     ServerConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout API over HTTP",
		Long: `Serve the layout API over HTTP.

Routes:
  POST   /v1/layouts                       compute and store a layout
  GET    /v1/layouts                       list stored layouts
  GET    /v1/layouts/{id}                  fetch a stored layout
  DELETE /v1/layouts/{id}                  delete a stored layout
  GET    /v1/layouts/{id}/render.{format}  render a stored layout
  GET    /healthz                          liveness probe
  GET    /version                          build information

Layouts are kept in memory unless --mongo-uri or --store-dir is given.
Renders and layouts are cached in memory unless --redis-url is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			srv = mergeServerConfig(cmd, cfg.Server, srv)
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			defaults := pipeline.Options{}
			applyConfigTo(cmd, cfg, &defaults)
			return c.runServe(cmd.Context(), addr, srv, defaults, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&srv.Redis.URL, "redis-url", "", "Redis URL for the shared cache, e.g. redis://localhost:6379/0")
	cmd.Flags().StringVar(&srv.StoreDir, "store-dir", "", "directory for layout files when no MongoDB is configured")
	cmd.Flags().StringVar(&srv.Mongo.URI, "mongo-uri", "", "MongoDB URI for layout storage")
	cmd.Flags().StringVar(&srv.Mongo.Database, "mongo-database", "", "MongoDB database (default: "+store.DefaultMongoDatabase+")")

	return cmd
}

// mergeServerConfig fills the fields of flags not given on the command line
// from the config file.
func mergeServerConfig(cmd *cobra.Command, file, flags ServerConfig) ServerConfig {
	out := file
	if cmd.Flags().Changed("redis-url") {
		out.Redis.URL = flags.Redis.URL
	}
	if cmd.Flags().Changed("store-dir") {
		out.StoreDir = flags.StoreDir
	}
	if cmd.Flags().Changed("mongo-uri") {
		out.Mongo.URI = flags.Mongo.URI
	}
	if cmd.Flags().Changed("mongo-database") {
		out.Mongo.Database = flags.Mongo.Database
	}
	return out
}

// runServe opens the cache and store and serves until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string, cfg ServerConfig, defaults pipeline.Options, noCache bool) error {
	var (
		cc    cache.Cache
		keyer cache.Keyer
		err   error
	)
	switch {
	case noCache:
		cc = cache.NewNullCache()
	case cfg.Redis.URL != "" || cfg.Redis.Addr != "":
		if cc, err = cache.NewRedisCache(ctx, cfg.Redis); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		// Servers of different versions may share one Redis.
		keyer = cache.NewScopedKeyer(nil, buildinfo.Get().Version+":")
		c.Logger.Info("using redis cache")
	default:
		cc = cache.NewMemoryCache()
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	defer runner.Close()

	var st store.Store
	switch {
	case cfg.Mongo.URI != "":
		if st, err = store.NewMongoStore(ctx, cfg.Mongo); err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		c.Logger.Info("using mongo store")
	case cfg.StoreDir != "":
		if st, err = store.NewFileStore(cfg.StoreDir); err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		c.Logger.Info("using file store", "dir", cfg.StoreDir)
	default:
		st = store.NewMemoryStore()
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		st.Close(closeCtx)
	}()

	s := newServer(runner, st, c.Logger, defaults)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		c.Logger.Info("shutting down server")
		s.healthy.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		done <- httpServer.Shutdown(shutdownCtx)
	}()

	printSuccess("Serving on %s", StyleLink.Render("http://"+displayAddr(addr)))
	c.Logger.Info("starting server", "addr", addr, "version", buildinfo.Get().Version)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

// =============================================================================
// Server
// =============================================================================

// server holds the HTTP API state. Handlers are safe for concurrent use.
type server struct {
	runner   *pipeline.Runner
	store    store.Store
	logger   *log.Logger
	defaults pipeline.Options
	healthy  atomic.Bool
}

func newServer(runner *pipeline.Runner, st store.Store, logger *log.Logger, defaults pipeline.Options) *server {
	s := &server{runner: runner, store: st, logger: logger, defaults: defaults}
	s.healthy.Store(true)
	return s
}

// routes builds the API router.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Route("/v1/layouts", func(r chi.Router) {
		r.Post("/", s.handleCreateLayout)
		r.Get("/", s.handleListLayouts)
		r.Get("/{id}", s.handleGetLayout)
		r.Delete("/{id}", s.handleDeleteLayout)
		r.Get("/{id}/render.{format}", s.handleRenderLayout)
	})
	return r
}

// instrument attaches a request-scoped logger and reports every request to
// the HTTP hooks under its route pattern.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := withLogger(r.Context(), s.logger.With("request_id", middleware.GetReqID(r.Context())))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(ctx, r.Method, r.URL.Path)

		next.ServeHTTP(ww, r.WithContext(ctx))

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnResponse(ctx, r.Method, route, status, time.Since(start))
		loggerFromContext(ctx).Debug("request", "method", r.Method, "route", route, "status", status, "duration", time.Since(start))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.healthy.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

// createRequest is the body of POST /v1/layouts: {"records": [...],
// "options": {...}}. A bare array of records is accepted too.
type createRequest struct {
	Options pipeline.Options `json:"options"`
}

// createResponse is returned by POST /v1/layouts.
type createResponse struct {
	store.Summary
	Cached      bool               `json:"cached"`
	Diagnostics layout.Diagnostics `json:"diagnostics"`
}

func (s *server) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "read request body"))
		return
	}
	recs, err := records.ReadJSON(bytes.NewReader(body))
	if err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "decode records"))
		return
	}
	if err := pipeline.ValidateRecords(recs); err != nil {
		s.writeError(w, r, err)
		return
	}

	req := createRequest{Options: s.defaults}
	req.Options.Colors = slices.Clone(s.defaults.Colors)
	req.Options.ColorOverrides = maps.Clone(s.defaults.ColorOverrides)
	if body = bytes.TrimSpace(body); len(body) > 0 && body[0] == '{' {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInvalidOptions, err, "decode options"))
			return
		}
	}
	opts := req.Options
	// The server never reads local files.
	opts.Input, opts.HintsFile = "", ""
	opts.Records = recs
	opts.Logger = loggerFromContext(ctx)

	l, hit, err := s.runner.GenerateLayoutWithCacheInfo(ctx, recs, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l.ID, l.CreatedAt = "", time.Time{}

	id, err := s.store.Save(ctx, &l)
	if err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeStorage, err, "save layout"))
		return
	}
	loggerFromContext(ctx).Info("stored layout", "id", id, "cells", len(l.Cells), "cached", hit)

	w.Header().Set("Location", "/v1/layouts/"+id)
	writeJSON(w, http.StatusCreated, createResponse{
		Summary:     store.Summarize(&l),
		Cached:      hit,
		Diagnostics: l.Diagnostics,
	})
}

func (s *server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, cerrors.New(cerrors.ErrCodeInvalidInput, "invalid limit: %q", v))
			return
		}
		limit = n
	}
	summaries, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeStorage, err, "list layouts"))
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"layouts": summaries})
}

func (s *server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := cerrors.ValidateLayoutID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeStorage, err, "delete layout"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleRenderLayout(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts, err := s.renderOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{format}
	opts.Logger = loggerFromContext(r.Context())

	artifacts, hit, err := s.runner.RenderWithCacheInfo(r.Context(), *l, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Cache", cacheStatus(hit))
	w.WriteHeader(http.StatusOK)
	w.Write(artifacts[format])
}

// lookup loads the layout named by the id URL parameter.
func (s *server) lookup(r *http.Request) (*layout.Layout, error) {
	id := chi.URLParam(r, "id")
	if err := cerrors.ValidateLayoutID(id); err != nil {
		return nil, err
	}
	l, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, cerrors.Wrap(cerrors.ErrCodeLayoutNotFound, err, "layout %s not found", id)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStorage, err, "load layout %s", id)
	}
	return l, nil
}

// renderOptions reads render settings from the query string on top of the
// server defaults.
func (s *server) renderOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		opts.VizType = v
	}
	if v := q.Get("title"); v != "" {
		opts.Title = v
	}
	if v := q.Get("caption"); v != "" {
		opts.Caption = v
	}
	floats := []struct {
		key string
		dst *float64
	}{{"margin", &opts.Margin}, {"scale", &opts.Scale}, {"simplify", &opts.Simplify}}
	for _, f := range floats {
		if v := q.Get(f.key); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, cerrors.New(cerrors.ErrCodeInvalidOptions, "invalid %s: %q", f.key, v)
			}
			*f.dst = n
		}
	}
	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, cerrors.New(cerrors.ErrCodeInvalidOptions, "invalid depth: %q", v)
		}
		opts.TreeDepth = n
	}
	bools := []struct {
		key string
		dst *bool
	}{{"interactive", &opts.Interactive}, {"detailed", &opts.Detailed}}
	for _, b := range bools {
		if v := q.Get(b.key); v != "" {
			on, err := strconv.ParseBool(v)
			if err != nil {
				return opts, cerrors.New(cerrors.ErrCodeInvalidOptions, "invalid %s: %q", b.key, v)
			}
			*b.dst = on
		}
	}
	return opts, nil
}

// =============================================================================
// Responses
// =============================================================================

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError reports err with the status its code maps to.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := cerrors.HTTPStatus(err)
	code := cerrors.GetCode(err)
	if code == "" {
		code = cerrors.ErrCodeInternal
	}

	route := routePattern(r)
	observability.HTTP().OnError(r.Context(), r.Method, route, err)

	msg := cerrors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		loggerFromContext(r.Context()).Error("request failed", "route", route, "error", err)
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: msg})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// routePattern returns the matched chi pattern, or the raw path before
// routing.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return r.URL.Path
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
