// Package cli implements the cellmap command-line interface.
//
// The commands cover the whole pipeline: computing layouts from records
// files, rendering them, browsing their cells in a terminal UI and serving
// them over HTTP. The CLI is built using cobra and logs through
// charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - layout: Compute a layout.json from a records file
//   - visualize: Render a layout.json to SVG, PNG, PDF, JSON or DOT
//   - render: Records straight to rendered output
//   - inspect: Browse cells with target and achieved shares
//   - serve: HTTP API backed by a layout store
//   - cache, config: Manage the local cache and config file
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The server
// passes a request-scoped logger through context.Context.
//
// # Example
//
//	import "github.com/matzehuels/cellmap/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of a stage with its elapsed time, e.g.
// "Partitioned 42 cells (1.234s)".
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx. The server uses it for request-scoped
// loggers.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
