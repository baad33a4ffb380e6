package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		debug   bool
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, false, true},
		{"debug at info level", log.InfoLevel, true, false},
		{"debug at debug level", log.DebugLevel, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			if tt.debug {
				logger.Debug("relaxed", "path", "north")
			} else {
				logger.Info("relaxed", "path", "north")
			}
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestNewLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("stored layout")

	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(buf.String()) {
		t.Errorf("log line should start with an HH:MM:SS.ms timestamp, got %q", buf.String())
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Partitioned 11 cells")

	out := buf.String()
	if !strings.Contains(out, "Partitioned 11 cells (") || !strings.Contains(out, "s)") {
		t.Errorf("progress should log the message with its duration, got %q", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("a bare context should yield the default logger")
	}

	var buf bytes.Buffer
	scoped := newLogger(&buf, log.InfoLevel).With("request_id", "abc")
	ctx := withLogger(context.Background(), scoped)

	got := loggerFromContext(ctx)
	if got != scoped {
		t.Fatal("loggerFromContext should return the attached logger")
	}
	got.Info("request")
	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Errorf("scoped fields should be logged, got %q", buf.String())
	}
}
