package debug

import (
	"bytes"
	"log/slog"
	"runtime/metrics"
	"strings"
	"testing"
)

func TestLogGoroutines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logGoroutines(logger, []metrics.Sample{{Name: "/sched/goroutines:goroutines"}})
	out := buf.String()
	if !strings.Contains(out, "goroutine-stacks") || strings.Contains(out, "goroutines=0 ") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestLogMemStats(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logMemStats(logger, 4096)
	if out := buf.String(); !strings.Contains(out, "memstats") || !strings.Contains(out, "rss=4096") {
		t.Fatalf("unexpected log line: %s", out)
	}
}
