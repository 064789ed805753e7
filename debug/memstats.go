package debug

import (
	"log/slog"
	"runtime"
	"time"
)

// StartMemLogger logs the process resident set next to Go heap statistics
// every interval. Failing RSS queries are logged once and then reported as
// zero.
func StartMemLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var rssErrLogged bool
		for range ticker.C {
			rss, err := residentSet()
			if err != nil && !rssErrLogged {
				logger.Warn("memlog: rss query failed", slog.String("err", err.Error()))
				rssErrLogged = true
			}
			logMemStats(logger, rss)
		}
	}()
}

func logMemStats(logger *slog.Logger, rss uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	logger.Info("memstats",
		slog.Int("goroutines", runtime.NumGoroutine()),
		slog.Uint64("heap_alloc", ms.HeapAlloc),
		slog.Uint64("heap_inuse", ms.HeapInuse),
		slog.Uint64("heap_idle", ms.HeapIdle),
		slog.Uint64("heap_sys", ms.HeapSys),
		slog.Uint64("next_gc", ms.NextGC),
		slog.Uint64("rss", rss),
		slog.Uint64("num_gc", uint64(ms.NumGC)),
	)
}
