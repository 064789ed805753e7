package tracker

import (
	"math"
	"sync/atomic"
	"time"
)

const statsLogInterval = 5 * time.Second

// Stats summarises capture loop behaviour for instrumentation.
type Stats struct {
	RunID          string
	Frames         uint64
	ReadFailures   uint64
	DetectFailures uint64
	SolveFailures  uint64
	ROIHits        uint64
	AvgProcess     time.Duration
	FPS            float64
}

type counters struct {
	frames       atomic.Uint64
	readFailures atomic.Uint64
	detectFails  atomic.Uint64
	solveFails   atomic.Uint64
	roiHits      atomic.Uint64
	processNanos atomic.Uint64
	fpsBits      atomic.Uint64
}

func (c *counters) reset() {
	c.frames.Store(0)
	c.readFailures.Store(0)
	c.detectFails.Store(0)
	c.solveFails.Store(0)
	c.roiHits.Store(0)
	c.processNanos.Store(0)
	c.fpsBits.Store(0)
}

func (c *counters) record(o outcome, elapsed time.Duration) {
	c.frames.Add(1)
	c.processNanos.Add(uint64(elapsed.Nanoseconds()))
	switch o.fail {
	case failDetect:
		c.detectFails.Add(1)
	case failSolve:
		c.solveFails.Add(1)
	}
	if o.fromROI {
		c.roiHits.Add(1)
	}
}

func (c *counters) snapshot(runID string) Stats {
	frames := c.frames.Load()
	var avg time.Duration
	if frames > 0 {
		avg = time.Duration(c.processNanos.Load() / frames)
	}
	return Stats{
		RunID:          runID,
		Frames:         frames,
		ReadFailures:   c.readFailures.Load(),
		DetectFailures: c.detectFails.Load(),
		SolveFailures:  c.solveFails.Load(),
		ROIHits:        c.roiHits.Load(),
		AvgProcess:     avg,
		FPS:            math.Float64frombits(c.fpsBits.Load()),
	}
}
