// Package fps estimates the capture frame rate for display.
package fps

import "time"

const (
	// RC is the filter time constant in seconds.
	RC = 0.25
	// Bias compensates the systematic underestimate of the filtered rate.
	Bias = 0.8
	// minInterval ignores degenerate near-zero frame intervals.
	minInterval = 1e-3
)

// Estimator is an exponential moving average of the instantaneous frame
// rate. It is not safe for concurrent use; the capture loop owns it.
type Estimator struct {
	last time.Time
	fps  float64
}

// Update folds the interval since the previous call into the estimate and
// returns it. The first call only records now.
func (e *Estimator) Update(now time.Time) float64 {
	if e.last.IsZero() {
		e.last = now
		return e.fps
	}
	dt := now.Sub(e.last).Seconds()
	if dt <= minInterval {
		return e.fps
	}
	e.last = now
	alpha := dt / (dt + RC)
	e.fps = e.fps*(1-alpha) + alpha*(1/dt+Bias)
	return e.fps
}

// Value returns the current estimate.
func (e *Estimator) Value() float64 { return e.fps }

// Reset clears the estimate.
func (e *Estimator) Reset() { *e = Estimator{} }
