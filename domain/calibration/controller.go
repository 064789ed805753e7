// Package calibration estimates the offset between the marker centre and the
// head's rotation pivot while the user turns their head.
package calibration

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang/geo/r3"
)

const defaultInterval = 250 * time.Millisecond

// Controller is the Idle/Calibrating state machine. While calibrating a
// sampler goroutine feeds the latest RT pair into the accumulator every
// interval.
type Controller struct {
	logger   *slog.Logger
	src      RTSource
	sink     OffsetSink
	interval time.Duration

	mu        sync.Mutex
	state     State
	acc       Accumulator
	previous  r3.Vector
	stop      chan struct{}
	done      chan struct{}
	listeners []Listener
}

// NewController returns an idle controller. interval <= 0 selects 250ms.
func NewController(logger *slog.Logger, src RTSource, sink OffsetSink, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Controller{logger: logger, src: src, sink: sink, interval: interval}
}

// AddListener registers l for state transitions.
func (c *Controller) AddListener(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Current returns the controller state.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether calibration is running.
func (c *Controller) Active() bool { return c.Current() == StateCalibrating }

// Samples returns the number of samples taken in the current or last run.
func (c *Controller) Samples() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc.Count()
}

// Start zeroes the head offset, clears the accumulator and starts sampling.
// Calling Start while calibrating does nothing.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.state == StateCalibrating {
		c.mu.Unlock()
		return
	}
	if c.sink != nil {
		c.previous = c.sink.HeadOffset()
		c.sink.SetHeadOffset(r3.Vector{})
	}
	c.acc.Reset()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.sampler(c.stop, c.done)
	listeners := c.transition(StateCalibrating)
	c.mu.Unlock()
	c.notify(listeners, StateIdle, StateCalibrating)
	if c.logger != nil {
		c.logger.Info("calibration started", "interval", c.interval)
	}
}

// Stop halts sampling and commits the estimated offset. When the samples do
// not determine an offset the offset from before Start is restored and the
// error returned. Stop while idle, or while another Stop is in progress,
// returns the current offset.
func (c *Controller) Stop() (r3.Vector, error) {
	c.mu.Lock()
	if c.state != StateCalibrating || c.stop == nil {
		c.mu.Unlock()
		if c.sink == nil {
			return r3.Vector{}, nil
		}
		return c.sink.HeadOffset(), nil
	}
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	// The sampler takes c.mu, so it is joined without holding it.
	close(stop)
	<-done

	c.mu.Lock()
	est, err := c.acc.Estimate()
	n := c.acc.Count()
	if err != nil {
		est = c.previous
	}
	if c.sink != nil {
		c.sink.SetHeadOffset(est)
	}
	listeners := c.transition(StateIdle)
	c.mu.Unlock()
	c.notify(listeners, StateCalibrating, StateIdle)

	if c.logger != nil {
		if err != nil {
			c.logger.Warn("calibration failed, offset restored", "samples", n, "error", err)
		} else {
			c.logger.Info("calibration finished", "samples", n, "x", est.X, "y", est.Y, "z", est.Z)
		}
	}
	return est, err
}

// Toggle starts or stops calibration. When it stops, the error from Stop is
// returned; the committed offset is available from the sink.
func (c *Controller) Toggle() error {
	if c.Active() {
		_, err := c.Stop()
		return err
	}
	c.Start()
	return nil
}

// Tick takes one sample when calibrating and a pose is available. The
// sampler goroutine calls it every interval.
func (c *Controller) Tick() {
	if c.src == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCalibrating {
		return
	}
	rt, ok := c.src.RT()
	if !ok {
		return
	}
	c.acc.Add(rt)
}

// Estimate returns the offset fitted from the samples so far.
func (c *Controller) Estimate() (r3.Vector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc.Estimate()
}

func (c *Controller) sampler(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer recoverLog(c.logger, "calibration sampler panic")
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.Tick()
		}
	}
}

// transition must be called with c.mu held; it returns the listeners to
// notify once the lock is released.
func (c *Controller) transition(next State) []Listener {
	prev := c.state
	c.state = next
	if c.logger != nil {
		c.logger.Debug("calibration state transition", "from", prev.String(), "to", next.String())
	}
	return append([]Listener(nil), c.listeners...)
}

func (c *Controller) notify(ls []Listener, prev, next State) {
	for _, l := range ls {
		func() {
			defer recoverLog(c.logger, "calibration listener panic")
			l(prev, next)
		}()
	}
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(msg, "error", r)
		}
	}
}
