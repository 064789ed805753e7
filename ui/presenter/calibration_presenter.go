package presenter

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/soocke/headtrack-go/domain/calibration"
)

// CalibrationControl is the part of the calibration controller the UI drives.
type CalibrationControl interface {
	Start()
	Stop() (r3.Vector, error)
	Active() bool
	Samples() int
}

// CalibrationView shows the calibration button label and status line.
type CalibrationView interface {
	SetCalibrationLabel(string)
	SetStatus(string)
}

// CalibrationPresenter starts and stops calibration and mirrors controller
// state transitions onto the view on the next Tick.
type CalibrationPresenter struct {
	ctl  CalibrationControl
	view CalibrationView
	save func(r3.Vector) error

	mu      sync.Mutex
	pending []calibration.State
	latest  calibration.State
	shown   int
}

// NewCalibrationPresenter returns a presenter; save persists a committed
// offset and may be nil.
func NewCalibrationPresenter(ctl CalibrationControl, view CalibrationView, save func(r3.Vector) error) *CalibrationPresenter {
	return &CalibrationPresenter{ctl: ctl, view: view, save: save, shown: -1}
}

// OnState queues a transition. It matches calibration.Listener.
func (p *CalibrationPresenter) OnState(_, next calibration.State) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, next)
	p.mu.Unlock()
}

// Toggle starts calibration, or stops it and reports the estimated offset.
func (p *CalibrationPresenter) Toggle() {
	if p == nil || p.ctl == nil || p.view == nil {
		return
	}
	if !p.ctl.Active() {
		p.ctl.Start()
		p.view.SetStatus("Calibrating: turn your head slowly")
		return
	}
	off, err := p.ctl.Stop()
	if err != nil {
		p.view.SetStatus("Calibration failed: " + err.Error())
		return
	}
	p.view.SetStatus(fmt.Sprintf("Head offset: %.1f, %.1f, %.1f", off.X, off.Y, off.Z))
	if p.save != nil {
		if err := p.save(off); err != nil {
			p.view.SetStatus("Offset not saved: " + err.Error())
		}
	}
}

// Tick flushes queued transitions and, while calibrating, the sample count.
func (p *CalibrationPresenter) Tick(time.Time) {
	if p == nil || p.ctl == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	changed := false
	if n := len(p.pending); n > 0 {
		last := p.pending[n-1]
		p.pending = p.pending[:0]
		if last != p.latest {
			p.latest = last
			changed = true
		}
	}
	state := p.latest
	p.mu.Unlock()

	if changed {
		if state == calibration.StateCalibrating {
			p.view.SetCalibrationLabel("Stop calibration")
		} else {
			p.view.SetCalibrationLabel("Calibrate")
		}
	}
	if state == calibration.StateCalibrating {
		if n := p.ctl.Samples(); n != p.shown {
			p.shown = n
			p.view.SetStatus(fmt.Sprintf("Calibrating: %d samples", n))
		}
	} else {
		p.shown = -1
	}
}
