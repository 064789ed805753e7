package presenter

import (
	"github.com/soocke/headtrack-go/domain/overlay"
)

// TrackingModel provides enabled state access.
type TrackingModel interface {
	Enabled() bool
	SetEnabled(bool)
}

// TrackerControl narrows what the presenter needs from the tracker.
type TrackerControl interface {
	Start(display overlay.Display) error
	Stop()
	Running() bool
}

// TrackingView updates UI elements affected by starting and stopping.
type TrackingView interface {
	PreviewReset()
	ConfigEditable(bool)
	SetTrackingLabel(string)
	SetStatus(string)
}

// TrackingPresenter owns presentation logic for switching tracking on and
// off.
type TrackingPresenter struct {
	model   TrackingModel
	tracker TrackerControl
	display overlay.Display
	view    TrackingView
}

// NewTrackingPresenter returns a presenter that starts tracker sessions
// rendering into display.
func NewTrackingPresenter(model TrackingModel, tracker TrackerControl, display overlay.Display, view TrackingView) *TrackingPresenter {
	return &TrackingPresenter{model: model, tracker: tracker, display: display, view: view}
}

func (p *TrackingPresenter) ready() bool {
	return p != nil && p.model != nil && p.tracker != nil && p.view != nil
}

// Enable starts the tracker. A camera that cannot be opened leaves tracking
// off and reports the error in the status line. Idempotent.
func (p *TrackingPresenter) Enable() {
	if !p.ready() || p.model.Enabled() {
		return
	}
	if err := p.tracker.Start(p.display); err != nil {
		p.view.SetStatus("Camera error: " + err.Error())
		return
	}
	p.model.SetEnabled(true)
	p.view.ConfigEditable(false)
	p.view.SetTrackingLabel("Stop tracking")
	p.view.SetStatus("Tracking")
}

// Disable stops the tracker, which blocks for the settle delay. Idempotent.
func (p *TrackingPresenter) Disable() {
	if !p.ready() || !p.model.Enabled() {
		return
	}
	p.stop("Stopped")
}

// Sync turns tracking off when the capture loop has died on its own.
func (p *TrackingPresenter) Sync() {
	if !p.ready() || !p.model.Enabled() || p.tracker.Running() {
		return
	}
	p.stop("Tracking stopped: capture loop failed")
}

func (p *TrackingPresenter) stop(status string) {
	p.tracker.Stop()
	p.model.SetEnabled(false)
	p.view.PreviewReset()
	p.view.ConfigEditable(true)
	p.view.SetTrackingLabel("Start tracking")
	p.view.SetStatus(status)
}

// Toggle flips tracking delegating to Enable/Disable.
func (p *TrackingPresenter) Toggle() {
	if !p.ready() {
		return
	}
	if p.model.Enabled() {
		p.Disable()
		return
	}
	p.Enable()
}
