package calibration

import (
	"github.com/golang/geo/r3"
	"github.com/soocke/headtrack-go/domain/pose"
)

// State enumerates the calibration controller states.
type State int

const (
	StateIdle State = iota
	StateCalibrating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCalibrating:
		return "calibrating"
	default:
		return "unknown"
	}
}

// Listener is called after each state transition.
type Listener func(prev, next State)

// RTSource provides the latest solver-space rotation/translation pair. ok is
// false until a pose has been solved.
type RTSource interface {
	RT() (rt pose.RT, ok bool)
}

// OffsetSink holds the head-centre offset used to build the marker model.
type OffsetSink interface {
	HeadOffset() r3.Vector
	SetHeadOffset(r3.Vector)
}

// ControllerContract is the control surface used by the UI.
type ControllerContract interface {
	Start()
	Stop() (r3.Vector, error)
	Toggle() error
	Active() bool
	Current() State
	Samples() int
	AddListener(Listener)
}

var _ ControllerContract = (*Controller)(nil)
