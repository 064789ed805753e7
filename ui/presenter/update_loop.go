package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// Tick runs on the Tk thread; Schedule re-arms the next tick. The zero value
// is usable.
type Loop struct {
	Tracking    *TrackingPresenter
	Calibration *CalibrationPresenter
	Pose        *PosePresenter
	Schedule    func()
}

func NewLoop(calib *CalibrationPresenter, pose *PosePresenter, schedule func()) *Loop {
	return &Loop{Calibration: calib, Pose: pose, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.Tracking != nil {
		l.Tracking.Sync()
	}
	if l.Calibration != nil {
		l.Calibration.Tick(now)
	}
	if l.Pose != nil {
		l.Pose.Tick(now)
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
