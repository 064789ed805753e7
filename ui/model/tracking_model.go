package model

import "sync/atomic"

// TrackingModel records whether the user has tracking switched on. The zero
// value is off and usable; Tk callbacks and presenter ticks may race.
type TrackingModel struct{ enabled atomic.Bool }

// Enabled reports whether tracking is on.
func (m *TrackingModel) Enabled() bool {
	if m == nil {
		return false
	}
	return m.enabled.Load()
}

// SetEnabled stores the flag.
func (m *TrackingModel) SetEnabled(b bool) {
	if m == nil {
		return
	}
	m.enabled.Store(b)
}
