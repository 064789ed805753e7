package pose

import (
	"sync"

	"github.com/golang/geo/r3"
)

// Pose is the published 6-DOF head pose. Angles are degrees, translation is
// in the configured physical unit with Y pointing up.
type Pose struct {
	Yaw, Pitch, Roll float64
	X, Y, Z          float64
}

// Array returns the pose as {yaw, pitch, roll, x, y, z}.
func (p Pose) Array() [6]float64 {
	return [6]float64{p.Yaw, p.Pitch, p.Roll, p.X, p.Y, p.Z}
}

// RT is the solver-space rotation and translation of the last solve.
type RT struct {
	R Mat3
	T r3.Vector
}

// FromSolution converts a solver result into the published pose. scale maps
// solver units to the published translation unit.
func FromSolution(s Solution, scale float64) Pose {
	x, y, z := Euler(s.R)
	return Pose{
		Yaw:   y,
		Pitch: -x,
		Roll:  z,
		X:     s.T.X * scale,
		Y:     -s.T.Y * scale,
		Z:     s.T.Z * scale,
	}
}

// Store holds the latest pose and its solver-space RT pair under one lock.
// The zero value holds the all-zero pose.
type Store struct {
	mu   sync.Mutex
	pose Pose
	rt   RT
	ok   bool
}

// Publish replaces the pose and RT pair together.
func (s *Store) Publish(p Pose, rt RT) {
	s.mu.Lock()
	s.pose = p
	s.rt = rt
	s.ok = true
	s.mu.Unlock()
}

// Reset returns the store to the zero pose with no RT pair.
func (s *Store) Reset() {
	s.mu.Lock()
	s.pose = Pose{}
	s.rt = RT{}
	s.ok = false
	s.mu.Unlock()
}

// Pose returns the most recently published pose.
func (s *Store) Pose() Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose
}

// RT returns the most recent rotation/translation pair and whether any solve
// has been published yet.
func (s *Store) RT() (RT, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt, s.ok
}
