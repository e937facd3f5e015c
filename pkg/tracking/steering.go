package tracking

import "sync/atomic"

// SteeringMemory holds the manual steering directions. It is owned by the
// caller (a keyboard or joystick handler) and read by the steering job;
// every flag may be flipped from any goroutine.
type SteeringMemory struct {
	Left  atomic.Bool
	Right atomic.Bool
	Up    atomic.Bool
	Down  atomic.Bool
}

// Release clears all directions.
func (m *SteeringMemory) Release() {
	m.Left.Store(false)
	m.Right.Store(false)
	m.Up.Store(false)
	m.Down.Store(false)
}

// delta returns the altitude and azimuth offsets for one steering frame.
// Opposite directions cancel.
func (m *SteeringMemory) delta(step float64) (altitude, azimuth float64) {
	if m.Up.Load() {
		altitude += step
	}
	if m.Down.Load() {
		altitude -= step
	}
	if m.Right.Load() {
		azimuth += step
	}
	if m.Left.Load() {
		azimuth -= step
	}
	return altitude, azimuth
}
