// Package control holds the shared enable flag and calibration offset and the
// controller that changes them in response to hotkey events.
package control

import "sync/atomic"

// State is shared between the tracking loop and the cursor driver.
type State struct {
	enabled     atomic.Bool
	Calibration Calibration
}

// NewState returns a state with cursor control enabled.
func NewState() *State {
	s := &State{}
	s.enabled.Store(true)
	return s
}

// Enabled reports whether the cursor driver should move the cursor.
func (s *State) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled sets the flag.
func (s *State) SetEnabled(v bool) {
	s.enabled.Store(v)
}

// Toggle flips the flag and returns the new value.
func (s *State) Toggle() bool {
	for {
		old := s.enabled.Load()
		if s.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
