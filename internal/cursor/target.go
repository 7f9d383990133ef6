// Package cursor owns the latest desired cursor position and the loop that
// pushes it to the operating system.
package cursor

import "sync"

// Position is a cursor position in screen pixels.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Target is the single-writer, single-reader cell holding the latest
// desired position. Readers always see a pair written together.
type Target struct {
	mu  sync.Mutex
	pos Position
	set bool
}

// NewTarget creates a target initialised to pos.
func NewTarget(pos Position) *Target {
	return &Target{pos: pos, set: true}
}

// Publish replaces the position.
func (t *Target) Publish(pos Position) {
	t.mu.Lock()
	t.pos = pos
	t.set = true
	t.mu.Unlock()
}

// Latest returns the current position and whether one was ever published.
func (t *Target) Latest() (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos, t.set
}
