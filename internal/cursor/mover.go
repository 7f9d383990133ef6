package cursor

import (
	"sync"

	"github.com/go-vgo/robotgo"
)

// Mover moves the OS cursor.
type Mover interface {
	MoveTo(x, y int)
}

// RobotgoMover moves the real cursor.
type RobotgoMover struct{}

// MoveTo moves the cursor to absolute screen coordinates.
func (RobotgoMover) MoveTo(x, y int) {
	robotgo.Move(x, y)
}

// ScreenSize returns the size of the main display.
func ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// MockMover records moves for tests.
type MockMover struct {
	mu    sync.Mutex
	moves []Position
}

// NewMockMover creates an empty recorder.
func NewMockMover() *MockMover {
	return &MockMover{}
}

// MoveTo records the move.
func (m *MockMover) MoveTo(x, y int) {
	m.mu.Lock()
	m.moves = append(m.moves, Position{X: x, Y: y})
	m.mu.Unlock()
}

// Moves returns a copy of every recorded move.
func (m *MockMover) Moves() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, len(m.moves))
	copy(out, m.moves)
	return out
}

// Count returns how many moves were recorded.
func (m *MockMover) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.moves)
}

// Last returns the most recent move.
func (m *MockMover) Last() (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.moves) == 0 {
		return Position{}, false
	}
	return m.moves[len(m.moves)-1], true
}
