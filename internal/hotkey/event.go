// Package hotkey defines the control events that reach the tracking loop and
// the queue that carries them there.
package hotkey

import "time"

// Kind identifies a control action.
type Kind int

const (
	Toggle Kind = iota + 1
	Calibrate
	Quit
)

func (k Kind) String() string {
	switch k {
	case Toggle:
		return "toggle"
	case Calibrate:
		return "calibrate"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// ParseKind maps an action name to its Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "toggle":
		return Toggle, true
	case "calibrate":
		return Calibrate, true
	case "quit":
		return Quit, true
	default:
		return 0, false
	}
}

// Event is a single edge-triggered control action.
type Event struct {
	Kind   Kind
	Source string
	At     time.Time
}

// NewEvent stamps an event with the current time.
func NewEvent(kind Kind, source string) Event {
	return Event{Kind: kind, Source: source, At: time.Now()}
}
