package hotkey

// DefaultQueueSize is the number of pending events a queue holds.
const DefaultQueueSize = 16

// Queue carries events from any number of sources to a single consumer.
// Send never blocks; when the buffer is full the event is dropped.
type Queue struct {
	ch chan Event
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Event, size)}
}

// Send enqueues an event and reports whether it was accepted.
func (q *Queue) Send(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

// Events exposes the receive side for select loops.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Drain returns every pending event without blocking.
func (q *Queue) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-q.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Source is anything that produces control events.
type Source interface {
	Emit(kind Kind)
}

// QueueSource adapts a queue into a named Source.
type QueueSource struct {
	Name  string
	Queue *Queue
}

// Emit sends a freshly stamped event to the queue.
func (s QueueSource) Emit(kind Kind) {
	s.Queue.Send(NewEvent(kind, s.Name))
}
