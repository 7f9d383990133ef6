package pose

import (
	"errors"

	"github.com/golang/geo/r3"
)

// ErrEmptyHistory is returned by Mean before any sample has been pushed.
var ErrEmptyHistory = errors.New("orientation history is empty")

type sample struct {
	origin    r3.Vector
	direction r3.Vector
}

// History is a fixed-capacity FIFO of (origin, direction) samples.
type History struct {
	buf   []sample
	head  int // index of the oldest sample
	count int
}

// NewHistory creates a history holding at most n samples. n < 1 is treated as 1.
func NewHistory(n int) *History {
	if n < 1 {
		n = 1
	}
	return &History{buf: make([]sample, n)}
}

// Push appends a sample, evicting the oldest when full.
func (h *History) Push(origin, direction r3.Vector) {
	s := sample{origin: origin, direction: direction}
	if h.count < len(h.buf) {
		h.buf[(h.head+h.count)%len(h.buf)] = s
		h.count++
		return
	}
	h.buf[h.head] = s
	h.head = (h.head + 1) % len(h.buf)
}

// Len returns the number of samples held.
func (h *History) Len() int { return h.count }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.buf) }

// Reset drops every sample.
func (h *History) Reset() {
	h.head = 0
	h.count = 0
}

// Mean returns the average origin and the normalized average direction.
func (h *History) Mean() (origin, direction r3.Vector, err error) {
	if h.count == 0 {
		return r3.Vector{}, r3.Vector{}, ErrEmptyHistory
	}

	var sumOrigin, sumDir r3.Vector
	for i := 0; i < h.count; i++ {
		s := h.buf[(h.head+i)%len(h.buf)]
		sumOrigin = sumOrigin.Add(s.origin)
		sumDir = sumDir.Add(s.direction)
	}

	n := float64(h.count)
	origin = sumOrigin.Mul(1 / n)

	meanDir := sumDir.Mul(1 / n)
	norm := meanDir.Norm()
	if norm < Epsilon {
		return origin, r3.Vector{}, ErrDegenerate
	}
	return origin, meanDir.Mul(1 / norm), nil
}
