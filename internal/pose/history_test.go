package pose

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_Capacity(t *testing.T) {
	h := NewHistory(3)
	assert.Equal(t, 3, h.Cap())
	assert.Equal(t, 0, h.Len())

	for i := 0; i < 10; i++ {
		h.Push(r3.Vector{X: float64(i)}, r3.Vector{Z: 1})
		assert.LessOrEqual(t, h.Len(), 3)
	}
	assert.Equal(t, 3, h.Len())

	// Only the last three origins (7, 8, 9) remain.
	origin, _, err := h.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 8, origin.X, 1e-12)
}

func TestHistory_NonPositiveCapacity(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 1, h.Cap())
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	_, _, err := h.Mean()
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestHistory_Mean(t *testing.T) {
	h := NewHistory(4)
	h.Push(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0})
	h.Push(r3.Vector{X: 2, Y: 4, Z: 6}, r3.Vector{X: 0, Y: 0, Z: 1})

	origin, dir, err := h.Mean()
	require.NoError(t, err)

	assert.InDelta(t, 1, origin.X, 1e-12)
	assert.InDelta(t, 2, origin.Y, 1e-12)
	assert.InDelta(t, 3, origin.Z, 1e-12)

	assert.InDelta(t, 1, dir.Norm(), 1e-12)
	assert.InDelta(t, dir.X, dir.Z, 1e-12)
}

func TestHistory_OutlierEvicted(t *testing.T) {
	const n = 20
	h := NewHistory(n)

	outlier := r3.Vector{X: 1, Y: 0, Z: 0}
	steady := r3.Vector{X: 0, Y: 0, Z: 1}

	h.Push(r3.Vector{}, outlier)
	for i := 0; i < n-1; i++ {
		h.Push(r3.Vector{}, steady)
	}

	_, dir, err := h.Mean()
	require.NoError(t, err)
	assert.Greater(t, dir.X, 0.0, "outlier still inside the window")

	// Frame n+1 evicts the outlier.
	h.Push(r3.Vector{}, steady)

	_, dir, err = h.Mean()
	require.NoError(t, err)
	assert.Equal(t, steady, dir)
}

func TestHistory_CancellingDirections(t *testing.T) {
	h := NewHistory(2)
	h.Push(r3.Vector{}, r3.Vector{Z: 1})
	h.Push(r3.Vector{}, r3.Vector{Z: -1})

	_, _, err := h.Mean()
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory(2)
	h.Push(r3.Vector{}, r3.Vector{Z: 1})
	h.Reset()

	assert.Equal(t, 0, h.Len())
	_, _, err := h.Mean()
	assert.ErrorIs(t, err, ErrEmptyHistory)
}
