// Package pose estimates head orientation from face key points: it builds a
// head-aligned coordinate frame, smooths its forward axis over recent frames
// and converts the result into yaw and pitch angles.
package pose

import (
	"errors"

	"github.com/golang/geo/r3"

	"github.com/ayusman/nayana/internal/detector"
)

// Epsilon is the smallest vector length treated as non-zero.
const Epsilon = 1e-9

// ErrDegenerate is returned when landmark geometry does not define a direction.
var ErrDegenerate = errors.New("degenerate geometry")

// Frame is a head-aligned orthonormal basis anchored at the key point centroid.
// Forward points out of the face toward the camera.
type Frame struct {
	Origin  r3.Vector
	Right   r3.Vector
	Up      r3.Vector
	Forward r3.Vector

	// HalfWidth and HalfHeight are half the cheek-to-cheek and
	// forehead-to-chin distances in pixels.
	HalfWidth  float64
	HalfHeight float64
}

// BuildFrame derives the head frame from the five key points.
func BuildFrame(kp detector.KeyPoints) (Frame, error) {
	across := kp.Right.Sub(kp.Left)
	vertical := kp.Top.Sub(kp.Bottom)

	width := across.Norm()
	height := vertical.Norm()
	if width < Epsilon || height < Epsilon {
		return Frame{}, ErrDegenerate
	}

	right := across.Mul(1 / width)
	upRaw := vertical.Mul(1 / height)

	normal := right.Cross(upRaw)
	if normal.Norm() < Epsilon {
		return Frame{}, ErrDegenerate
	}
	forward := normal.Normalize().Mul(-1)

	// Landmark axes are rarely perpendicular; keep up in the same plane but
	// square it against right. Forward is unaffected.
	up := upRaw.Sub(right.Mul(upRaw.Dot(right))).Normalize()

	origin := kp.Left.Add(kp.Right).Add(kp.Top).Add(kp.Bottom).Add(kp.Front).Mul(1.0 / 5)

	return Frame{
		Origin:     origin,
		Right:      right,
		Up:         up,
		Forward:    forward,
		HalfWidth:  width / 2,
		HalfHeight: height / 2,
	}, nil
}
