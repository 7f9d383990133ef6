package pose

import (
	"math"

	"github.com/golang/geo/r3"
)

// ReferenceForward is the direction against which yaw and pitch are measured.
var ReferenceForward = r3.Vector{X: 0, Y: 0, Z: -1}

// Angles are yaw and pitch in degrees.
type Angles struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// ExtractAngles converts a unit direction into wrapped yaw and pitch degrees.
//
// Each angle is the planar angle between the direction projected onto the
// xz (yaw) or yz (pitch) plane and ReferenceForward, signed by the x (yaw) or
// negated y (pitch) component. The results are then remapped:
//
//	yaw < 0    -> |yaw|
//	yaw < 180  -> 360 - yaw
//	pitch < 0  -> pitch + 360
//
// so that a face looking straight into the camera, whose forward axis is
// (0, 0, 1), reads (180, 180) and small head turns move continuously around
// that value. Directions near ReferenceForward itself straddle the 0/360 seam.
func ExtractAngles(dir r3.Vector) (Angles, error) {
	xz := r3.Vector{X: dir.X, Y: 0, Z: dir.Z}
	yz := r3.Vector{X: 0, Y: dir.Y, Z: dir.Z}
	if xz.Norm() < Epsilon || yz.Norm() < Epsilon {
		return Angles{}, ErrDegenerate
	}

	yawRad := planarAngle(xz.Normalize())
	if dir.X < 0 {
		yawRad = -yawRad
	}

	pitchRad := planarAngle(yz.Normalize())
	if dir.Y > 0 {
		pitchRad = -pitchRad
	}

	yaw := degrees(yawRad)
	pitch := degrees(pitchRad)

	if yaw < 0 {
		yaw = math.Abs(yaw)
	} else if yaw < 180 {
		yaw = 360 - yaw
	}

	if pitch < 0 {
		pitch = 360 + pitch
	}

	return Angles{Yaw: yaw, Pitch: pitch}, nil
}

// planarAngle is the angle between ReferenceForward and the unit vector v.
func planarAngle(v r3.Vector) float64 {
	return math.Acos(clamp(ReferenceForward.Dot(v), -1, 1))
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
