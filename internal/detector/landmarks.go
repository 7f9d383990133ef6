// Package detector provides face landmark types, the detector interface and
// the key-point extraction that feeds head-pose estimation.
package detector

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r3"
)

// NumLandmarks is the size of a MediaPipe face mesh with refined iris
// landmarks. Meshes without refinement (468 points) leave the tail zeroed.
const NumLandmarks = 478

// ErrNoFace is returned when a frame carries no face landmarks.
var ErrNoFace = errors.New("no face detected")

// Point3D is a normalized landmark position as produced by the tracker:
// x and y in [0,1] of the frame, z a relative depth on the same scale as x.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks is one tracked face.
type FaceLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	Score  float64               `json:"score"`
}

// Pixel returns landmark i in frame-pixel space. Depth is scaled by the
// frame width, matching the tracker's convention.
func (f *FaceLandmarks) Pixel(i, width, height int) r3.Vector {
	p := f.Points[i]
	return r3.Vector{
		X: p.X * float64(width),
		Y: p.Y * float64(height),
		Z: p.Z * float64(width),
	}
}

// Bounds returns the pixel bounding box of all non-zero landmarks clipped to
// the frame, grown by pad pixels on every side.
func (f *FaceLandmarks) Bounds(width, height, pad int) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range f.Points {
		if p.X == 0 && p.Y == 0 && p.Z == 0 {
			continue
		}
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	if math.IsInf(minX, 1) {
		return image.Rectangle{}
	}

	r := image.Rect(
		int(minX*float64(width))-pad,
		int(minY*float64(height))-pad,
		int(maxX*float64(width))+pad,
		int(maxY*float64(height))+pad,
	)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// KeyPointIDs maps the five key points onto landmark indices.
type KeyPointIDs struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Front  int `json:"front"`
}

// DefaultKeyPointIDs are the face mesh indices for the cheek extremes, the
// forehead top, the chin and the nose tip.
func DefaultKeyPointIDs() KeyPointIDs {
	return KeyPointIDs{
		Left:   234,
		Right:  454,
		Top:    10,
		Bottom: 152,
		Front:  1,
	}
}

// Validate checks that every index addresses a landmark and that no two key
// points share an index.
func (ids KeyPointIDs) Validate() error {
	named := []struct {
		name string
		id   int
	}{
		{"left", ids.Left},
		{"right", ids.Right},
		{"top", ids.Top},
		{"bottom", ids.Bottom},
		{"front", ids.Front},
	}

	seen := make(map[int]string, len(named))
	for _, n := range named {
		if n.id < 0 || n.id >= NumLandmarks {
			return fmt.Errorf("key point %s: index %d out of range [0,%d)", n.name, n.id, NumLandmarks)
		}
		if other, ok := seen[n.id]; ok {
			return fmt.Errorf("key points %s and %s share index %d", other, n.name, n.id)
		}
		seen[n.id] = n.name
	}
	return nil
}

// KeyPoints are the five landmarks used to build the head coordinate frame,
// in frame-pixel space.
type KeyPoints struct {
	Left   r3.Vector
	Right  r3.Vector
	Top    r3.Vector
	Bottom r3.Vector
	Front  r3.Vector
}

// ExtractKeyPoints selects the key points from a face. The ids must have been
// validated beforehand.
func ExtractKeyPoints(face *FaceLandmarks, ids KeyPointIDs, width, height int) (KeyPoints, error) {
	if face == nil {
		return KeyPoints{}, ErrNoFace
	}

	return KeyPoints{
		Left:   face.Pixel(ids.Left, width, height),
		Right:  face.Pixel(ids.Right, width, height),
		Top:    face.Pixel(ids.Top, width, height),
		Bottom: face.Pixel(ids.Bottom, width, height),
		Front:  face.Pixel(ids.Front, width, height),
	}, nil
}
