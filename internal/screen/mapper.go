// Package screen maps head angles onto smoothed, clamped screen coordinates.
package screen

import (
	"math"

	"github.com/ayusman/nayana/internal/pose"
)

// Center is the calibrated angle that maps to the middle of the screen.
const Center = 180.0

// Default mapping constants.
const (
	DefaultYawFOV       = 20.0
	DefaultPitchFOV     = 10.0
	DefaultSmoothFactor = 0.2
	DefaultMargin       = 10
)

// Config holds the mapping parameters.
type Config struct {
	Width  int
	Height int

	// YawFOV and PitchFOV are the half-angles in degrees that span the
	// full screen width and height.
	YawFOV   float64
	PitchFOV float64

	// SmoothFactor is the weight of the new sample: 0 freezes the cursor,
	// 1 follows every frame.
	SmoothFactor float64

	// Margin keeps the cursor this many pixels inside every screen edge.
	Margin int
}

// Point is a screen position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position truncates the point to whole pixels.
func (p Point) Position() (int, int) {
	return int(p.X), int(p.Y)
}

// Mapper converts calibrated angles into screen positions. It is stateful:
// every output is smoothed against the previous one.
type Mapper struct {
	cfg  Config
	prev Point
}

// NewMapper creates a mapper whose smoothing starts from the screen center.
func NewMapper(cfg Config) *Mapper {
	m := &Mapper{cfg: cfg}
	m.Reset()
	return m
}

// Config returns the mapper configuration.
func (m *Mapper) Config() Config {
	return m.cfg
}

// Reset moves the smoothing state back to the screen center.
func (m *Mapper) Reset() {
	m.prev = Point{X: float64(m.cfg.Width / 2), Y: float64(m.cfg.Height / 2)}
}

// Previous returns the last published position.
func (m *Mapper) Previous() Point {
	return m.prev
}

// Project maps angles to an unsmoothed, unclamped screen position.
func (m *Mapper) Project(a pose.Angles) Point {
	yawFOV, pitchFOV := m.cfg.YawFOV, m.cfg.PitchFOV
	return Point{
		X: ((a.Yaw - (Center - yawFOV)) / (2 * yawFOV)) * float64(m.cfg.Width),
		Y: ((Center + pitchFOV - a.Pitch) / (2 * pitchFOV)) * float64(m.cfg.Height),
	}
}

// Update projects the angles, smooths toward the result and clamps it inside
// the screen margins. The clamped value becomes the new smoothing state.
func (m *Mapper) Update(a pose.Angles) Point {
	raw := m.Project(a)
	k := m.cfg.SmoothFactor

	next := Point{
		X: m.prev.X + (raw.X-m.prev.X)*k,
		Y: m.prev.Y + (raw.Y-m.prev.Y)*k,
	}
	next.X = clamp(next.X, float64(m.cfg.Margin), float64(m.cfg.Width-m.cfg.Margin))
	next.Y = clamp(next.Y, float64(m.cfg.Margin), float64(m.cfg.Height-m.cfg.Margin))

	m.prev = next
	return next
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
