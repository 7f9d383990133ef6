package control

import (
	"sync"

	"github.com/ayusman/nayana/internal/pose"
)

// Neutral is the calibrated angle for a centered head on both axes.
const Neutral = 180.0

// Offset is the additive correction applied to raw angles, in degrees.
type Offset struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Calibration stores the current offset. The zero value applies no
// correction. It is not persisted.
type Calibration struct {
	mu     sync.RWMutex
	offset Offset
}

// Calibrate sets the offset so that raw maps exactly to the neutral pose.
func (c *Calibration) Calibrate(raw pose.Angles) Offset {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = Offset{Yaw: Neutral - raw.Yaw, Pitch: Neutral - raw.Pitch}
	return c.offset
}

// Apply returns raw shifted by the current offset.
func (c *Calibration) Apply(raw pose.Angles) pose.Angles {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return pose.Angles{Yaw: raw.Yaw + c.offset.Yaw, Pitch: raw.Pitch + c.offset.Pitch}
}

// Offset returns the current offset.
func (c *Calibration) Offset() Offset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Reset clears the offset.
func (c *Calibration) Reset() {
	c.mu.Lock()
	c.offset = Offset{}
	c.mu.Unlock()
}
