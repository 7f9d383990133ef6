package pose

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/nayana/internal/detector"
)

// Estimate is the per-frame output of the Estimator.
type Estimate struct {
	Frame        Frame
	AvgOrigin    r3.Vector
	AvgDirection r3.Vector
	// Raw holds the angles before calibration is applied.
	Raw Angles
}

// Estimator turns key points into smoothed head angles.
type Estimator struct {
	history *History
}

// NewEstimator creates an estimator averaging the last historyLength frames.
func NewEstimator(historyLength int) *Estimator {
	return &Estimator{history: NewHistory(historyLength)}
}

// Update adds one frame of key points and returns the smoothed estimate.
// Degenerate frames are rejected before they reach the history.
func (e *Estimator) Update(kp detector.KeyPoints) (Estimate, error) {
	frame, err := BuildFrame(kp)
	if err != nil {
		return Estimate{}, err
	}

	e.history.Push(frame.Origin, frame.Forward)

	origin, direction, err := e.history.Mean()
	if err != nil {
		return Estimate{}, err
	}

	raw, err := ExtractAngles(direction)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		Frame:        frame,
		AvgOrigin:    origin,
		AvgDirection: direction,
		Raw:          raw,
	}, nil
}

// History exposes the underlying sample history.
func (e *Estimator) History() *History {
	return e.history
}
