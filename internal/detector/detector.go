package detector

import "gocv.io/x/gocv"

// Detector defines the interface for face landmark tracker implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the tracked faces.
	// Returns an empty slice if no face is detected.
	Detect(frame *gocv.Mat) ([]FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face tracking.
type Config struct {
	// MaxFaces is the maximum number of faces to track (default: 1).
	MaxFaces int

	// RefineLandmarks asks the tracker for the 478 point mesh with irises.
	RefineLandmarks bool

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:        1,
		RefineLandmarks: true,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
