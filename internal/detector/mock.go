package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	faces []FaceLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Half extents of the synthetic face, in normalized frame units.
const (
	syntheticHalfWidth  = 0.15
	syntheticHalfHeight = 0.2
	syntheticNoseDepth  = 0.1
)

// SyntheticFace returns landmarks for a face centered in the frame and turned
// by yawDeg around the vertical axis and pitchDeg around the horizontal axis.
// Only the default key points are populated. A frontal face (0, 0) yields a
// forward axis of (0, 0, 1).
func SyntheticFace(yawDeg, pitchDeg float64) FaceLandmarks {
	ids := DefaultKeyPointIDs()
	face := FaceLandmarks{Score: 0.99}

	offsets := map[int][3]float64{
		ids.Left:   {-syntheticHalfWidth, 0, 0},
		ids.Right:  {syntheticHalfWidth, 0, 0},
		ids.Top:    {0, -syntheticHalfHeight, 0},
		ids.Bottom: {0, syntheticHalfHeight, 0},
		ids.Front:  {0, 0, -syntheticNoseDepth},
	}

	yaw := yawDeg * math.Pi / 180
	pitch := pitchDeg * math.Pi / 180

	for idx, o := range offsets {
		x, y, z := o[0], o[1], o[2]

		// Yaw about the image y axis.
		x, z = x*math.Cos(yaw)+z*math.Sin(yaw), -x*math.Sin(yaw)+z*math.Cos(yaw)
		// Pitch about the image x axis.
		y, z = y*math.Cos(pitch)-z*math.Sin(pitch), y*math.Sin(pitch)+z*math.Cos(pitch)

		face.Points[idx] = Point3D{X: 0.5 + x, Y: 0.5 + y, Z: z}
	}

	return face
}
