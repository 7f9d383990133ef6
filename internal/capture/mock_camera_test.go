package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func newFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		t.Cleanup(func() { m.Close() })
		frames[i] = &m
	}
	return frames
}

func readN(t *testing.T, cam *MockCamera, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_ErrNoMoreFrames(t *testing.T) {
	cam := NewMockCamera(newFrames(t, 2), false)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	readN(t, cam, 2)

	// The stream stays ended; reads past the end are not counted.
	for i := 0; i < 3; i++ {
		if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoMoreFrames) {
			t.Fatalf("read past end = %v, want ErrNoMoreFrames", err)
		}
	}
	if cam.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", cam.Reads())
	}

	cam.Reset()
	readN(t, cam, 1)
	if cam.Reads() != 3 {
		t.Errorf("Reads() after Reset = %d, want 3", cam.Reads())
	}
}

func TestMockCamera_EmptyStream(t *testing.T) {
	cam := NewMockCamera(nil, true)
	cam.Open()
	defer cam.Close()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoMoreFrames) {
		t.Errorf("ReadFrame() on empty stream = %v, want ErrNoMoreFrames", err)
	}

	cam.SetFrames(newFrames(t, 1))
	readN(t, cam, 1)
}

func TestMockCamera_Loop(t *testing.T) {
	cam := NewMockCamera(newFrames(t, 2), true)
	cam.Open()
	defer cam.Close()

	readN(t, cam, 7)
	if cam.Reads() != 7 {
		t.Errorf("Reads() = %d, want 7", cam.Reads())
	}
}

func TestMockCamera_OpenClose(t *testing.T) {
	cam := NewMockCamera(newFrames(t, 1), true)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() before Open = %v, want ErrCameraNotOpen", err)
	}

	cam.Open()
	if !cam.IsOpen() {
		t.Error("IsOpen() should be true after Open()")
	}
	cam.Close()
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() after Close = %v, want ErrCameraNotOpen", err)
	}

	cam.SetFPS(12)
	cam.SetFPS(-1)
	if cam.FPS() != 12 {
		t.Errorf("FPS() = %d, want 12", cam.FPS())
	}
}
