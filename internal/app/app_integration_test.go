package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/nayana/internal/capture"
	"github.com/ayusman/nayana/internal/cursor"
	"github.com/ayusman/nayana/internal/detector"
	"github.com/ayusman/nayana/internal/hotkey"
	"github.com/ayusman/nayana/internal/store"
)

func newSquareFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(frameSize, frameSize, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return &frame
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestApp_RunUntilCameraEnds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := newTestStore(t)
	frame := newSquareFrame(t)
	frames := make([]*gocv.Mat, 30)
	for i := range frames {
		frames[i] = frame
	}
	cam := capture.NewMockCamera(frames, false)

	det := detector.NewMockDetector()
	det.SetFaces([]detector.FaceLandmarks{detector.SyntheticFace(10, 0)})
	logger, _ := test.NewNullLogger()

	a, err := New(testConfig(t),
		WithCamera(cam),
		WithDetector(det),
		WithMover(cursor.NewMockMover()),
		WithScreenSize(1920, 1080),
		WithStore(s),
		WithLogger(logger),
	)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.ErrorIs(t, err, capture.ErrNoMoreFrames)

	assert.False(t, a.Driver().IsRunning(), "cursor driver stops with the loop")
	assert.False(t, cam.IsOpen(), "camera closes with the loop")
	assert.Equal(t, 30, det.Calls())

	pos, _ := a.Target().Latest()
	assert.GreaterOrEqual(t, pos.X, 1400)
	assert.LessOrEqual(t, pos.X, 1440)
	assert.Equal(t, 540, pos.Y)

	sessions, err := s.Sessions().List(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sess := sessions[0]
	assert.Equal(t, int64(30), sess.Frames)
	assert.Equal(t, int64(30), sess.PoseFrames)
	assert.Equal(t, int64(0), sess.SkippedFrames)
	assert.NotNil(t, sess.EndedAt)
	assert.Contains(t, sess.EndReason, "camera")
}

func TestApp_RunQuitEvent(t *testing.T) {
	cam := capture.NewMockCamera([]*gocv.Mat{newSquareFrame(t)}, true)
	logger, _ := test.NewNullLogger()

	a, err := New(testConfig(t),
		WithCamera(cam),
		WithDetector(detector.NewMockDetector()),
		WithMover(cursor.NewMockMover()),
		WithScreenSize(1920, 1080),
		WithLogger(logger),
	)
	require.NoError(t, err)

	a.Queue().Send(hotkey.NewEvent(hotkey.Quit, "test"))
	assert.NoError(t, a.Run(context.Background()), "quit ends the loop cleanly")
	assert.Equal(t, 0, cam.Reads())
}

func TestApp_RunCancelAndEvents(t *testing.T) {
	s := newTestStore(t)
	cam := capture.NewMockCamera([]*gocv.Mat{newSquareFrame(t)}, true)
	det := detector.NewMockDetector()
	det.SetFaces([]detector.FaceLandmarks{detector.SyntheticFace(-5, 0)})
	mover := cursor.NewMockMover()
	logger, _ := test.NewNullLogger()

	a, err := New(testConfig(t),
		WithCamera(cam),
		WithDetector(det),
		WithMover(mover),
		WithScreenSize(1920, 1080),
		WithStore(s),
		WithLogger(logger),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	const wait, tick = 2 * time.Second, 5 * time.Millisecond

	// The driver moves the cursor while enabled.
	require.Eventually(t, func() bool { return mover.Count() > 0 }, wait, tick)
	require.Eventually(t, func() bool { return a.Status().PoseFrames > 0 }, wait, tick)

	a.Queue().Send(hotkey.NewEvent(hotkey.Calibrate, "test"))
	require.Eventually(t, func() bool { return a.State().Calibration.Offset().Yaw != 0 }, wait, tick)

	a.Queue().Send(hotkey.NewEvent(hotkey.Toggle, "test"))
	require.Eventually(t, func() bool { return !a.State().Enabled() }, wait, tick)

	sessionID := a.Status().SessionID
	require.NotEmpty(t, sessionID, "expected an active session")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancel ends the loop cleanly")
	case <-time.After(wait):
		t.Fatal("Run did not return after cancel")
	}

	sess, err := s.Sessions().GetByID(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", sess.EndReason)
	assert.Equal(t, int64(1), sess.Calibrations)
	assert.Equal(t, int64(1), sess.Toggles)

	events, err := s.Sessions().Events(sessionID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "calibrate", events[0].Kind)
	assert.Equal(t, "toggle", events[1].Kind)
}
