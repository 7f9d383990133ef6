package app

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nayana/internal/config"
	"github.com/ayusman/nayana/internal/cursor"
	"github.com/ayusman/nayana/internal/detector"
	"github.com/ayusman/nayana/internal/hotkey"
	"github.com/ayusman/nayana/internal/pose"
)

const frameSize = 480

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	logger, _ := test.NewNullLogger()
	base := []Option{
		WithScreenSize(1920, 1080),
		WithDetector(detector.NewMockDetector()),
		WithMover(cursor.NewMockMover()),
		WithLogger(logger),
	}
	a, err := New(testConfig(t), append(base, opts...)...)
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig(t)
	cfg.SmoothFactor = 0
	_, err := New(cfg, WithScreenSize(1920, 1080), WithDetector(detector.NewMockDetector()))
	assert.Error(t, err)

	_, err = New(testConfig(t), WithScreenSize(15, 15), WithDetector(detector.NewMockDetector()))
	assert.Error(t, err, "screen smaller than twice the margin must be rejected")
}

func TestNew_ScreenSizeFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScreenWidth, cfg.ScreenHeight = 1280, 800
	a, err := New(cfg, WithDetector(detector.NewMockDetector()), WithMover(cursor.NewMockMover()))
	require.NoError(t, err)

	w, h := a.ScreenSize()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 800, h)

	pos, ok := a.Target().Latest()
	assert.True(t, ok)
	assert.Equal(t, cursor.Position{X: 640, Y: 400}, pos)
}

func TestProcessFace_FrontalStaysCentered(t *testing.T) {
	a := newTestApp(t)
	face := detector.SyntheticFace(0, 0)

	for i := 0; i < 10; i++ {
		tf, err := a.processFace(&face, frameSize, frameSize)
		require.NoError(t, err)
		assert.InDelta(t, 180, tf.Raw.Yaw, 1e-6)
		assert.InDelta(t, 180, tf.Raw.Pitch, 1e-6)
	}

	pos, _ := a.Target().Latest()
	assert.Equal(t, cursor.Position{X: 960, Y: 540}, pos)
}

func TestProcessFace_TurnMovesCursor(t *testing.T) {
	a := newTestApp(t)
	right := detector.SyntheticFace(10, 0)

	var last cursor.Position
	for i := 0; i < 50; i++ {
		tf, err := a.processFace(&right, frameSize, frameSize)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, tf.Cursor.X, last.X, "cursor moves monotonically toward the target")
		last = tf.Cursor
	}

	// Yaw 190 maps to three quarters of the width.
	assert.InDelta(t, 1440, last.X, 2)
	assert.Equal(t, 540, last.Y)
}

func TestProcessFace_CalibrationRecentersCursor(t *testing.T) {
	a := newTestApp(t)
	tilted := detector.SyntheticFace(-8, 0)

	_, err := a.processFace(&tilted, frameSize, frameSize)
	require.NoError(t, err)

	res := a.controller.Handle(hotkey.NewEvent(hotkey.Calibrate, "test"))
	require.NoError(t, res.Err)
	assert.InDelta(t, 8, res.Offset.Yaw, 1e-6)

	for i := 0; i < 60; i++ {
		tf, err := a.processFace(&tilted, frameSize, frameSize)
		require.NoError(t, err)
		assert.InDelta(t, 180, tf.Calibrated.Yaw, 1e-6)
	}
	pos, _ := a.Target().Latest()
	assert.InDelta(t, 960, pos.X, 1)
}

func TestProcessFace_PublishesWhileDisabled(t *testing.T) {
	a := newTestApp(t)
	a.State().SetEnabled(false)
	face := detector.SyntheticFace(10, 0)

	tf, err := a.processFace(&face, frameSize, frameSize)
	require.NoError(t, err)
	assert.False(t, tf.Enabled)

	pos, _ := a.Target().Latest()
	assert.Greater(t, pos.X, 960)
}

func TestProcessFace_DegenerateFrameSkipped(t *testing.T) {
	a := newTestApp(t)
	var flat detector.FaceLandmarks // every key point at the origin

	_, err := a.processFace(&flat, frameSize, frameSize)
	assert.True(t, errors.Is(err, pose.ErrDegenerate))

	pos, _ := a.Target().Latest()
	assert.Equal(t, cursor.Position{X: 960, Y: 540}, pos)
	assert.Nil(t, a.Status().Raw)
}

func TestProcessFace_EdgeMarginHolds(t *testing.T) {
	a := newTestApp(t)
	farRight := detector.SyntheticFace(80, 0)

	for i := 0; i < 100; i++ {
		tf, err := a.processFace(&farRight, frameSize, frameSize)
		require.NoError(t, err)
		assert.LessOrEqual(t, tf.Cursor.X, 1910)
		assert.GreaterOrEqual(t, tf.Cursor.Y, 10)
	}
	pos, _ := a.Target().Latest()
	assert.Equal(t, 1910, pos.X)
}

type recordingIndicator struct {
	enabled []bool
	users   []string
}

func (r *recordingIndicator) SetEnabled(enabled bool) { r.enabled = append(r.enabled, enabled) }
func (r *recordingIndicator) SetUser(name string)     { r.users = append(r.users, name) }

func TestDrainEvents(t *testing.T) {
	ind := &recordingIndicator{}
	a := newTestApp(t, WithIndicator(ind))
	q := a.Queue()

	q.Send(hotkey.NewEvent(hotkey.Toggle, "tray"))
	q.Send(hotkey.NewEvent(hotkey.Toggle, "tray")) // debounced
	q.Send(hotkey.NewEvent(hotkey.Calibrate, "tray"))

	assert.False(t, a.drainEvents())
	assert.False(t, a.State().Enabled())
	assert.Equal(t, []bool{false}, ind.enabled)

	a.mu.RLock()
	counters := a.counters
	a.mu.RUnlock()
	assert.Equal(t, int64(1), counters.Toggles)
	// Calibration before any pose is rejected.
	assert.Equal(t, int64(0), counters.Calibrations)

	q.Send(hotkey.NewEvent(hotkey.Quit, "tray"))
	assert.True(t, a.drainEvents())
}

func TestStatus(t *testing.T) {
	a := newTestApp(t)
	face := detector.SyntheticFace(5, 0)
	_, err := a.processFace(&face, frameSize, frameSize)
	require.NoError(t, err)

	st := a.Status()
	assert.False(t, st.Running)
	assert.True(t, st.Enabled)
	assert.Equal(t, 1920, st.ScreenWidth)
	assert.Equal(t, int64(1), st.PoseFrames)
	require.NotNil(t, st.Raw)
	assert.InDelta(t, 185, st.Raw.Yaw, 1e-6)
	require.NotNil(t, st.Cursor)
}

func TestProcessFrame_NoFaceLeavesStateUnchanged(t *testing.T) {
	det := detector.NewMockDetector()
	a := newTestApp(t, WithDetector(det))
	frame := newSquareFrame(t)

	det.SetFaces([]detector.FaceLandmarks{detector.SyntheticFace(10, 0)})
	require.NotNil(t, a.processFrame(frame))

	published, ok := a.Target().Latest()
	require.True(t, ok)
	prev := a.mapper.Previous()
	historyLen := a.estimator.History().Len()
	a.mu.RLock()
	raw := *a.lastRaw
	skipped := a.counters.SkippedFrames
	a.mu.RUnlock()

	det.SetFaces(nil)
	assert.Nil(t, a.processFrame(frame), "frame without landmarks is skipped")

	det.SetError(errors.New("tracker crashed"))
	assert.Nil(t, a.processFrame(frame), "detector failure is skipped")

	pos, _ := a.Target().Latest()
	assert.Equal(t, published, pos)
	assert.Equal(t, prev, a.mapper.Previous())
	assert.Equal(t, historyLen, a.estimator.History().Len())

	a.mu.RLock()
	defer a.mu.RUnlock()
	assert.Equal(t, raw, *a.lastRaw)
	assert.Equal(t, skipped+2, a.counters.SkippedFrames)
	assert.Equal(t, int64(3), a.counters.Frames)
	assert.Equal(t, int64(1), a.counters.PoseFrames)
}
