// Package app wires the head-tracking pipeline: camera, landmark tracker,
// pose estimation, calibration, screen mapping and the cursor driver.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/nayana/internal/capture"
	"github.com/ayusman/nayana/internal/config"
	"github.com/ayusman/nayana/internal/control"
	"github.com/ayusman/nayana/internal/cursor"
	"github.com/ayusman/nayana/internal/detector"
	"github.com/ayusman/nayana/internal/hotkey"
	"github.com/ayusman/nayana/internal/identity"
	"github.com/ayusman/nayana/internal/pose"
	"github.com/ayusman/nayana/internal/screen"
	"github.com/ayusman/nayana/internal/server"
	"github.com/ayusman/nayana/internal/store"
)

// Pipeline timing constants.
const (
	// SessionFlushInterval is how often running session counters are written.
	SessionFlushInterval = 5 * time.Second
	// CropPadding is the margin in pixels added around the face for identity lookups.
	CropPadding = 20
)

// Indicator shows controller state to the user, e.g. in the system tray.
type Indicator interface {
	SetEnabled(enabled bool)
	SetUser(name string)
}

// Previewer displays frames and may emit hotkey events.
type Previewer interface {
	Show(frame *gocv.Mat)
	Close() error
}

// Option configures an App.
type Option func(*App)

// WithCamera replaces the default gocv camera.
func WithCamera(c capture.Camera) Option {
	return func(a *App) { a.camera = c }
}

// WithDetector replaces the MediaPipe face mesh detector.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithMover replaces the robotgo cursor mover.
func WithMover(m cursor.Mover) Option {
	return func(a *App) { a.mover = m }
}

// WithScreenSize sets the display size instead of querying the OS.
func WithScreenSize(width, height int) Option {
	return func(a *App) { a.screenW, a.screenH = width, height }
}

// WithStore records sessions in s.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithQueue uses q as the hotkey event queue.
func WithQueue(q *hotkey.Queue) Option {
	return func(a *App) { a.queue = q }
}

// WithTelemetry publishes per-frame telemetry to hub.
func WithTelemetry(hub *server.Hub) Option {
	return func(a *App) { a.hub = hub }
}

// WithIdentity looks up the user with id at the configured interval.
func WithIdentity(id identity.Identifier) Option {
	return func(a *App) { a.identifier = id }
}

// WithIndicator reports state changes to ind.
func WithIndicator(ind Indicator) Option {
	return func(a *App) { a.indicator = ind }
}

// WithPreview shows every frame in p.
func WithPreview(p Previewer) Option {
	return func(a *App) { a.preview = p }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *App) { a.logger = l }
}

// App is the main application that turns head pose into cursor movement.
type App struct {
	config config.Config
	logger logrus.FieldLogger

	camera     capture.Camera
	detector   detector.Detector
	estimator  *pose.Estimator
	state      *control.State
	controller *control.Controller
	mapper     *screen.Mapper
	target     *cursor.Target
	mover      cursor.Mover
	driver     *cursor.Driver
	queue      *hotkey.Queue

	store      *store.Store
	hub        *server.Hub
	identifier identity.Identifier
	identity   *identity.Worker
	indicator  Indicator
	preview    Previewer

	screenW, screenH int

	mu        sync.RWMutex
	running   bool
	sessionID string
	counters  store.SessionCounters
	lastRaw   *pose.Angles
	lastPos   *cursor.Position
	seq       int64
}

// New creates a new App from a validated configuration.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logrus.StandardLogger()
	}
	a.logger = a.logger.WithField("component", "app")

	if a.screenW <= 0 || a.screenH <= 0 {
		if cfg.ScreenWidth > 0 && cfg.ScreenHeight > 0 {
			a.screenW, a.screenH = cfg.ScreenWidth, cfg.ScreenHeight
		} else {
			a.screenW, a.screenH = cursor.ScreenSize()
		}
	}
	if a.screenW <= 2*cfg.EdgeMargin || a.screenH <= 2*cfg.EdgeMargin {
		return nil, fmt.Errorf("screen size %dx%d too small for edge margin %d", a.screenW, a.screenH, cfg.EdgeMargin)
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.DefaultConfig(cfg.CameraID))
	}
	if a.detector == nil {
		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			a.logger.Info("using MediaPipe face mesh")
		} else {
			a.logger.WithError(err).Warn("MediaPipe not available, using mock detector")
			a.detector = detector.NewMockDetector()
		}
	}
	if a.mover == nil {
		a.mover = cursor.RobotgoMover{}
	}
	if a.queue == nil {
		a.queue = hotkey.NewQueue(hotkey.DefaultQueueSize)
	}

	a.estimator = pose.NewEstimator(cfg.HistoryLength)
	a.state = control.NewState()
	a.controller = control.NewController(a.state, cfg.Debounce, a.logger)
	a.mapper = screen.NewMapper(screen.Config{
		Width:        a.screenW,
		Height:       a.screenH,
		YawFOV:       cfg.YawFOV,
		PitchFOV:     cfg.PitchFOV,
		SmoothFactor: cfg.SmoothFactor,
		Margin:       cfg.EdgeMargin,
	})
	a.target = cursor.NewTarget(cursor.Position{X: a.screenW / 2, Y: a.screenH / 2})
	a.driver = cursor.NewDriver(a.target, a.state.Enabled, a.mover, cfg.PollInterval, a.logger)

	if a.identifier != nil {
		a.identity = identity.NewWorker(a.identifier, 0, a.onUser, a.logger)
	}

	return a, nil
}

// Queue returns the hotkey event queue feeding the tracking loop.
func (a *App) Queue() *hotkey.Queue {
	return a.queue
}

// State returns the shared enable flag and calibration.
func (a *App) State() *control.State {
	return a.state
}

// Target returns the latest desired cursor position cell.
func (a *App) Target() *cursor.Target {
	return a.target
}

// Driver returns the cursor driver.
func (a *App) Driver() *cursor.Driver {
	return a.driver
}

// ScreenSize returns the display size the mapper uses.
func (a *App) ScreenSize() (int, int) {
	return a.screenW, a.screenH
}

// Status returns a snapshot for the status endpoint.
func (a *App) Status() server.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := server.Status{
		Running:       a.running,
		Enabled:       a.state.Enabled(),
		SessionID:     a.sessionID,
		ScreenWidth:   a.screenW,
		ScreenHeight:  a.screenH,
		Offset:        a.state.Calibration.Offset(),
		Frames:        a.counters.Frames,
		PoseFrames:    a.counters.PoseFrames,
		SkippedFrames: a.counters.SkippedFrames,
	}
	if a.identity != nil {
		st.User = a.identity.Label()
	}
	if a.lastRaw != nil {
		raw := *a.lastRaw
		st.Raw = &raw
	}
	if a.lastPos != nil {
		pos := *a.lastPos
		st.Cursor = &pos
	}
	return st
}

func (a *App) onUser(label string) {
	if a.indicator != nil {
		a.indicator.SetUser(label)
	}
}
