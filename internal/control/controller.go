package control

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/nayana/internal/hotkey"
	"github.com/ayusman/nayana/internal/pose"
)

// DefaultDebounce is the minimum gap between accepted toggle events.
const DefaultDebounce = 300 * time.Millisecond

// ErrNoPose is returned when calibration is requested before any pose has
// been observed.
var ErrNoPose = errors.New("no pose observed yet")

// Result describes what handling an event did.
type Result struct {
	Kind    hotkey.Kind
	Applied bool
	Enabled bool
	Offset  Offset
	Quit    bool
	Err     error
}

// Controller applies hotkey events to a State.
type Controller struct {
	state  *State
	logger logrus.FieldLogger

	toggles *rate.Limiter

	mu     sync.Mutex
	latest pose.Angles
	seen   bool
}

// NewController creates a controller. Toggle events closer together than
// debounce are ignored; a non-positive debounce disables the cooldown.
func NewController(state *State, debounce time.Duration, logger logrus.FieldLogger) *Controller {
	limit := rate.Inf
	if debounce > 0 {
		limit = rate.Every(debounce)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		state:   state,
		logger:  logger.WithField("component", "control"),
		toggles: rate.NewLimiter(limit, 1),
	}
}

// State returns the controlled state.
func (c *Controller) State() *State {
	return c.state
}

// Observe records the most recent raw angles for use by calibration.
func (c *Controller) Observe(raw pose.Angles) {
	c.mu.Lock()
	c.latest = raw
	c.seen = true
	c.mu.Unlock()
}

// Latest returns the last observed raw angles.
func (c *Controller) Latest() (pose.Angles, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.seen
}

// Handle applies the event. The cooldown is measured from the event
// timestamp when set, otherwise from the current time.
func (c *Controller) Handle(ev hotkey.Event) Result {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	res := Result{Kind: ev.Kind}
	log := c.logger.WithField("source", ev.Source)

	switch ev.Kind {
	case hotkey.Toggle:
		if !c.toggles.AllowN(at, 1) {
			log.Debug("toggle ignored (debounce)")
			break
		}
		res.Applied = true
		res.Enabled = c.state.Toggle()
		log.WithField("enabled", res.Enabled).Info("cursor control toggled")

	case hotkey.Calibrate:
		raw, ok := c.Latest()
		if !ok {
			res.Err = ErrNoPose
			log.Warn("calibration requested before any pose was observed")
			break
		}
		res.Applied = true
		res.Offset = c.state.Calibration.Calibrate(raw)
		log.WithFields(logrus.Fields{
			"yaw_offset":   res.Offset.Yaw,
			"pitch_offset": res.Offset.Pitch,
		}).Info("calibrated")

	case hotkey.Quit:
		res.Applied = true
		res.Quit = true
		log.Info("quit requested")

	default:
		log.WithField("kind", int(ev.Kind)).Warn("unknown event")
	}

	res.Enabled = c.state.Enabled()
	return res
}
