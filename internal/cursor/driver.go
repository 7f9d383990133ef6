package cursor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the cursor polling period.
const DefaultInterval = 10 * time.Millisecond

// Driver periodically moves the cursor to the target while enabled.
type Driver struct {
	target   *Target
	enabled  func() bool
	mover    Mover
	interval time.Duration
	logger   logrus.FieldLogger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDriver creates a stopped driver. A nil enabled func means always enabled.
func NewDriver(target *Target, enabled func() bool, mover Mover, interval time.Duration, logger logrus.FieldLogger) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Driver{
		target:   target,
		enabled:  enabled,
		mover:    mover,
		interval: interval,
		logger:   logger.WithField("component", "cursor"),
	}
}

// Start launches the polling goroutine. Calling Start on a running driver is
// a no-op.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	go d.loop(d.stopCh, d.doneCh)
	d.logger.WithField("interval", d.interval).Debug("cursor driver started")
}

// Stop signals the goroutine and waits for it to exit.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	done := d.doneCh
	d.mu.Unlock()

	<-done
	d.logger.Debug("cursor driver stopped")
}

// IsRunning reports whether the goroutine is active.
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Driver) tick() {
	if !d.enabled() {
		return
	}
	pos, ok := d.target.Latest()
	if !ok {
		return
	}
	d.mover.MoveTo(pos.X, pos.Y)
}
