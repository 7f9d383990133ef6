package identity

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Identifier resolves a JPEG face crop to a label.
type Identifier interface {
	IdentifyJPEG(ctx context.Context, jpeg []byte) (string, error)
}

// Worker runs identity lookups off the caller's goroutine. At most one crop
// is pending; newer submissions replace it.
type Worker struct {
	identifier Identifier
	timeout    time.Duration
	onResult   func(label string)
	logger     logrus.FieldLogger

	pending chan []byte

	mu    sync.RWMutex
	label string

	wg sync.WaitGroup
}

// NewWorker creates a worker. onResult, if set, is called from the worker
// goroutine every time the label changes.
func NewWorker(id Identifier, timeout time.Duration, onResult func(string), logger logrus.FieldLogger) *Worker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{
		identifier: id,
		timeout:    timeout,
		onResult:   onResult,
		logger:     logger.WithField("component", "identity"),
		pending:    make(chan []byte, 1),
	}
}

// Start runs the worker until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case jpeg := <-w.pending:
				w.lookup(ctx, jpeg)
			}
		}
	}()
}

// Wait blocks until the worker goroutine has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Submit queues a crop without blocking, replacing any crop not yet taken.
func (w *Worker) Submit(jpeg []byte) {
	for {
		select {
		case w.pending <- jpeg:
			return
		default:
		}
		select {
		case <-w.pending:
		default:
		}
	}
}

// Label returns the most recent label, empty before the first answer.
func (w *Worker) Label() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.label
}

func (w *Worker) lookup(ctx context.Context, jpeg []byte) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	label, err := w.identifier.IdentifyJPEG(ctx, jpeg)
	if err != nil {
		w.logger.WithError(err).Debug("identity lookup failed")
		return
	}

	w.mu.Lock()
	changed := label != w.label
	w.label = label
	w.mu.Unlock()

	if changed {
		w.logger.WithField("user", label).Info("user identified")
		if w.onResult != nil {
			w.onResult(label)
		}
	}
}
