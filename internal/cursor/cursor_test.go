package cursor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTarget_PublishLatest(t *testing.T) {
	var target Target
	if _, ok := target.Latest(); ok {
		t.Error("expected zero target to report unset")
	}

	target.Publish(Position{X: 10, Y: 20})
	pos, ok := target.Latest()
	if !ok || pos != (Position{X: 10, Y: 20}) {
		t.Errorf("Latest() = %v, %v", pos, ok)
	}

	initial := NewTarget(Position{X: 960, Y: 540})
	if pos, ok := initial.Latest(); !ok || pos.X != 960 {
		t.Errorf("NewTarget Latest() = %v, %v", pos, ok)
	}
}

func TestTarget_ConsistentSnapshots(t *testing.T) {
	target := NewTarget(Position{})
	const writes = 20000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			target.Publish(Position{X: i, Y: i * 2})
		}
	}()

	var torn atomic.Int64
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			pos, _ := target.Latest()
			if pos.Y != pos.X*2 {
				torn.Add(1)
			}
		}
	}()

	wg.Wait()
	if n := torn.Load(); n != 0 {
		t.Errorf("observed %d inconsistent snapshots", n)
	}
}

func TestMockMover(t *testing.T) {
	m := NewMockMover()
	if _, ok := m.Last(); ok {
		t.Error("expected no moves")
	}
	m.MoveTo(1, 2)
	m.MoveTo(3, 4)

	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
	if last, _ := m.Last(); last != (Position{X: 3, Y: 4}) {
		t.Errorf("Last() = %v", last)
	}
	moves := m.Moves()
	moves[0] = Position{}
	if m.Moves()[0] != (Position{X: 1, Y: 2}) {
		t.Error("Moves() should return a copy")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDriver_MovesToTarget(t *testing.T) {
	target := NewTarget(Position{X: 100, Y: 200})
	mover := NewMockMover()
	d := NewDriver(target, nil, mover, 5*time.Millisecond, nil)

	d.Start()
	defer d.Stop()

	waitFor(t, time.Second, func() bool { return mover.Count() > 0 })
	if last, _ := mover.Last(); last != (Position{X: 100, Y: 200}) {
		t.Errorf("first move = %v", last)
	}

	target.Publish(Position{X: 300, Y: 400})
	waitFor(t, time.Second, func() bool {
		last, _ := mover.Last()
		return last == Position{X: 300, Y: 400}
	})
}

func TestDriver_Disabled(t *testing.T) {
	var enabled atomic.Bool
	target := NewTarget(Position{X: 1, Y: 1})
	mover := NewMockMover()
	d := NewDriver(target, enabled.Load, mover, 2*time.Millisecond, nil)

	d.Start()
	time.Sleep(30 * time.Millisecond)
	if mover.Count() != 0 {
		t.Errorf("expected no moves while disabled, got %d", mover.Count())
	}

	enabled.Store(true)
	waitFor(t, time.Second, func() bool { return mover.Count() > 0 })
	d.Stop()
}

func TestDriver_SkipsUnsetTarget(t *testing.T) {
	mover := NewMockMover()
	d := NewDriver(&Target{}, nil, mover, 2*time.Millisecond, nil)

	d.Start()
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	if mover.Count() != 0 {
		t.Errorf("expected no moves for unset target, got %d", mover.Count())
	}
}

func TestDriver_StopJoins(t *testing.T) {
	mover := NewMockMover()
	d := NewDriver(NewTarget(Position{}), nil, mover, time.Millisecond, nil)

	d.Start()
	d.Start() // no-op
	if !d.IsRunning() {
		t.Fatal("expected driver to be running")
	}
	waitFor(t, time.Second, func() bool { return mover.Count() > 0 })

	d.Stop()
	if d.IsRunning() {
		t.Error("expected driver to be stopped")
	}
	after := mover.Count()
	time.Sleep(10 * time.Millisecond)
	if mover.Count() != after {
		t.Error("driver kept moving after Stop returned")
	}

	d.Stop() // idempotent
}

func TestDriver_Restart(t *testing.T) {
	mover := NewMockMover()
	d := NewDriver(NewTarget(Position{}), nil, mover, time.Millisecond, nil)

	d.Start()
	d.Stop()
	n := mover.Count()

	d.Start()
	waitFor(t, time.Second, func() bool { return mover.Count() > n })
	d.Stop()
}

func TestNewDriver_DefaultInterval(t *testing.T) {
	d := NewDriver(&Target{}, nil, NewMockMover(), 0, nil)
	if d.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", d.interval, DefaultInterval)
	}
}
