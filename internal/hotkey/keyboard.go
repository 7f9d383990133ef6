package hotkey

import (
	"fmt"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// DefaultToggleKey toggles cursor control from any window.
const DefaultToggleKey = "f7"

// KeyboardSource is the event source name for global key presses.
const KeyboardSource = "keyboard"

// KeyBindings maps key names ("f7", "space", "q") to event kinds.
type KeyBindings map[string]Kind

// Keyboard listens to the OS keyboard hook and emits one event per key
// press, independent of which window has focus. Held keys do not repeat.
type Keyboard struct {
	codes  map[uint16]Kind
	source Source

	down map[uint16]bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewKeyboard resolves the bindings against the hook's key table.
func NewKeyboard(bindings KeyBindings, source Source) (*Keyboard, error) {
	if len(bindings) == 0 {
		return nil, fmt.Errorf("no key bindings")
	}

	codes := make(map[uint16]Kind, len(bindings))
	for name, kind := range bindings {
		code, ok := hook.Keycode[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		codes[code] = kind
	}

	return &Keyboard{
		codes:  codes,
		source: source,
		down:   make(map[uint16]bool),
	}, nil
}

// Start installs the hook and forwards presses until Stop.
func (k *Keyboard) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return
	}
	k.running = true
	k.stop = make(chan struct{})
	k.done = make(chan struct{})

	go k.loop(hook.Start(), k.stop, k.done)
}

// Stop removes the hook and waits for the forwarding goroutine.
func (k *Keyboard) Stop() {
	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return
	}
	k.running = false
	close(k.stop)
	done := k.done
	k.mu.Unlock()

	hook.End()
	<-done
}

func (k *Keyboard) loop(events chan hook.Event, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if kind, ok := k.press(ev); ok {
				k.source.Emit(kind)
			}
		}
	}
}

// press reports the bound kind when ev is the first down event of a press.
func (k *Keyboard) press(ev hook.Event) (Kind, bool) {
	kind, ok := k.codes[ev.Keycode]
	if !ok {
		return 0, false
	}

	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		if k.down[ev.Keycode] {
			return 0, false
		}
		k.down[ev.Keycode] = true
		return kind, true
	case hook.KeyUp:
		delete(k.down, ev.Keycode)
	}
	return 0, false
}
