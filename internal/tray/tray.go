// Package tray provides the system tray menu of the Nayana cursor controller.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/nayana/internal/hotkey"
)

// Source is the event source name for tray clicks.
const Source = "tray"

// Tray represents the system tray application. Clicks are turned into
// hotkey events; the tracking loop owns the resulting state and reports it
// back through SetEnabled and SetUser.
type Tray struct {
	events hotkey.Source
	onExit func()

	enabled bool
	user    string
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuUser   *systray.MenuItem
}

// New creates a new Tray that emits events to the given source.
func New(events hotkey.Source) *Tray {
	return &Tray{
		events:  events,
		enabled: true,
	}
}

// OnExit sets the callback that runs after the tray has shut down.
func (t *Tray) OnExit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.handleExit)
}

// Quit tears the tray down from any goroutine.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Nayana")
	systray.SetTooltip("Nayana head-tracking cursor")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle cursor control")
	menuCalibrate := systray.AddMenuItem("Calibrate", "Use the current head pose as screen center")
	systray.AddSeparator()

	t.menuUser = systray.AddMenuItem(userTitle(t.user), "Recognized user")
	t.menuUser.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Nayana")
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.events.Emit(hotkey.Toggle)
			case <-menuCalibrate.ClickedCh:
				t.events.Emit(hotkey.Calibrate)
			case <-menuQuit.ClickedCh:
				t.events.Emit(hotkey.Quit)
				return
			}
		}
	}()
}

// handleExit is called when the system tray is about to exit.
func (t *Tray) handleExit() {
	t.mu.RLock()
	callback := t.onExit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetEnabled updates the toggle item to reflect the cursor control state.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetUser updates the recognized user display in the menu.
func (t *Tray) SetUser(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.user = name
	if t.menuUser != nil {
		t.menuUser.SetTitle(userTitle(name))
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Cursor control on"
	}
	return "○ Cursor control off"
}

func userTitle(name string) string {
	if name == "" {
		return "User: none"
	}
	return "User: " + name
}
