package hotkey

import (
	"gocv.io/x/gocv"
)

// Preview is a gocv window that shows camera frames and turns key presses
// into events: q quits, c calibrates, m toggles cursor control.
type Preview struct {
	window *gocv.Window
	source Source
}

// NewPreview opens a named preview window.
func NewPreview(name string, source Source) *Preview {
	return &Preview{
		window: gocv.NewWindow(name),
		source: source,
	}
}

// Show displays the frame and polls the keyboard for one millisecond.
func (p *Preview) Show(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	p.window.IMShow(*frame)
	if kind, ok := KeyKind(p.window.WaitKey(1)); ok {
		p.source.Emit(kind)
	}
}

// Close destroys the window.
func (p *Preview) Close() error {
	return p.window.Close()
}

// KeyKind maps a WaitKey code to an event kind.
func KeyKind(key int) (Kind, bool) {
	if key < 0 {
		return 0, false
	}
	switch key & 0xFF {
	case 'q', 'Q':
		return Quit, true
	case 'c', 'C':
		return Calibrate, true
	case 'm', 'M':
		return Toggle, true
	default:
		return 0, false
	}
}
