package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/nayana/internal/hotkey"
)

// ControlSource is the event source name used for API requests.
const ControlSource = "http"

// ControlHandler turns POST /api/control/{action} into hotkey events.
type ControlHandler struct {
	queue *hotkey.Queue
}

// NewControlHandler creates a handler that feeds the given queue.
func NewControlHandler(q *hotkey.Queue) *ControlHandler {
	return &ControlHandler{queue: q}
}

type controlResponse struct {
	Action   string `json:"action"`
	Accepted bool   `json:"accepted"`
}

// ServeHTTP handles /api/control/toggle and /api/control/calibrate.
// Events are applied asynchronously by the tracking loop.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/control"), "/")
	kind, ok := hotkey.ParseKind(action)
	if !ok || kind == hotkey.Quit {
		writeError(w, http.StatusNotFound, "unknown action: "+action)
		return
	}

	if !h.queue.Send(hotkey.NewEvent(kind, ControlSource)) {
		writeError(w, http.StatusServiceUnavailable, "event queue full")
		return
	}

	writeJSON(w, http.StatusAccepted, controlResponse{Action: kind.String(), Accepted: true})
}
