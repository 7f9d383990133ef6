package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/ayusman/nayana/internal/config"
	"github.com/ayusman/nayana/internal/store"
)

// SettingsHandler serves GET and PUT /api/settings. Stored values are
// applied on the next start.
type SettingsHandler struct {
	store   *store.Store
	current config.Config
}

// NewSettingsHandler creates a handler. current is the configuration the
// running process was started with.
func NewSettingsHandler(s *store.Store, current config.Config) *SettingsHandler {
	return &SettingsHandler{store: s, current: current}
}

type settingsResponse struct {
	Effective       map[string]string `json:"effective"`
	Stored          map[string]string `json:"stored"`
	RestartRequired bool              `json:"restart_required"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.Settings().All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Effective: h.current.Settings(),
		Stored:    stored,
	})
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "no settings given")
		return
	}

	keys := make([]string, 0, len(req))
	for key := range req {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !config.IsTunable(key) {
			writeError(w, http.StatusBadRequest, "setting cannot be changed: "+key)
			return
		}
	}

	stored, err := h.store.Settings().All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	// Validate the configuration the next start would produce.
	candidate := h.current
	if err := candidate.ApplySettings(stored); err != nil {
		writeError(w, http.StatusInternalServerError, "stored settings are invalid: "+err.Error())
		return
	}
	if err := candidate.ApplySettings(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := candidate.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Settings().SetAll(req); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	for key, value := range req {
		stored[key] = value
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Effective:       h.current.Settings(),
		Stored:          stored,
		RestartRequired: true,
	})
}
