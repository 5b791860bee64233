package radio

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler exposes the listener, master volume and session list over HTTP.
type Handler struct {
	ctrl      *Controller
	listeners *ListenerTracker
	master    *MasterVolume
	persist   func(float64) error
	log       *slog.Logger
}

// NewHandler returns a Handler. persist is called after every master volume
// change and may be nil.
func NewHandler(ctrl *Controller, listeners *ListenerTracker, master *MasterVolume, persist func(float64) error, log *slog.Logger) *Handler {
	return &Handler{ctrl: ctrl, listeners: listeners, master: master, persist: persist, log: log}
}

type listenerBody struct {
	Dimension string  `json:"dimension"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

type masterBody struct {
	Value float64 `json:"value"`
}

// SetListener handles PUT /listener.
// Body: { "dimension": "overworld", "x": 0, "y": 64, "z": 0 }.
func (h *Handler) SetListener(w http.ResponseWriter, r *http.Request) {
	var body listenerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid listener body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	l := Listener{Dimension: body.Dimension, Pos: Vec3{X: body.X, Y: body.Y, Z: body.Z}}
	if err := h.listeners.Set(l); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearListener handles DELETE /listener. Every session is stopped on the next tick.
func (h *Handler) ClearListener(w http.ResponseWriter, r *http.Request) {
	h.listeners.Clear()
	h.log.Info("listener cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// GetMasterVolume handles GET /master-volume.
func (h *Handler) GetMasterVolume(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, masterBody{Value: h.master.Master()})
}

// SetMasterVolume handles PUT /master-volume. Body: { "value": 0.8 }.
// Values are clamped to 0..1.
func (h *Handler) SetMasterVolume(w http.ResponseWriter, r *http.Request) {
	var body masterBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	v := h.master.Set(body.Value)
	if h.persist != nil {
		if err := h.persist(v); err != nil {
			h.log.Warn("failed to persist master volume", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, masterBody{Value: v})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
