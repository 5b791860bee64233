package world

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"spatial-radio/internal/radio"
)

// Handler exposes world edits over HTTP using go-chi.
type Handler struct {
	world *World
	log   *slog.Logger
}

// NewHandler returns a Handler for w.
func NewHandler(w *World, log *slog.Logger) *Handler {
	return &Handler{world: w, log: log}
}

// Routes mounts the world endpoints under /worlds/{dim}.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/worlds/{dim}", func(r chi.Router) {
		r.Post("/radios", h.PlaceRadio)
		r.Put("/radios/{x}/{y}/{z}", h.UpdateRadio)
		r.Post("/speakers", h.PlaceSpeaker)
		r.Put("/speakers/{x}/{y}/{z}/link", h.LinkSpeaker)
		r.Delete("/speakers/{x}/{y}/{z}/link", h.UnlinkSpeaker)
		r.Get("/emitters/{x}/{y}/{z}", h.GetEmitter)
		r.Delete("/emitters/{x}/{y}/{z}", h.RemoveEmitter)
		r.Post("/chunks/{cx}/{cz}/unload", h.UnloadChunk)
		r.Post("/chunks/{cx}/{cz}/load", h.LoadChunk)
	})
}

// PlaceRadio handles POST /worlds/{dim}/radios. Body: { "x": 1, "y": 64, "z": -3 }.
func (h *Handler) PlaceRadio(w http.ResponseWriter, r *http.Request) {
	var pos radio.BlockPos
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		h.log.Debug("invalid position body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	settings, err := h.world.PlaceRadio(chi.URLParam(r, "dim"), pos)
	if err != nil {
		h.writeError(w, "place radio", err)
		return
	}
	writeJSON(w, http.StatusCreated, settings)
}

// UpdateRadio handles PUT /worlds/{dim}/radios/{x}/{y}/{z}.
// Body: { "url": "https://...", "playing": true, "volume": 80 }.
func (h *Handler) UpdateRadio(w http.ResponseWriter, r *http.Request) {
	pos, ok := blockPosParam(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var in RadioSettings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.log.Debug("invalid radio body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	settings, err := h.world.UpdateRadio(chi.URLParam(r, "dim"), pos, in)
	if err != nil {
		h.writeError(w, "update radio", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PlaceSpeaker handles POST /worlds/{dim}/speakers. Body: { "x": 1, "y": 64, "z": -3 }.
func (h *Handler) PlaceSpeaker(w http.ResponseWriter, r *http.Request) {
	var pos radio.BlockPos
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.world.PlaceSpeaker(chi.URLParam(r, "dim"), pos); err != nil {
		h.writeError(w, "place speaker", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// LinkSpeaker handles PUT /worlds/{dim}/speakers/{x}/{y}/{z}/link.
// Body: { "dimension": "overworld", "pos": { "x": 0, "y": 64, "z": 0 } }.
func (h *Handler) LinkSpeaker(w http.ResponseWriter, r *http.Request) {
	pos, ok := blockPosParam(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var link Link
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.world.LinkSpeaker(chi.URLParam(r, "dim"), pos, &link); err != nil {
		h.writeError(w, "link speaker", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnlinkSpeaker handles DELETE /worlds/{dim}/speakers/{x}/{y}/{z}/link.
func (h *Handler) UnlinkSpeaker(w http.ResponseWriter, r *http.Request) {
	pos, ok := blockPosParam(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.world.LinkSpeaker(chi.URLParam(r, "dim"), pos, nil); err != nil {
		h.writeError(w, "unlink speaker", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEmitter handles GET /worlds/{dim}/emitters/{x}/{y}/{z}.
func (h *Handler) GetEmitter(w http.ResponseWriter, r *http.Request) {
	pos, ok := blockPosParam(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	view, err := h.world.Get(chi.URLParam(r, "dim"), pos)
	if err != nil {
		h.writeError(w, "get emitter", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveEmitter handles DELETE /worlds/{dim}/emitters/{x}/{y}/{z}.
func (h *Handler) RemoveEmitter(w http.ResponseWriter, r *http.Request) {
	pos, ok := blockPosParam(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.world.Remove(chi.URLParam(r, "dim"), pos); err != nil {
		h.writeError(w, "remove emitter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnloadChunk handles POST /worlds/{dim}/chunks/{cx}/{cz}/unload.
func (h *Handler) UnloadChunk(w http.ResponseWriter, r *http.Request) {
	h.chunkOp(w, r, "unload chunk", h.world.UnloadChunk)
}

// LoadChunk handles POST /worlds/{dim}/chunks/{cx}/{cz}/load.
func (h *Handler) LoadChunk(w http.ResponseWriter, r *http.Request) {
	h.chunkOp(w, r, "load chunk", h.world.LoadChunk)
}

func (h *Handler) chunkOp(w http.ResponseWriter, r *http.Request, op string, fn func(string, int, int) error) {
	cx, errX := strconv.Atoi(chi.URLParam(r, "cx"))
	cz, errZ := strconv.Atoi(chi.URLParam(r, "cz"))
	if errX != nil || errZ != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := fn(chi.URLParam(r, "dim"), cx, cz); err != nil {
		h.writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, ErrOccupied), errors.Is(err, ErrChunkUnloaded):
		h.log.Info(op+" rejected", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, ErrNotRadio), errors.Is(err, ErrNotSpeaker), errors.Is(err, ErrInvalidDimension):
		w.WriteHeader(http.StatusBadRequest)
	default:
		h.log.Error(op+" failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func blockPosParam(r *http.Request) (radio.BlockPos, bool) {
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	if errX != nil || errY != nil || errZ != nil {
		return radio.BlockPos{}, false
	}
	return radio.BlockPos{X: x, Y: y, Z: z}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
