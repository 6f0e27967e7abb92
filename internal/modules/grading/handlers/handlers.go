// Package handlers provides HTTP handlers for grading runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/events"
	"github.com/aristath/qpixel/internal/modules/grading"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// GradingService is the part of grading.Service the handlers use
type GradingService interface {
	StartRun(ctx context.Context) (string, error)
	GetRun(ctx context.Context, id string) (*grading.Run, []grading.ScoreRecord, error)
	ListRuns(ctx context.Context, limit int) ([]grading.Run, error)
}

// Handler handles grading HTTP requests
type Handler struct {
	service GradingService
	bus     *events.Bus
	log     zerolog.Logger
}

// NewHandler creates a new grading handler
func NewHandler(service GradingService, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		bus:     bus,
		log:     log.With().Str("handler", "grading").Logger(),
	}
}

// HandleStartRun handles POST /api/grading/runs
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	runID, err := h.service.StartRun(r.Context())
	if errors.Is(err, grading.ErrRunInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if errors.Is(err, grading.ErrServiceStopped) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if errors.Is(err, grading.ErrNoSamples) || errors.Is(err, domain.ErrNoDataset) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to start grading run")
		http.Error(w, "Failed to start grading run", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"data": map[string]interface{}{
			"run_id": runID,
			"status": grading.RunRunning,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListRuns handles GET /api/grading/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.service.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list grading runs")
		http.Error(w, "Failed to list grading runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []grading.Run{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRun handles GET /api/grading/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, items, err := h.service.GetRun(r.Context(), id)
	if errors.Is(err, grading.ErrRunNotFound) {
		http.Error(w, "Grading run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get grading run")
		http.Error(w, "Failed to get grading run", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []grading.ScoreRecord{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"run":   run,
			"items": items,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
