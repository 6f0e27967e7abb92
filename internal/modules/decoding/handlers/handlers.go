// Package handlers provides HTTP handlers for histogram decoding.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/qpixel/internal/domain"
	circuithandlers "github.com/aristath/qpixel/internal/modules/circuit/handlers"
	"github.com/aristath/qpixel/internal/modules/decoding"
	"github.com/rs/zerolog"
)

// Handler handles decoding HTTP requests
type Handler struct {
	defaultTieBreak decoding.TieBreak
	log             zerolog.Logger
}

// NewHandler creates a new decoding handler
func NewHandler(defaultTieBreak decoding.TieBreak, log zerolog.Logger) *Handler {
	return &Handler{
		defaultTieBreak: defaultTieBreak,
		log:             log.With().Str("handler", "decoding").Logger(),
	}
}

// DecodeRequest represents a request to decode a measurement histogram.
// Qubits may be omitted and is then derived from Side.
type DecodeRequest struct {
	Counts   domain.Histogram `json:"counts"`
	Qubits   int              `json:"qubits,omitempty"`
	Side     int              `json:"side"`
	TieBreak string           `json:"tie_break,omitempty"`
}

// HandleDecode handles POST /api/decode
func (h *Handler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// the decoded register is 4^N cells, bound it like the encoder does
	if req.Side > circuithandlers.MaxSide {
		http.Error(w, fmt.Sprintf("side %d exceeds maximum %d", req.Side, circuithandlers.MaxSide), http.StatusBadRequest)
		return
	}

	layout, err := domain.NewLayout(req.Side)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	qubits := req.Qubits
	if qubits == 0 {
		qubits = layout.Qubits
	}

	tieBreak := h.defaultTieBreak
	if req.TieBreak != "" {
		tieBreak = decoding.TieBreak(req.TieBreak)
	}
	decoder, err := decoding.NewDecoder(tieBreak)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, err := decoder.Decode(req.Counts, qubits, req.Side)
	if err != nil {
		// every decode failure is a property of the submitted histogram
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"image":     img,
			"side":      req.Side,
			"qubits":    qubits,
			"shots":     req.Counts.Total(),
			"tie_break": decoder.TieBreak(),
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
