// Package handlers provides HTTP handlers for circuit encoding.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/modules/circuit"
	"github.com/rs/zerolog"
)

// MaxSide bounds the images accepted over HTTP
const MaxSide = 64

// Handler handles circuit HTTP requests
type Handler struct {
	defaultStrategy circuit.Strategy
	log             zerolog.Logger
}

// NewHandler creates a new circuit handler
func NewHandler(defaultStrategy circuit.Strategy, log zerolog.Logger) *Handler {
	return &Handler{
		defaultStrategy: defaultStrategy,
		log:             log.With().Str("handler", "circuit").Logger(),
	}
}

// EncodeRequest represents a request to encode an image
type EncodeRequest struct {
	Image        domain.Image `json:"image"`
	Strategy     string       `json:"strategy,omitempty"`
	IncludeGates bool         `json:"include_gates,omitempty"`
}

// HandleEncode handles POST /api/circuits/encode
func (h *Handler) HandleEncode(w http.ResponseWriter, r *http.Request) {
	req, seq, qubits, ok := h.encode(w, r)
	if !ok {
		return
	}

	data := map[string]interface{}{
		"strategy":        seq.Strategy,
		"side":            req.Image.Side(),
		"qubits":          qubits,
		"gates":           len(seq.Gates),
		"operations":      seq.Operations(),
		"two_qubit_gates": seq.TwoQubitGates(),
		"count_by_width":  seq.CountByWidth(),
	}
	if req.IncludeGates {
		data["sequence"] = seq
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleQASM handles POST /api/circuits/qasm
func (h *Handler) HandleQASM(w http.ResponseWriter, r *http.Request) {
	_, seq, _, ok := h.encode(w, r)
	if !ok {
		return
	}

	program, err := circuit.ToQASM(seq)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render QASM")
		http.Error(w, "Failed to render circuit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(program)); err != nil {
		h.log.Error().Err(err).Msg("Failed to write QASM response")
	}
}

// encode decodes and validates the request body and builds the circuit,
// writing the error response itself when it fails
func (h *Handler) encode(w http.ResponseWriter, r *http.Request) (EncodeRequest, domain.GateSequence, int, bool) {
	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, domain.GateSequence{}, 0, false
	}

	side := req.Image.Side()
	if side == 0 || side > MaxSide {
		http.Error(w, "Image must be a non-empty square of side at most 64", http.StatusBadRequest)
		return req, domain.GateSequence{}, 0, false
	}

	strategy := h.defaultStrategy
	if req.Strategy != "" {
		s, err := circuit.ParseStrategy(req.Strategy)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return req, domain.GateSequence{}, 0, false
		}
		strategy = s
	}

	builder, err := circuit.NewBuilder(side, strategy, h.log)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, domain.GateSequence{}, 0, false
	}

	seq, qubits, err := builder.Encode(req.Image)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrDimensionMismatch) || errors.Is(err, domain.ErrIntensityOutOfRange) {
			status = http.StatusBadRequest
		} else {
			h.log.Error().Err(err).Msg("Failed to encode image")
		}
		http.Error(w, err.Error(), status)
		return req, domain.GateSequence{}, 0, false
	}

	return req, seq, qubits, true
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
