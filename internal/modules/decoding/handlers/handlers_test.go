package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	circuithandlers "github.com/aristath/qpixel/internal/modules/circuit/handlers"
	"github.com/aristath/qpixel/internal/modules/decoding"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler() *Handler {
	return NewHandler(decoding.TieBreakDominant, zerolog.New(nil).Level(zerolog.Disabled))
}

func decodeRequest(t *testing.T, handler *Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/decode", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()
	handler.HandleDecode(w, req)
	return w
}

func TestHandleDecode(t *testing.T) {
	handler := setupHandler()

	// every cell measured only on its sine branch decodes to full intensity,
	// except cell 0 which is only seen on its cosine branch
	w := decodeRequest(t, handler, map[string]interface{}{
		"counts": map[string]int{"000": 1, "110": 1, "101": 1, "111": 1},
		"side":   2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			Image    [][]float64 `json:"image"`
			Qubits   int         `json:"qubits"`
			Shots    int         `json:"shots"`
			TieBreak string      `json:"tie_break"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, [][]float64{{0, 255}, {255, 255}}, response.Data.Image)
	assert.Equal(t, 3, response.Data.Qubits)
	assert.Equal(t, 4, response.Data.Shots)
	assert.Equal(t, "dominant", response.Data.TieBreak)
}

func TestHandleDecode_TieBreakOverride(t *testing.T) {
	handler := setupHandler()

	w := decodeRequest(t, handler, map[string]interface{}{
		"counts":    map[string]int{"1": 8},
		"side":      1,
		"qubits":    1,
		"tie_break": "ratio",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tie_break":"ratio"`)
	assert.Contains(t, w.Body.String(), `[[255]]`)
}

func TestHandleDecode_BadRequests(t *testing.T) {
	handler := setupHandler()

	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid side", map[string]interface{}{"counts": map[string]int{"0": 1}, "side": 0}},
		{"side too large", map[string]interface{}{"counts": map[string]int{"1" + strings.Repeat("0", 24): 1}, "side": 4096}},
		{"qubit mismatch", map[string]interface{}{"counts": map[string]int{"000": 1}, "side": 2, "qubits": 4}},
		{"malformed key", map[string]interface{}{"counts": map[string]int{"0x0": 1}, "side": 2}},
		{"empty histogram", map[string]interface{}{"counts": map[string]int{}, "side": 2}},
		{"unknown tie-break", map[string]interface{}{"counts": map[string]int{"000": 1}, "side": 2, "tie_break": "coin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := decodeRequest(t, handler, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleDecode_MaxSide(t *testing.T) {
	handler := setupHandler()

	// largest accepted side still decodes
	w := decodeRequest(t, handler, map[string]interface{}{
		"counts": map[string]int{"0" + strings.Repeat("0", 12): 1},
		"side":   circuithandlers.MaxSide,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = decodeRequest(t, handler, map[string]interface{}{
		"counts": map[string]int{"0" + strings.Repeat("0", 14): 1},
		"side":   circuithandlers.MaxSide + 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds maximum")
	assert.Less(t, w.Body.Len(), 100)
}

func TestRegisterRoutes(t *testing.T) {
	handler := setupHandler()
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		router.Route("/api", handler.RegisterRoutes)
	})
}
