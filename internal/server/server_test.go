package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/qpixel/internal/events"
	"github.com/aristath/qpixel/internal/modules/circuit"
	circuithandlers "github.com/aristath/qpixel/internal/modules/circuit/handlers"
	testingpkg "github.com/aristath/qpixel/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRuns string

func (f fixedRuns) Active() string { return string(f) }

type signalJob struct {
	ran chan struct{}
	n   atomic.Int32
}

func (j *signalJob) Name() string { return "signal" }

func (j *signalJob) Run() error {
	j.n.Add(1)
	close(j.ran)
	return errors.New("reported only in logs")
}

func setupServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "grading")
	t.Cleanup(cleanup)

	log := zerolog.Nop()
	bus := events.NewBus(log)
	s := New(Config{
		Log:            log,
		DB:             db,
		EventBus:       bus,
		Port:           0,
		Runs:           fixedRuns("run-7"),
		CircuitHandler: circuithandlers.NewHandler(circuit.StrategyCell, log),
	})
	return s, bus
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s, _ := setupServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "qpixel", body["service"])
}

func TestSystemStatus(t *testing.T) {
	s, _ := setupServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/system/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "run-7", body["active_run"])
	assert.Contains(t, body, "cpu_percent")
	assert.Contains(t, body, "ram_percent")
	assert.GreaterOrEqual(t, body["uptime_seconds"].(float64), 0.0)
}

func TestDatabaseStats(t *testing.T) {
	s, _ := setupServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/system/database/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "grading", body["name"])
	assert.Equal(t, true, body["healthy"])
	assert.Greater(t, body["page_size"].(float64), 0.0)
}

func TestTriggerJob(t *testing.T) {
	s, _ := setupServer(t)
	job := &signalJob{ran: make(chan struct{})}
	s.SetJobs(job, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/system/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/system/jobs/signal", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not run")
	}
	assert.Equal(t, int32(1), job.n.Load())
}

func TestModuleRoutesMounted(t *testing.T) {
	s, _ := setupServer(t)

	body, err := json.Marshal(map[string]interface{}{"image": [][]float64{{0, 255}, {255, 0}}})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/circuits/encode", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)

	// handlers not configured are not mounted
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/decode", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventsStream(t *testing.T) {
	s, bus := setupServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events/stream?types=GRADING_STARTED")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() map[string]interface{} {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if payload, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var event map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(payload), &event))
				return event
			}
		}
	}

	assert.Equal(t, "connected", readEvent()["type"])
	assert.Equal(t, 1, bus.Subscribers(events.GradingStarted))
	assert.Equal(t, 0, bus.Subscribers(events.ItemGraded))

	events.NewManager(bus, zerolog.Nop()).Emit("grading", &events.GradingStartedData{RunID: "run-1", Items: 3})

	event := readEvent()
	assert.Equal(t, "GRADING_STARTED", event["type"])
	assert.Equal(t, "run-1", event["data"].(map[string]interface{})["run_id"])
}
