package grading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("a grading run is already in progress")

// ErrServiceStopped is returned when a run is requested after Shutdown
var ErrServiceStopped = errors.New("grading service is shut down")

const eventModule = "grading"

// RunStore persists runs
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	CompleteRun(ctx context.Context, id string, report *Report) error
	FailRun(ctx context.Context, id string, message string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetItems(ctx context.Context, runID string) ([]ScoreRecord, error)
}

// ServiceConfig labels persisted runs
type ServiceConfig struct {
	Strategy string
	TieBreak string
}

// Service runs graded datasets end to end: it loads the dataset, assigns a
// run ID, grades, persists and emits events. One run is active at a time.
type Service struct {
	grader   *Grader
	executor domain.Executor
	source   domain.ImageSource
	store    RunStore
	events   *events.Manager
	cfg      ServiceConfig
	log      zerolog.Logger

	mu      sync.Mutex
	active  string
	cancel  context.CancelFunc
	stopped bool
	running sync.WaitGroup
}

// NewService creates a grading service
func NewService(
	grader *Grader,
	executor domain.Executor,
	source domain.ImageSource,
	store RunStore,
	eventManager *events.Manager,
	cfg ServiceConfig,
	log zerolog.Logger,
) *Service {
	return &Service{
		grader:   grader,
		executor: executor,
		source:   source,
		store:    store,
		events:   eventManager,
		cfg:      cfg,
		log:      log.With().Str("service", "grading").Logger(),
	}
}

// Active returns the ID of the run in flight, or ""
func (s *Service) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// StartRun loads the dataset, records a new run and grades it in the
// background. It returns the run ID once the run is recorded.
func (s *Service) StartRun(ctx context.Context) (string, error) {
	runID, runCtx, samples, err := s.begin(ctx, context.Background())
	if err != nil {
		return "", err
	}

	go func() {
		if _, err := s.grade(runCtx, runID, samples); err != nil {
			s.log.Warn().Err(err).Str("run_id", runID).Msg("Background grading run failed")
		}
	}()

	return runID, nil
}

// RunSync grades the dataset on the calling goroutine and returns the stored
// run together with the full report
func (s *Service) RunSync(ctx context.Context) (*Run, *Report, error) {
	runID, runCtx, samples, err := s.begin(ctx, ctx)
	if err != nil {
		return nil, nil, err
	}

	report, err := s.grade(runCtx, runID, samples)
	if err != nil {
		return nil, nil, err
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, report, err
	}
	return run, report, nil
}

// Wait blocks until in-flight runs have finished
func (s *Service) Wait() {
	s.running.Wait()
}

// Shutdown cancels the active run, waits for it and refuses new runs
func (s *Service) Shutdown() {
	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.Wait()
}

// GetRun returns a stored run with its item records
func (s *Service) GetRun(ctx context.Context, id string) (*Run, []ScoreRecord, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, items, nil
}

// ListRuns returns recent runs, newest first
func (s *Service) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.store.ListRuns(ctx, limit)
}

// begin claims the single run slot, loads the dataset and records the run.
// The returned context is derived from parent and is cancelled by Shutdown.
// On success the caller must hand the slot back through grade.
func (s *Service) begin(ctx, parent context.Context) (string, context.Context, []domain.Sample, error) {
	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return "", nil, nil, ErrServiceStopped
	}
	if s.active != "" {
		s.mu.Unlock()
		cancel()
		return "", nil, nil, ErrRunInProgress
	}
	s.active = runID
	s.cancel = cancel
	s.running.Add(1)
	s.mu.Unlock()

	samples, err := s.source.Load(ctx)
	if err != nil {
		s.release()
		return "", nil, nil, fmt.Errorf("failed to load dataset %s: %w", s.source.Name(), err)
	}
	if len(samples) == 0 {
		s.release()
		return "", nil, nil, ErrNoSamples
	}

	run := Run{
		ID:        runID,
		Source:    s.source.Name(),
		Strategy:  s.cfg.Strategy,
		TieBreak:  s.cfg.TieBreak,
		Shots:     s.grader.Shots(),
		Items:     len(samples),
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		s.release()
		return "", nil, nil, err
	}

	return runID, runCtx, samples, nil
}

// release frees the run slot claimed by begin
func (s *Service) release() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.active = ""
	s.cancel = nil
	s.mu.Unlock()
	s.running.Done()
}

func (s *Service) grade(ctx context.Context, runID string, samples []domain.Sample) (*Report, error) {
	defer s.release()

	s.events.Emit(eventModule, &events.GradingStartedData{
		RunID:    runID,
		Source:   s.source.Name(),
		Strategy: s.cfg.Strategy,
		Items:    len(samples),
		Shots:    s.grader.Shots(),
	})

	var completed atomic.Int64
	total := len(samples)
	report, err := s.grader.GradeWithHooks(ctx, samples, s.executor, Hooks{
		OnItem: func(r ScoreRecord) {
			s.events.Emit(eventModule, &events.ItemGradedData{
				RunID:         runID,
				Index:         r.Index,
				ItemID:        r.ID,
				MSE:           r.MSE,
				TwoQubitGates: r.TwoQubitGates,
				Completed:     int(completed.Add(1)),
				Total:         total,
			})
		},
	})
	if err != nil {
		s.fail(runID, err)
		return nil, err
	}

	// persistence outlives a cancelled request context
	if err := s.store.CompleteRun(context.Background(), runID, report); err != nil {
		s.fail(runID, err)
		return nil, fmt.Errorf("failed to store grading run %s: %w", runID, err)
	}

	s.events.Emit(eventModule, &events.GradingCompletedData{
		RunID:                runID,
		Fidelity:             report.Fidelity,
		MSEStdDev:            report.MSEStdDev,
		AverageTwoQubitGates: report.AverageTwoQubitGates,
		Score:                report.Score,
		DurationMs:           report.Duration.Milliseconds(),
	})

	s.log.Info().
		Str("run_id", runID).
		Float64("score", report.Score).
		Float64("mse_std_dev", report.MSEStdDev).
		Msg("Grading run stored")

	return report, nil
}

func (s *Service) fail(runID string, runErr error) {
	data := &events.GradingFailedData{RunID: runID, Error: runErr.Error()}
	var itemErr *ItemError
	if errors.As(runErr, &itemErr) {
		index := itemErr.Index
		data.ItemIndex = &index
		data.ItemID = itemErr.ID
		data.Stage = string(itemErr.Stage)
	}

	if err := s.store.FailRun(context.Background(), runID, runErr.Error()); err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to mark grading run failed")
	}
	s.events.Emit(eventModule, data)
}
