// Package grading runs the encode, execute and decode pipeline over a dataset
// and scores reconstruction fidelity against two-qubit gate cost.
package grading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/modules/grading/workers"
	"github.com/aristath/qpixel/pkg/formulas"
	"github.com/rs/zerolog"
)

// GateCostBase is the per-gate discount applied to fidelity
const GateCostBase = 0.999

// DefaultShots is used when no shot count is configured
const DefaultShots = 16384

// ErrNoSamples is returned when grading an empty dataset
var ErrNoSamples = errors.New("no samples to grade")

// Stage names the pipeline step an item failed in
type Stage string

const (
	StageBuild   Stage = "build"
	StageExecute Stage = "execute"
	StageDecode  Stage = "decode"
)

// ItemError identifies the dataset item that failed a run
type ItemError struct {
	Index int
	ID    string
	Stage Stage
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s) failed to %s: %v", e.Index, e.ID, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Encoder turns an image into a gate sequence and its qubit count
type Encoder interface {
	Encode(img domain.Image) (domain.GateSequence, int, error)
}

// Decoder turns a histogram back into a side x side image
type Decoder interface {
	Decode(hist domain.Histogram, qubits, side int) (domain.Image, error)
}

// ScoreRecord is the outcome of one dataset item
type ScoreRecord struct {
	Index          int                 `json:"index"`
	ID             string              `json:"id"`
	MSE            float64             `json:"mse"`
	TwoQubitGates  int                 `json:"two_qubit_gates"`
	Operations     int                 `json:"operations"`
	Qubits         int                 `json:"qubits"`
	Reconstruction domain.Image        `json:"reconstruction,omitempty"`
	Sequence       domain.GateSequence `json:"-"`
}

// Report aggregates every item of a run
type Report struct {
	Items                int           `json:"items"`
	MeanMSE              float64       `json:"mean_mse"`
	MSEStdDev            float64       `json:"mse_std_dev"`
	Fidelity             float64       `json:"fidelity"`
	AverageTwoQubitGates float64       `json:"average_two_qubit_gates"`
	Score                float64       `json:"score"`
	Shots                int           `json:"shots"`
	Duration             time.Duration `json:"duration"`
	Records              []ScoreRecord `json:"records"`
}

// Hooks observe a run while it is in flight. OnItem may be called from
// several goroutines at once.
type Hooks struct {
	Progress workers.ProgressCallback
	OnItem   func(ScoreRecord)
}

// Config holds grader settings
type Config struct {
	Shots   int
	Workers int
}

// Grader scores datasets
type Grader struct {
	encoder Encoder
	decoder Decoder
	shots   int
	pool    *workers.WorkerPool
	log     zerolog.Logger
}

// NewGrader creates a grader
func NewGrader(encoder Encoder, decoder Decoder, cfg Config, log zerolog.Logger) *Grader {
	shots := cfg.Shots
	if shots <= 0 {
		shots = DefaultShots
	}
	return &Grader{
		encoder: encoder,
		decoder: decoder,
		shots:   shots,
		pool:    workers.NewWorkerPool(cfg.Workers),
		log:     log.With().Str("component", "grader").Logger(),
	}
}

// Shots returns the shot count requested per item
func (g *Grader) Shots() int {
	return g.shots
}

// Grade runs every sample through the pipeline and aggregates the scores
func (g *Grader) Grade(ctx context.Context, samples []domain.Sample, executor domain.Executor) (*Report, error) {
	return g.GradeWithHooks(ctx, samples, executor, Hooks{})
}

// GradeWithHooks is Grade with progress and per-item observers
func (g *Grader) GradeWithHooks(
	ctx context.Context,
	samples []domain.Sample,
	executor domain.Executor,
	hooks Hooks,
) (*Report, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	start := time.Now()
	g.log.Info().
		Int("items", len(samples)).
		Int("shots", g.shots).
		Int("workers", g.pool.Workers()).
		Msg("Starting grading run")

	records := make([]ScoreRecord, len(samples))
	err := g.pool.ProcessBatch(ctx, len(samples), func(ctx context.Context, idx int) error {
		record, err := g.gradeItem(ctx, idx, samples[idx], executor)
		if err != nil {
			return err
		}
		records[idx] = record
		if hooks.OnItem != nil {
			hooks.OnItem(record)
		}
		return nil
	}, hooks.Progress)
	if err != nil {
		g.log.Error().Err(err).Msg("Grading run failed")
		return nil, err
	}

	report := Aggregate(records)
	report.Shots = g.shots
	report.Duration = time.Since(start)

	g.log.Info().
		Int("items", report.Items).
		Float64("fidelity", report.Fidelity).
		Float64("avg_two_qubit_gates", report.AverageTwoQubitGates).
		Float64("score", report.Score).
		Dur("duration", report.Duration).
		Msg("Grading run completed")

	return report, nil
}

func (g *Grader) gradeItem(ctx context.Context, idx int, sample domain.Sample, executor domain.Executor) (ScoreRecord, error) {
	fail := func(stage Stage, err error) (ScoreRecord, error) {
		return ScoreRecord{}, &ItemError{Index: idx, ID: sample.ID, Stage: stage, Err: err}
	}

	seq, qubits, err := g.encoder.Encode(sample.Image)
	if err != nil {
		return fail(StageBuild, err)
	}

	hist, err := executor.Execute(ctx, seq, g.shots)
	if err != nil {
		return fail(StageExecute, err)
	}
	if hist.Total() <= 0 {
		return fail(StageExecute, domain.ErrEmptyHistogram)
	}

	recon, err := g.decoder.Decode(hist, qubits, sample.Image.Side())
	if err != nil {
		return fail(StageDecode, err)
	}

	return ScoreRecord{
		Index:          idx,
		ID:             sample.ID,
		MSE:            NormalizedMSE(sample.Image, recon),
		TwoQubitGates:  seq.TwoQubitGates(),
		Operations:     seq.Operations(),
		Qubits:         qubits,
		Reconstruction: recon,
		Sequence:       seq,
	}, nil
}

// NormalizedMSE compares two images after scaling intensities to [0, 1]
func NormalizedMSE(original, reconstructed domain.Image) float64 {
	scale := 1 / domain.MaxIntensity
	return formulas.MeanSquaredError(
		formulas.Scaled(original.Flatten(), scale),
		formulas.Scaled(reconstructed.Flatten(), scale),
	)
}

// Aggregate folds item records into a report:
// fidelity = 1 - mean MSE, score = fidelity * 0.999^(mean two-qubit gates)
func Aggregate(records []ScoreRecord) *Report {
	mses := make([]float64, len(records))
	gates := make([]float64, len(records))
	for i, r := range records {
		mses[i] = r.MSE
		gates[i] = float64(r.TwoQubitGates)
	}

	meanMSE := formulas.Mean(mses)
	avgGates := formulas.Mean(gates)
	fidelity := 1 - meanMSE

	return &Report{
		Items:                len(records),
		MeanMSE:              meanMSE,
		MSEStdDev:            formulas.StdDev(mses),
		Fidelity:             fidelity,
		AverageTwoQubitGates: avgGates,
		Score:                fidelity * formulas.CostDiscount(GateCostBase, avgGates),
		Records:              records,
	}
}
