package di

import (
	"context"
	"fmt"
	"runtime"

	"github.com/aristath/qpixel/internal/clients/objectstore"
	"github.com/aristath/qpixel/internal/clients/simulator"
	"github.com/aristath/qpixel/internal/config"
	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/events"
	"github.com/aristath/qpixel/internal/modules/circuit"
	"github.com/aristath/qpixel/internal/modules/datasets"
	"github.com/aristath/qpixel/internal/modules/decoding"
	"github.com/aristath/qpixel/internal/modules/grading"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
)

// InitializeServices builds the encode/execute/decode pipeline and the
// grading service on top of an initialized container
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	sim, err := simulator.New(simulator.Config{
		Mode:      simulator.Mode(cfg.ExecutorMode),
		Seed:      cfg.ExecutorSeed,
		MaxQubits: cfg.MaxQubits,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}
	container.Simulator = sim

	strategy, err := circuit.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	builder, err := circuit.NewBuilder(cfg.ImageSide, strategy, log)
	if err != nil {
		return fmt.Errorf("failed to create circuit builder: %w", err)
	}
	container.Builder = builder

	tieBreak, err := decoding.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return err
	}
	decoder, err := decoding.NewDecoder(tieBreak)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	container.Decoder = decoder

	container.Grader = grading.NewGrader(builder, decoder, grading.Config{
		Shots:   cfg.Shots,
		Workers: resolveWorkers(cfg.Workers, log),
	}, log)

	source, store, err := newSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	container.Source = source
	container.ObjectStore = store

	container.RunRepository = grading.NewRepository(container.GradingDB.Conn(), log)
	container.GradingService = grading.NewService(
		container.Grader,
		container.Simulator,
		container.Source,
		container.RunRepository,
		container.EventManager,
		grading.ServiceConfig{
			Strategy: string(strategy),
			TieBreak: string(tieBreak),
		},
		log,
	)

	log.Info().
		Str("strategy", string(strategy)).
		Str("tie_break", string(tieBreak)).
		Str("executor", cfg.ExecutorMode).
		Str("source", source.Name()).
		Int("side", cfg.ImageSide).
		Msg("Grading pipeline initialized")

	return nil
}

// newSource picks the dataset source: a msgpack file wins over a directory,
// which wins over a bucket. Without any, runs fail with domain.ErrNoDataset.
func newSource(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.ImageSource, *objectstore.Client, error) {
	switch {
	case cfg.DatasetFile != "":
		return datasets.NewFileSource(cfg.DatasetFile, cfg.ImageSide, log), nil, nil
	case cfg.DatasetDir != "":
		return datasets.NewDirSource(cfg.DatasetDir, cfg.ImageSide, log), nil, nil
	case cfg.S3.Enabled():
		store, err := NewObjectStore(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return datasets.NewS3Source(store, cfg.S3.Prefix, cfg.ImageSide, log), store, nil
	default:
		log.Warn().Msg("No dataset configured, grading runs will fail until one is set")
		return datasets.NoSource{}, nil, nil
	}
}

// NewObjectStore creates the object store client for the configured bucket
func NewObjectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*objectstore.Client, error) {
	store, err := objectstore.New(ctx, objectstore.Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return store, nil
}

// resolveWorkers maps a zero worker setting to the logical CPU count
func resolveWorkers(configured int, log zerolog.Logger) int {
	if configured > 0 {
		return configured
	}
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		log.Debug().Err(err).Msg("Falling back to runtime CPU count")
		return runtime.NumCPU()
	}
	return count
}
