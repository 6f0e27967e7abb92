// Package main is the entry point for the qpixel grading server. It exposes
// the encode, decode and grading pipeline over HTTP, streams run events and
// optionally grades the configured dataset on a cron schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/qpixel/internal/config"
	"github.com/aristath/qpixel/internal/di"
	circuithandlers "github.com/aristath/qpixel/internal/modules/circuit/handlers"
	decodinghandlers "github.com/aristath/qpixel/internal/modules/decoding/handlers"
	gradinghandlers "github.com/aristath/qpixel/internal/modules/grading/handlers"
	"github.com/aristath/qpixel/internal/scheduler"
	"github.com/aristath/qpixel/internal/server"
	"github.com/aristath/qpixel/pkg/logger"
)

// walCheckpointSchedule runs the WAL check every 30 minutes
const walCheckpointSchedule = "0 */30 * * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", server.Version).Msg("Starting qpixel")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:             log,
		DB:              container.GradingDB,
		EventBus:        container.EventBus,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		Runs:            container.GradingService,
		CircuitHandler:  circuithandlers.NewHandler(container.Builder.Strategy(), log),
		DecodingHandler: decodinghandlers.NewHandler(container.Decoder.TieBreak(), log),
		GradingHandler:  gradinghandlers.NewHandler(container.GradingService, container.EventBus, log),
	})
	srv.SetJobs(jobs.All()...)

	sched := scheduler.New(log)
	if err := sched.AddJob(walCheckpointSchedule, jobs.WALCheckpoints); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule WAL checkpoints")
	}
	if cfg.GradeSchedule != "" {
		if !cfg.HasDataset() {
			log.Warn().Msg("GRADE_SCHEDULE is set but no dataset is configured")
		}
		if err := sched.AddJob(cfg.GradeSchedule, jobs.GradeDataset); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule dataset grading")
		}
	}
	sched.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// cancels any background run and waits for it to be recorded
	container.GradingService.Shutdown()

	log.Info().Msg("Server stopped")
}
