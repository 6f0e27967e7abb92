// Command grade runs one grading pass over a dataset and prints the report.
//
// Usage: grade [-file set.msgpack | -dir images/] [options]
//
// Settings not given as flags come from the same environment variables the
// server reads. The run is recorded in the grading database like any other.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/qpixel/internal/config"
	"github.com/aristath/qpixel/internal/di"
	"github.com/aristath/qpixel/internal/modules/grading"
	"github.com/aristath/qpixel/pkg/logger"
	"github.com/rs/zerolog"
)

// options are the command-line overrides
type options struct {
	File     string
	Dir      string
	Strategy string
	TieBreak string
	Mode     string
	Shots    int
	Side     int
	Workers  int
	Output   string
	Upload   string
	Verbose  bool
}

// result is the document written to the output
type result struct {
	Run    *grading.Run    `json:"run"`
	Report *grading.Report `json:"report"`
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("grade", flag.ContinueOnError)
	fs.StringVar(&opts.File, "file", "", "msgpack dataset file")
	fs.StringVar(&opts.Dir, "dir", "", "directory of images")
	fs.StringVar(&opts.Strategy, "strategy", "", "circuit strategy: cell, predicate or uniform")
	fs.StringVar(&opts.TieBreak, "tie-break", "", "decode tie-break: dominant, average or ratio")
	fs.StringVar(&opts.Mode, "mode", "", "executor mode: exact or sampled")
	fs.IntVar(&opts.Shots, "shots", 0, "shots per circuit")
	fs.IntVar(&opts.Side, "side", 0, "image side length")
	fs.IntVar(&opts.Workers, "j", 0, "number of parallel workers")
	fs.StringVar(&opts.Output, "o", "", "write the report to this file instead of stdout")
	fs.StringVar(&opts.Upload, "upload", "", "also upload the report to this key in S3_BUCKET")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// apply overrides cfg with every flag that was set
func (o options) apply(cfg *config.Config) error {
	if o.File != "" {
		cfg.DatasetFile = o.File
		cfg.DatasetDir = ""
	}
	if o.Dir != "" {
		cfg.DatasetDir = o.Dir
		cfg.DatasetFile = ""
	}
	if o.Strategy != "" {
		cfg.Strategy = o.Strategy
	}
	if o.TieBreak != "" {
		cfg.TieBreak = o.TieBreak
	}
	if o.Mode != "" {
		cfg.ExecutorMode = o.Mode
	}
	if o.Shots > 0 {
		cfg.Shots = o.Shots
	}
	if o.Side > 0 {
		cfg.ImageSide = o.Side
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer, log zerolog.Logger) error {
	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	gradingRun, report, err := container.GradingService.RunSync(ctx)
	if err != nil {
		return fmt.Errorf("grading failed: %w", err)
	}

	body, err := json.MarshalIndent(result{Run: gradingRun, Report: report}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, body, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else if _, err := out.Write(append(body, '\n')); err != nil {
		return err
	}

	if opts.Upload != "" {
		store := container.ObjectStore
		if store == nil {
			if store, err = di.NewObjectStore(ctx, cfg, log); err != nil {
				return err
			}
		}
		if err := store.Upload(ctx, opts.Upload, body, "application/json"); err != nil {
			return err
		}
		log.Info().Str("key", opts.Upload).Msg("Report uploaded")
	}

	log.Info().
		Str("run_id", gradingRun.ID).
		Int("items", report.Items).
		Float64("fidelity", report.Fidelity).
		Float64("score", report.Score).
		Msg("Grading completed")

	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err == nil {
		err = opts.apply(cfg)
	}

	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
		Output: os.Stderr,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout, log); err != nil {
		log.Error().Err(err).Msg("Grade command failed")
		stop()
		os.Exit(1)
	}
}
