// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/qpixel/internal/clients/simulator"
	"github.com/aristath/qpixel/internal/database"
	"github.com/aristath/qpixel/internal/modules/circuit"
	"github.com/aristath/qpixel/internal/modules/decoding"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// ScheduleParser accepts standard five-field cron specs, an optional leading
// seconds field and descriptors such as @hourly or @every 30m
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the grading database (always absolute)
	DBProfile string // standard, or cache for throwaway grading databases
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	ImageSide int
	Strategy  string // cell, predicate or uniform
	TieBreak  string // dominant, average or ratio
	Shots     int

	ExecutorMode string // exact or sampled
	ExecutorSeed uint64
	MaxQubits    int
	Workers      int // 0 resolves to the number of logical CPUs

	DatasetDir  string
	DatasetFile string
	S3          S3Config

	GradeSchedule string // cron spec, empty disables scheduled grading
}

// S3Config holds the remote dataset location and credentials
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a bucket is configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QPIXEL_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		DBProfile: getEnv("DB_PROFILE", string(database.ProfileStandard)),
		Port:      getEnvAsInt("PORT", 8080),
		DevMode:   getEnvAsBool("DEV_MODE", false),

		ImageSide: getEnvAsInt("IMAGE_SIDE", 28),
		Strategy:  getEnv("CIRCUIT_STRATEGY", string(circuit.StrategyCell)),
		TieBreak:  getEnv("DECODE_TIE_BREAK", string(decoding.TieBreakDominant)),
		Shots:     getEnvAsInt("SHOTS", 16384),

		ExecutorMode: getEnv("EXECUTOR_MODE", string(simulator.ModeSampled)),
		ExecutorSeed: uint64(getEnvAsInt("EXECUTOR_SEED", 1)),
		MaxQubits:    getEnvAsInt("SIMULATOR_MAX_QUBITS", simulator.DefaultMaxQubits),
		Workers:      getEnvAsInt("GRADER_WORKERS", 0),

		DatasetDir:  getEnv("DATASET_DIR", ""),
		DatasetFile: getEnv("DATASET_FILE", ""),
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", ""),
			Region:          getEnv("S3_REGION", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},

		GradeSchedule: getEnv("GRADE_SCHEDULE", ""),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Port))
	}
	if c.ImageSide < 1 {
		errs = append(errs, fmt.Errorf("IMAGE_SIDE must be positive, got %d", c.ImageSide))
	}
	if c.Shots <= 0 {
		errs = append(errs, fmt.Errorf("SHOTS must be positive, got %d", c.Shots))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("GRADER_WORKERS must not be negative, got %d", c.Workers))
	}
	if c.MaxQubits < 1 {
		errs = append(errs, fmt.Errorf("SIMULATOR_MAX_QUBITS must be positive, got %d", c.MaxQubits))
	}
	if _, err := circuit.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("CIRCUIT_STRATEGY: %w", err))
	}
	if _, err := decoding.ParseTieBreak(c.TieBreak); err != nil {
		errs = append(errs, fmt.Errorf("DECODE_TIE_BREAK: %w", err))
	}
	if _, err := database.ParseProfile(c.DBProfile); err != nil {
		errs = append(errs, fmt.Errorf("DB_PROFILE: %w", err))
	}
	if _, err := simulator.ParseMode(c.ExecutorMode); err != nil {
		errs = append(errs, fmt.Errorf("EXECUTOR_MODE: %w", err))
	}
	if c.S3.AccessKeyID != "" && c.S3.SecretAccessKey == "" {
		errs = append(errs, errors.New("S3_SECRET_ACCESS_KEY is required with S3_ACCESS_KEY_ID"))
	}
	if c.GradeSchedule != "" {
		if _, err := ScheduleParser.Parse(c.GradeSchedule); err != nil {
			errs = append(errs, fmt.Errorf("GRADE_SCHEDULE: %w", err))
		}
	}

	return errors.Join(errs...)
}

// HasDataset reports whether any dataset source is configured
func (c *Config) HasDataset() bool {
	return c.DatasetFile != "" || c.DatasetDir != "" || c.S3.Enabled()
}

// DatabasePath is the location of the grading database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "grading.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
