package di

import (
	"fmt"

	"github.com/aristath/qpixel/internal/config"
	"github.com/aristath/qpixel/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the grading database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	profile, err := database.ParseProfile(cfg.DBProfile)
	if err != nil {
		return nil, err
	}

	gradingDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: profile,
		Name:    "grading",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize grading database: %w", err)
	}

	if err := gradingDB.Migrate(); err != nil {
		gradingDB.Close()
		return nil, fmt.Errorf("failed to migrate grading database: %w", err)
	}
	container.GradingDB = gradingDB

	log.Info().
		Str("path", gradingDB.Path()).
		Str("profile", string(profile)).
		Msg("Grading database initialized")

	return container, nil
}
