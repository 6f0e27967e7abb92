// Package di wires the application's components together.
package di

import (
	"github.com/aristath/qpixel/internal/clients/objectstore"
	"github.com/aristath/qpixel/internal/clients/simulator"
	"github.com/aristath/qpixel/internal/database"
	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/events"
	"github.com/aristath/qpixel/internal/modules/circuit"
	"github.com/aristath/qpixel/internal/modules/decoding"
	"github.com/aristath/qpixel/internal/modules/grading"
	"github.com/aristath/qpixel/internal/scheduler"
)

// Container holds all dependencies for the application. It is created by
// Wire and is the single source of truth for service instances.
type Container struct {
	// Storage
	GradingDB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Clients
	Simulator   *simulator.Simulator
	ObjectStore *objectstore.Client // nil unless S3 is configured

	// Pipeline
	Builder *circuit.Builder
	Decoder *decoding.Decoder
	Grader  *grading.Grader
	Source  domain.ImageSource

	// Grading runs
	RunRepository  *grading.Repository
	GradingService *grading.Service
}

// JobInstances holds the scheduled jobs
type JobInstances struct {
	GradeDataset   *grading.GradeDatasetJob
	WALCheckpoints *scheduler.CheckWALCheckpointsJob
}

// All returns every job, for manual triggering
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.GradeDataset, j.WALCheckpoints}
}

// Close stops in-flight runs and closes the database
func (c *Container) Close() error {
	if c.GradingService != nil {
		c.GradingService.Shutdown()
	}
	if c.GradingDB != nil {
		return c.GradingDB.Close()
	}
	return nil
}
