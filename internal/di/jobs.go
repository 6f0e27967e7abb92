package di

import (
	"github.com/aristath/qpixel/internal/modules/grading"
	"github.com/aristath/qpixel/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the background jobs. Scheduling them is left to the
// caller so the same instances can be triggered manually.
func RegisterJobs(container *Container, log zerolog.Logger) *JobInstances {
	gradeJob := grading.NewGradeDatasetJob(container.GradingService, grading.DefaultJobTimeout)
	gradeJob.SetLogger(log.With().Str("job", "grade_dataset").Logger())

	walJob := scheduler.NewCheckWALCheckpointsJob(container.GradingDB)
	walJob.SetLogger(log.With().Str("job", "check_wal_checkpoints").Logger())

	return &JobInstances{
		GradeDataset:   gradeJob,
		WALCheckpoints: walJob,
	}
}
