package grading

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultJobTimeout bounds one scheduled grading run
const DefaultJobTimeout = 2 * time.Hour

// GradeDatasetJob re-grades the configured dataset on a schedule
type GradeDatasetJob struct {
	service *Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewGradeDatasetJob creates a new GradeDatasetJob
func NewGradeDatasetJob(service *Service, timeout time.Duration) *GradeDatasetJob {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &GradeDatasetJob{
		service: service,
		timeout: timeout,
		log:     zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *GradeDatasetJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *GradeDatasetJob) Name() string {
	return "grade_dataset"
}

// Run grades the dataset once. A run already in flight is not an error.
func (j *GradeDatasetJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	run, _, err := j.service.RunSync(ctx)
	if errors.Is(err, ErrRunInProgress) {
		j.log.Info().Str("active_run", j.service.Active()).Msg("Skipping scheduled grading, run in progress")
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Info().
		Str("run_id", run.ID).
		Float64("score", run.Score).
		Msg("Scheduled grading completed")
	return nil
}
