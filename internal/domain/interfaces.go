package domain

import (
	"context"
	"errors"
)

// ErrNoDataset is returned by sources that have nothing configured to load
var ErrNoDataset = errors.New("no dataset configured")

// Executor runs a gate sequence and reports outcome counts.
// Implementations may queue, sample or call remote hardware; callers treat
// them as a blocking black box that can fail.
type Executor interface {
	// Execute runs seq for the given number of shots and returns the
	// histogram of measured bitstrings (qubit Q-1 leftmost)
	Execute(ctx context.Context, seq GateSequence, shots int) (Histogram, error)
}

// ImageSource yields dataset samples normalized to [0, 255]
type ImageSource interface {
	// Name identifies the source in logs and persisted runs
	Name() string

	// Load returns every sample of the dataset
	Load(ctx context.Context) ([]Sample, error)
}
