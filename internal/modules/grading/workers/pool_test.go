package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		name            string
		numWorkers      int
		expectedWorkers int
	}{
		{"positive workers", 5, 5},
		{"zero workers defaults to 10", 0, 10},
		{"negative workers defaults to 10", -1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.numWorkers)
			assert.Equal(t, tt.expectedWorkers, pool.Workers())
		})
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	pool := NewWorkerPool(2)
	err := pool.ProcessBatch(context.Background(), 0, func(context.Context, int) error {
		t.Fatal("job should not run")
		return nil
	}, nil)
	assert.NoError(t, err)
}

func TestProcessBatch_KeepsOrderAndReportsProgress(t *testing.T) {
	pool := NewWorkerPool(3)
	results := make([]int, 20)

	var progressCalls []int
	err := pool.ProcessBatch(context.Background(), len(results), func(_ context.Context, idx int) error {
		results[idx] = idx * idx
		return nil
	}, func(current, total int, message string) {
		assert.Equal(t, 20, total)
		assert.NotEmpty(t, message)
		progressCalls = append(progressCalls, current)
	})
	require.NoError(t, err)

	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
	require.Len(t, progressCalls, 20)
	for i, c := range progressCalls {
		assert.Equal(t, i+1, c, "progress is reported serially")
	}
}

func TestProcessBatch_FirstErrorCancels(t *testing.T) {
	pool := NewWorkerPool(1)
	boom := errors.New("boom")

	var ran atomic.Int32
	err := pool.ProcessBatch(context.Background(), 10, func(_ context.Context, idx int) error {
		ran.Add(1)
		if idx == 2 {
			return boom
		}
		return nil
	}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), ran.Load(), "a single worker stops after the failing item")
}

func TestProcessBatch_JobsSeeCancellation(t *testing.T) {
	pool := NewWorkerPool(4)
	boom := errors.New("boom")

	err := pool.ProcessBatch(context.Background(), 4, func(ctx context.Context, idx int) error {
		if idx == 0 {
			return boom
		}
		<-ctx.Done()
		return ctx.Err()
	}, nil)

	assert.ErrorIs(t, err, boom)
}

func TestProcessBatch_ParentCancelled(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	err := pool.ProcessBatch(ctx, 5, func(context.Context, int) error {
		ran.Add(1)
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), ran.Load())
}
