package workers

import (
	"context"
	"fmt"
	"sync"
)

// ProgressCallback reports completed items out of total
type ProgressCallback func(current, total int, message string)

// Job processes the item at index. Implementations store their own result,
// usually into a pre-sized slice slot, so results keep input order.
type Job func(ctx context.Context, index int) error

// WorkerPool manages a pool of worker goroutines for parallel item grading
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 10 // Default to 10 workers
	}
	return &WorkerPool{
		numWorkers: numWorkers,
	}
}

// Workers returns the configured pool size
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// ProcessBatch runs job for every index in [0, total).
//
// The first job error cancels the context handed to the remaining jobs, the
// workers drain, and that error is returned. Progress is reported serially
// after each successful job.
func (wp *WorkerPool) ProcessBatch(
	ctx context.Context,
	total int,
	job Job,
	progress ProgressCallback,
) error {
	if total == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, total)
	for idx := 0; idx < total; idx++ {
		jobs <- idx
	}
	close(jobs)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		completed int
	)

	numActualWorkers := min(wp.numWorkers, total) // Don't spawn more workers than items
	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}

				if err := job(ctx, idx); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					return
				}

				mu.Lock()
				completed++
				if progress != nil {
					progress(completed, total, fmt.Sprintf("Graded item %d", idx))
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
