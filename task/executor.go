package task

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the executor size used when none is configured.
const DefaultWorkers = 4

// ErrExecutorClosed is returned by Submit after Close.
var ErrExecutorClosed = errors.New("executor closed")

// Executor is a bounded worker pool shared by all tasks.
type Executor struct {
	sem *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewExecutor creates an executor with the given number of slots.
// Non-positive values use DefaultWorkers.
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Executor{sem: semaphore.NewWeighted(int64(workers))}
}

// Submit schedules fn without blocking the caller. fn runs once a slot
// is free; if ctx is cancelled first, fn still runs with the cancelled
// ctx so the owner observes exactly one completion. That call runs
// outside the pool, so cancelled work may briefly exceed the bound and
// must return promptly once ctx is done.
func (e *Executor) Submit(ctx context.Context, fn func(ctx context.Context)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		if err := e.sem.Acquire(ctx, 1); err != nil {
			fn(ctx)
			return
		}
		defer e.sem.Release(1)
		fn(ctx)
	}()
	return nil
}

// Close rejects further work and waits for in-flight work to return.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}
