// Package task provides the cancellable unit of background work every
// asynchronous operation is built on.
//
// A Task runs its work on a bounded Executor and marshals the result back
// through a Dispatcher, so owners only ever observe completions on their
// own goroutine. Per the task contract:
//   - Create is a no-op while running (single-flight)
//   - Cancel always invokes OnCancelled, running or not
//   - A completion that arrives after Cancel, or after a newer Create, is dropped
package task

import (
	"context"
	"sync"

	"github.com/pithecene-io/embedpay/log"
)

// State is the lifecycle state of a Task.
type State string

const (
	// StateIdle means the task has never been created.
	StateIdle State = "idle"
	// StateRunning means work is in flight.
	StateRunning State = "running"
	// StateCancelled means the last run was cancelled by the owner.
	StateCancelled State = "cancelled"
	// StateCompleted means the last run delivered a result.
	StateCompleted State = "completed"
)

// Cancellable is the contract shared by every background unit of work.
type Cancellable interface {
	// Create starts the work unless it is already running. It never blocks.
	Create()
	// Cancel requests cooperative cancellation and releases owner resources.
	// It is synchronous, non-blocking and safe in any state.
	Cancel()
}

// Job describes the work a Task performs and the callbacks it reports to.
// Callbacks run on the Dispatcher.
type Job[T any] struct {
	// Name identifies the task in logs.
	Name string
	// Work performs the fetch. It must honour ctx cancellation.
	Work func(ctx context.Context) (T, error)
	// OnSuccess receives the result of a run that was not cancelled.
	OnSuccess func(T)
	// OnFailure receives the error of a run that was not cancelled.
	OnFailure func(error)
	// OnCancelled is called on every Cancel.
	OnCancelled func()
	// Logger is optional.
	Logger *log.Logger
}

// Task is a single-flight, cancellable unit of work.
type Task[T any] struct {
	job    Job[T]
	exec   *Executor
	disp   Dispatcher
	logger *log.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

var _ Cancellable = (*Task[struct{}])(nil)

// New creates an idle task.
func New[T any](exec *Executor, disp Dispatcher, job Job[T]) *Task[T] {
	logger := job.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Task[T]{
		job:    job,
		exec:   exec,
		disp:   disp,
		logger: logger.With(map[string]any{"task": job.Name}),
		state:  StateIdle,
	}
}

// State returns the current state.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Create starts the work if the task is not already running.
func (t *Task[T]) Create() {
	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		t.logger.Debug("create ignored, already running", nil)
		return
	}
	t.gen++
	gen := t.gen
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.state = StateRunning
	t.mu.Unlock()

	t.logger.Debug("task created", map[string]any{"generation": gen})

	err := t.exec.Submit(ctx, func(ctx context.Context) {
		v, err := t.job.Work(ctx)
		t.disp.Post(func() { t.complete(gen, v, err) })
	})
	if err != nil {
		var zero T
		t.disp.Post(func() { t.complete(gen, zero, err) })
	}
}

// Cancel cancels in-flight work, if any, then calls OnCancelled.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	if t.state == StateRunning {
		t.cancel()
		t.cancel = nil
		t.state = StateCancelled
		t.logger.Debug("task cancelled", map[string]any{"generation": t.gen})
	}
	t.mu.Unlock()

	if t.job.OnCancelled != nil {
		t.job.OnCancelled()
	}
}

// complete runs on the dispatcher. Stale or cancelled runs are dropped.
func (t *Task[T]) complete(gen uint64, v T, err error) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateRunning {
		t.mu.Unlock()
		t.logger.Debug("dropping completion of cancelled run", map[string]any{"generation": gen})
		return
	}
	t.cancel()
	t.cancel = nil
	t.state = StateCompleted
	t.mu.Unlock()

	if err != nil {
		if t.job.OnFailure != nil {
			t.job.OnFailure(err)
		}
		return
	}
	if t.job.OnSuccess != nil {
		t.job.OnSuccess(v)
	}
}
