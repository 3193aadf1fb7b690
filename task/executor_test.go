package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_BoundsConcurrency(t *testing.T) {
	exec := NewExecutor(2)
	release := make(chan struct{})
	var running, peak, starts atomic.Int32
	var started sync.WaitGroup
	started.Add(2)

	for range 5 {
		err := exec.Submit(t.Context(), func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if starts.Add(1) <= 2 {
				started.Done()
			}
			<-release
			running.Add(-1)
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	started.Wait()
	// Give queued work a chance to exceed the bound if it could.
	time.Sleep(50 * time.Millisecond)
	if got := running.Load(); got != 2 {
		t.Errorf("running = %d, want 2 while the pool is full", got)
	}

	close(release)
	exec.Close()
	if got := peak.Load(); got != 2 {
		t.Errorf("peak concurrency = %d, want 2", got)
	}
	if got := running.Load(); got != 0 {
		t.Errorf("running after Close = %d, want 0", got)
	}
}

func TestExecutor_DefaultWorkers(t *testing.T) {
	exec := NewExecutor(0)
	t.Cleanup(exec.Close)
	if !exec.sem.TryAcquire(DefaultWorkers) {
		t.Fatalf("expected %d free slots", DefaultWorkers)
	}
	if exec.sem.TryAcquire(1) {
		t.Errorf("more than %d slots available", DefaultWorkers)
	}
	exec.sem.Release(DefaultWorkers)
}

func TestExecutor_CancelledWhileQueuedStillCompletes(t *testing.T) {
	exec := NewExecutor(1)
	release := make(chan struct{})
	holding := make(chan struct{})
	if err := exec.Submit(t.Context(), func(context.Context) {
		close(holding)
		<-release
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-holding

	ctx, cancel := context.WithCancel(t.Context())
	got := make(chan error, 1)
	if err := exec.Submit(ctx, func(ctx context.Context) { got <- ctx.Err() }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()

	select {
	case err := <-got:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ctx.Err() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled work did not run while the pool was full")
	}

	close(release)
	exec.Close()
}

func TestExecutor_SubmitAfterClose(t *testing.T) {
	exec := NewExecutor(1)
	exec.Close()
	if err := exec.Submit(t.Context(), func(context.Context) {}); !errors.Is(err, ErrExecutorClosed) {
		t.Errorf("Submit after Close = %v, want ErrExecutorClosed", err)
	}
}
