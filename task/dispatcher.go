package task

import (
	"context"
	"errors"
	"sync"
)

// Dispatcher marshals callbacks onto the single UI-affine goroutine.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

// Post calls f(fn).
func (f DispatcherFunc) Post(fn func()) { f(fn) }

// ErrLoopStopped is returned by Invoke when the loop is no longer running.
var ErrLoopStopped = errors.New("dispatch loop stopped")

// Loop is a Dispatcher backed by one goroutine running Run.
type Loop struct {
	ch       chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop with the given queue depth.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		ch:   make(chan func(), buffer),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. Posts after Stop are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.ch <- fn:
	case <-l.done:
	}
}

// Invoke posts fn and waits for it to run.
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	l.Post(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted callbacks in order until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.ch:
			fn()
		}
	}
}

// Stop ends Run and drops pending callbacks.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Queue is a Dispatcher for hosts that pump callbacks from their own
// event loop: posts are buffered until Drain.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Post buffers fn and signals Ready.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after a Post.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of buffered callbacks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs buffered callbacks in order, including ones posted while
// draining, and returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return n
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()
		for _, fn := range batch {
			fn()
			n++
		}
	}
}
