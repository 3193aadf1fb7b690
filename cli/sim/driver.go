package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/embedpay/checkout"
	"github.com/pithecene-io/embedpay/host"
)

// ErrFinished is returned by Apply once the session has completed.
var ErrFinished = errors.New("session already finished")

// ErrNotOpened is returned by Apply and Ready before Open succeeded.
var ErrNotOpened = errors.New("session not opened")

// Invoker runs fn on the dispatcher goroutine and waits for it.
// task.Loop implements it.
type Invoker interface {
	Invoke(ctx context.Context, fn func()) error
}

// StepResult records how the session reacted to one step.
type StepResult struct {
	Step     string `json:"step" yaml:"step"`
	Decision string `json:"decision" yaml:"decision"`
	State    string `json:"state" yaml:"state"`
}

// Driver feeds scripted surface events to one session. Every session call
// goes through the Invoker so the session only ever runs on its dispatcher.
type Driver struct {
	invoker Invoker
	surface *Surface

	done     chan struct{}
	doneOnce sync.Once

	mu         sync.Mutex
	session    *checkout.Session
	completion *checkout.Completion
	steps      []StepResult
}

// NewDriver creates a driver with a fresh recording surface.
func NewDriver(invoker Invoker) *Driver {
	return &Driver{
		invoker: invoker,
		surface: NewSurface(),
		done:    make(chan struct{}),
	}
}

// Surface returns the surface sessions opened by Open present on.
func (d *Driver) Surface() *Surface { return d.surface }

// Observe records a completion. Register it as an SDK completion observer.
func (d *Driver) Observe(c checkout.Completion) {
	d.mu.Lock()
	if d.session != nil && d.session.ID() != c.SessionID {
		d.mu.Unlock()
		return
	}
	d.completion = &c
	d.mu.Unlock()
	d.doneOnce.Do(func() { close(d.done) })
}

// Open builds the session on the dispatcher. open receives the driver's
// surface.
func (d *Driver) Open(ctx context.Context, open func(host.Surface) (*checkout.Session, error)) error {
	var (
		session *checkout.Session
		openErr error
	)
	if err := d.invoker.Invoke(ctx, func() {
		session, openErr = open(d.surface)
	}); err != nil {
		return err
	}
	if openErr != nil {
		return openErr
	}
	d.mu.Lock()
	d.session = session
	d.mu.Unlock()
	return nil
}

// Ready waits until the flow is on screen or the session finished without
// presenting it.
func (d *Driver) Ready(ctx context.Context) error {
	if d.current() == nil {
		return ErrNotOpened
	}
	select {
	case <-d.surface.Loaded():
		return nil
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for flow to load: %w", ctx.Err())
	}
}

// Apply delivers step to the session and records the result.
func (d *Driver) Apply(ctx context.Context, step Step) (StepResult, error) {
	session := d.current()
	if session == nil {
		return StepResult{}, ErrNotOpened
	}
	if d.Finished() {
		return StepResult{}, ErrFinished
	}

	res := StepResult{Step: step.String(), Decision: "-"}
	err := d.invoker.Invoke(ctx, func() {
		switch step.Action {
		case ActionNavigate:
			res.Decision = session.OnNavigation(step.URL).String()
		case ActionTransportError:
			session.OnTransportError(&host.LoadError{URL: d.surface.URL(), Err: errors.New(step.Message)})
		case ActionDismiss:
			session.OnDismiss()
		}
		res.State = string(session.State())
	})
	if err != nil {
		return StepResult{}, err
	}

	d.mu.Lock()
	d.steps = append(d.steps, res)
	d.mu.Unlock()
	return res, nil
}

// Run waits for the flow, applies steps until the session finishes and
// then waits for its completion.
func (d *Driver) Run(ctx context.Context, steps []Step) error {
	if err := d.Ready(ctx); err != nil {
		return err
	}
	for _, step := range steps {
		if _, err := d.Apply(ctx, step); err != nil {
			if errors.Is(err, ErrFinished) {
				break
			}
			return err
		}
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session did not finish: %w", ctx.Err())
	}
}

// Done is closed when the session completes.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Finished reports whether the session completed.
func (d *Driver) Finished() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Completion returns the session's completion once it finished.
func (d *Driver) Completion() (checkout.Completion, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.completion == nil {
		return checkout.Completion{}, false
	}
	return *d.completion, true
}

// Steps returns the applied steps in order.
func (d *Driver) Steps() []StepResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]StepResult(nil), d.steps...)
}

// SessionID returns the id of the opened session, or "".
func (d *Driver) SessionID() string {
	if s := d.current(); s != nil {
		return s.ID()
	}
	return ""
}

func (d *Driver) current() *checkout.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}
