// Package checkout drives one embedded financing flow from start to a
// single delivered result.
//
// A Session fetches the flow's entry URL, presents it on a host surface,
// feeds every navigation to a navigation.Detector and, on the first
// terminal signal, tears the surface down and delivers exactly one result
// envelope:
//
//	idle -> fetching -> presenting -> terminal
//
// Dismissal, transport errors and terminal navigations race; whichever the
// dispatcher runs first decides the outcome and the rest are ignored.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/embedpay/bridge"
	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/navigation"
	"github.com/pithecene-io/embedpay/task"
	"github.com/pithecene-io/embedpay/types"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StatePresenting State = "presenting"
	StateTerminal   State = "terminal"
)

// Creator registers a checkout with the remote service.
type Creator interface {
	CreateCheckout(ctx context.Context, order *types.Checkout, useVCN bool) (*types.CheckoutHandle, error)
}

// Completion describes a finished session. Observers receive it after the
// envelope has been delivered.
type Completion struct {
	SessionID string
	Flow      types.FlowKind
	Outcome   *types.SessionOutcome
	Envelope  *types.ResultEnvelope
	Duration  time.Duration
}

// Deps are the collaborators of a Session.
type Deps struct {
	Config     *config.Config
	Client     Creator
	Executor   *task.Executor
	Dispatcher task.Dispatcher
	Surface    host.Surface
	Sink       host.ResultSink
	Bridge     *bridge.Bridge
	Logger     *log.Logger
	Metrics    *metrics.Collector
	// Observers are called once per session, on the dispatcher goroutine.
	Observers []func(Completion)
}

// Session is a single-use embedded flow. All methods except construction
// run on the dispatcher goroutine.
type Session struct {
	id     string
	deps   Deps
	logger *log.Logger

	flow     types.FlowKind
	state    State
	detector *navigation.Detector
	fetch    *task.Task[*types.CheckoutHandle]
	// present loads a flow that needs no fetch.
	present func() error
	started time.Time
	outcome *types.SessionOutcome
}

var _ host.SurfaceListener = (*Session)(nil)

// New creates an idle checkout session.
func New(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		deps:   deps,
		logger: logger.With(map[string]any{"session_id": id}),
		state:  StateIdle,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Flow returns the flow kind, empty until started.
func (s *Session) Flow() types.FlowKind { return s.flow }

// Outcome returns the terminal outcome, or nil.
func (s *Session) Outcome() *types.SessionOutcome { return s.outcome }

// Start fetches a checkout for order and presents it. useVCN selects the
// card-issuing variant. Configuration errors are returned synchronously and
// leave the session untouched.
func (s *Session) Start(order *types.Checkout, useVCN bool) error {
	if s.present != nil {
		return fmt.Errorf("%w: %s session is opened with Open", types.ErrInvalidConfig, s.flow)
	}
	if s.state != StateIdle {
		return types.ErrSessionUsed
	}
	if order == nil {
		return types.ErrNilOrder
	}

	flow := types.FlowCheckout
	if useVCN {
		flow = types.FlowVcnCheckout
	}
	s.begin(flow)

	s.fetch = task.New(s.deps.Executor, s.deps.Dispatcher, task.Job[*types.CheckoutHandle]{
		Name: "checkout",
		Work: func(ctx context.Context) (*types.CheckoutHandle, error) {
			return s.deps.Client.CreateCheckout(ctx, order, useVCN)
		},
		OnSuccess: s.onCreated,
		OnFailure: s.onCreateFailed,
		Logger:    s.logger,
	})
	s.state = StateFetching
	s.fetch.Create()
	return nil
}

func (s *Session) begin(flow types.FlowKind) {
	s.flow = flow
	s.started = time.Now()
	s.logger = s.logger.With(map[string]any{"flow": string(flow)})
	receiveReasons := s.deps.Config != nil && s.deps.Config.ReceiveReasonCodes
	s.detector = navigation.New(navigation.Options{Flow: flow, ReceiveReasons: receiveReasons})
	s.deps.Metrics.IncSessionStarted()
	s.logger.Debug("session started", nil)
}

func (s *Session) onCreated(handle *types.CheckoutHandle) {
	if s.state != StateFetching {
		return
	}
	s.state = StatePresenting
	s.logger.Debug("presenting checkout", map[string]any{"checkout_id": handle.CheckoutID})
	s.deps.Surface.LoadURL(handle.RedirectURL)
	s.deps.Surface.SetVisible(true)
}

func (s *Session) onCreateFailed(err error) {
	if s.state != StateFetching {
		return
	}
	s.logger.Error("checkout creation failed", map[string]any{"error": err.Error()})
	s.finish(types.FailedFromError(err))
}

// OnNavigation classifies url before the surface loads it.
func (s *Session) OnNavigation(url string) host.Decision {
	if s.detector == nil {
		return host.Proceed
	}
	c := s.detector.Classify(url)
	switch {
	case c.Kind == navigation.KindIgnored:
		s.deps.Metrics.IncNavigationIgnored()
	case c.Terminal():
		s.deps.Metrics.IncNavigationIntercepted()
		if navigation.IsProtocolViolation(c) {
			s.logger.Warn("unrecognized terminal navigation", map[string]any{"message": c.Outcome.Message})
		}
		s.finish(c.Outcome)
	}
	return c.Decision
}

// OnTransportError ends a presenting session with a network error.
func (s *Session) OnTransportError(err error) {
	if s.state != StatePresenting {
		return
	}
	c := s.detector.TransportError(err)
	if c.Terminal() {
		s.logger.Warn("surface transport error", map[string]any{"message": c.Outcome.Message})
		s.finish(c.Outcome)
	}
}

// OnLoadCompleted is informational.
func (s *Session) OnLoadCompleted() {
	s.logger.Debug("surface load completed", nil)
}

// OnDismiss cancels the session.
func (s *Session) OnDismiss() { s.Cancel() }

// Cancel ends a running session with a cancellation. Cancelling an idle
// session retires it without delivering anything.
func (s *Session) Cancel() {
	switch s.state {
	case StateIdle:
		s.state = StateTerminal
	case StateFetching, StatePresenting:
		s.finish(types.Cancelled(nil))
	}
}

// finish runs at most once per session.
func (s *Session) finish(outcome *types.SessionOutcome) {
	if s.state == StateTerminal {
		return
	}
	s.state = StateTerminal
	s.outcome = outcome
	s.detector.Disarm()
	if s.fetch != nil {
		s.fetch.Cancel()
	}

	s.deps.Surface.ClearSession()
	s.deps.Surface.SetVisible(false)
	s.deps.Surface.Destroy()

	env := s.deps.Bridge.Encode(outcome, s.flow)
	if s.deps.Sink != nil {
		s.deps.Sink.Deliver(env)
	}

	switch outcome.Kind {
	case types.OutcomeSuccess:
		s.deps.Metrics.IncSessionSucceeded()
	case types.OutcomeCancelled:
		s.deps.Metrics.IncSessionCancelled()
	default:
		s.deps.Metrics.IncSessionFailed()
	}
	s.logger.Info("session finished", map[string]any{
		"outcome":     outcome.String(),
		"result_code": env.ResultCode.String(),
	})

	done := Completion{
		SessionID: s.id,
		Flow:      s.flow,
		Outcome:   outcome,
		Envelope:  env,
		Duration:  time.Since(s.started),
	}
	for _, obs := range s.deps.Observers {
		obs(done)
	}
}
