// Package sdk is the entry point a host application embeds: it owns the
// configuration, the shared worker pool and dispatcher, and builds the
// checkout sessions, promo bindings and trackers that run on them.
//
// An SDK is initialized once. Later Initialize calls are logged and
// ignored, and every operation before initialization fails fast with
// types.ErrNotInitialized.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pithecene-io/embedpay/adapter"
	"github.com/pithecene-io/embedpay/api"
	"github.com/pithecene-io/embedpay/bridge"
	"github.com/pithecene-io/embedpay/checkout"
	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/lifecycle"
	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/promo"
	"github.com/pithecene-io/embedpay/task"
	"github.com/pithecene-io/embedpay/track"
	"github.com/pithecene-io/embedpay/types"
)

// Option customizes an SDK.
type Option func(*options)

type options struct {
	logger     *log.Logger
	logOutput  io.Writer
	dispatcher task.Dispatcher
	httpClient *http.Client
	adapter    adapter.Adapter
	observers  []func(checkout.Completion)
}

// WithLogger overrides the logger built from the configured log level.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogOutput sets where the logger built from the configured log level
// writes. Defaults to os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithDispatcher sets the dispatcher callbacks are marshalled onto. Without
// it the SDK runs its own task.Loop.
func WithDispatcher(d task.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithHTTPClient replaces the API client's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithAdapter publishes completions to a instead of the configured adapter.
func WithAdapter(a adapter.Adapter) Option {
	return func(o *options) { o.adapter = a }
}

// WithCompletionObserver is called for every finished session, on the dispatcher.
func WithCompletionObserver(fn func(checkout.Completion)) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

// SDK wires configuration to the components that use it.
type SDK struct {
	opts   options
	holder *config.Holder

	mu        sync.Mutex
	closed    bool
	logger    *log.Logger
	metrics   *metrics.Collector
	exec      *task.Executor
	disp      task.Dispatcher
	loop      *task.Loop
	client    *api.Client
	bridge    *bridge.Bridge
	registry  *lifecycle.Registry
	publisher *adapter.Publisher
}

// New creates an uninitialized SDK.
func New(opts ...Option) *SDK {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.Nop()
	}
	return &SDK{
		opts:     o,
		holder:   config.NewHolder(logger),
		logger:   logger,
		registry: lifecycle.NewRegistry(),
	}
}

// Initialize applies cfg if the SDK has not been initialized yet and builds
// the shared components. It returns false when a configuration was already
// present.
func (s *SDK) Initialize(cfg *config.Config) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, types.ErrClosed
	}

	pub, err := s.prepareAdapter(cfg)
	if err != nil {
		return false, err
	}
	applied, err := s.holder.Initialize(cfg)
	if err != nil || !applied {
		if pub != nil && pub != s.opts.adapter {
			_ = pub.Close()
		}
		return applied, err
	}
	cfg = s.holder.MustGet()

	if s.opts.logger == nil {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = log.LevelNone
		}
		s.logger = log.New(level, s.opts.logOutput)
	}
	s.logger = s.logger.With(map[string]any{"environment": string(cfg.Environment)})
	s.holder.SetLogger(s.logger)

	adapterName := cfg.Adapter.Type
	if s.opts.adapter != nil {
		adapterName = "custom"
	}
	s.metrics = metrics.NewCollector(string(cfg.Environment), adapterName)
	if pub != nil {
		s.publisher = adapter.NewPublisher(pub, cfg.Adapter.Timeout.Duration, s.logger, s.metrics)
	}

	s.exec = task.NewExecutor(cfg.Workers)
	s.disp = s.opts.dispatcher
	if s.disp == nil {
		s.loop = task.NewLoop(0)
		s.disp = s.loop
		go func() { _ = s.loop.Run(context.Background()) }()
	}

	clientOpts := []api.Option{api.WithLogger(s.logger)}
	if s.opts.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(s.opts.httpClient))
	}
	s.client = api.New(cfg, clientOpts...)
	s.bridge = bridge.New(cfg.RequestCodes, cfg.ReceiveReasonCodes,
		bridge.WithMetrics(s.metrics), bridge.WithLogger(s.logger))

	s.logger.Info("initialized", map[string]any{
		"workers": cfg.Workers,
		"adapter": adapterName,
	})
	return true, nil
}

// prepareAdapter builds the configured adapter before cfg is applied, so a
// bad adapter URL leaves the SDK uninitialized. It returns nil when cfg
// will be rejected or ignored; Initialize reports why.
func (s *SDK) prepareAdapter(cfg *config.Config) (adapter.Adapter, error) {
	if s.opts.adapter != nil {
		return s.opts.adapter, nil
	}
	if cfg == nil || s.holder.Initialized() {
		return nil, nil
	}
	candidate := cfg.Clone()
	candidate.ApplyDefaults()
	if candidate.Validate() != nil {
		return nil, nil
	}
	return NewAdapter(candidate.Adapter)
}

// ready returns the configuration once Initialize has finished building
// the shared components, or types.ErrClosed after Close.
func (s *SDK) ready() (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrClosed
	}
	return s.holder.Get()
}

// Config returns the applied configuration.
func (s *SDK) Config() (*config.Config, error) { return s.holder.Get() }

// Dispatcher returns the dispatcher callbacks run on. Hosts post surface
// and lifecycle events through it.
func (s *SDK) Dispatcher() (task.Dispatcher, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	return s.disp, nil
}

// Metrics returns a snapshot of the SDK counters.
func (s *SDK) Metrics() metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics.Snapshot()
}

// Bridge returns the result bridge.
func (s *SDK) Bridge() (*bridge.Bridge, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	return s.bridge, nil
}

// StartCheckout asks screen to open a checkout flow for order.
func (s *SDK) StartCheckout(screen host.Screen, order *types.Checkout, useVCN bool) error {
	cfg, err := s.ready()
	if err != nil {
		return err
	}
	if order == nil {
		return types.ErrNilOrder
	}
	kind := types.FlowCheckout
	if useVCN {
		kind = types.FlowVcnCheckout
	}
	return screen.StartFlow(host.FlowRequest{
		Kind:        kind,
		RequestCode: cfg.RequestCodes.For(kind),
		Checkout:    order,
		UseVCN:      useVCN,
	})
}

// ShowSiteModal asks screen to open the site-wide informational modal.
func (s *SDK) ShowSiteModal(screen host.Screen, modalID string) error {
	return s.showModal(screen, host.ModalSite, 0, modalID)
}

// ShowProductModal asks screen to open the product modal for amount.
func (s *SDK) ShowProductModal(screen host.Screen, amount float64, modalID string) error {
	return s.showModal(screen, host.ModalProduct, amount, modalID)
}

func (s *SDK) showModal(screen host.Screen, modalType host.ModalType, amount float64, modalID string) error {
	cfg, err := s.ready()
	if err != nil {
		return err
	}
	return screen.StartFlow(host.FlowRequest{
		Kind:        types.FlowModal,
		RequestCode: cfg.RequestCodes.For(types.FlowModal),
		Amount:      amount,
		ModalType:   modalType,
		ModalID:     modalID,
	})
}

// ConfigurePromo binds widget to a promo fetch for req. The binding
// fetches once attached to a started screen.
func (s *SDK) ConfigurePromo(widget host.Widget, req types.PromoRequest) (*promo.Binding, error) {
	cfg, err := s.ready()
	if err != nil {
		return nil, err
	}
	return promo.Configure(promo.Deps{
		Fetcher:      s.client,
		Executor:     s.exec,
		Dispatcher:   s.disp,
		Registry:     s.registry,
		RequestCodes: cfg.RequestCodes,
		Logger:       s.logger,
		Metrics:      s.metrics,
	}, widget, req), nil
}

// NewFlowSession builds and starts the session behind a flow screen opened
// for req. The returned session is the surface's listener.
func (s *SDK) NewFlowSession(req host.FlowRequest, surface host.Surface, sink host.ResultSink) (*checkout.Session, error) {
	cfg, err := s.ready()
	if err != nil {
		return nil, err
	}
	deps := s.sessionDeps(cfg, surface, sink)

	switch req.Kind {
	case types.FlowCheckout, types.FlowVcnCheckout:
		session := checkout.New(deps)
		useVCN := req.UseVCN || req.Kind == types.FlowVcnCheckout
		if err := session.Start(req.Checkout, useVCN); err != nil {
			return nil, err
		}
		return session, nil
	case types.FlowPrequal:
		session := checkout.NewPrequalSession(deps, s.client.PrequalURL(req.Amount, req.PromoID, req.PageType))
		if err := session.Open(); err != nil {
			return nil, err
		}
		return session, nil
	case types.FlowModal:
		session := checkout.NewModalSession(deps, checkout.ModalRequest{
			Type:    req.ModalType,
			Amount:  req.Amount,
			ModalID: req.ModalID,
		})
		if err := session.Open(); err != nil {
			return nil, err
		}
		return session, nil
	default:
		return nil, fmt.Errorf("%w: unknown flow %q", types.ErrInvalidConfig, req.Kind)
	}
}

func (s *SDK) sessionDeps(cfg *config.Config, surface host.Surface, sink host.ResultSink) checkout.Deps {
	observers := append([]func(checkout.Completion){s.publish}, s.opts.observers...)
	return checkout.Deps{
		Config:     cfg,
		Client:     s.client,
		Executor:   s.exec,
		Dispatcher: s.disp,
		Surface:    surface,
		Sink:       sink,
		Bridge:     s.bridge,
		Logger:     s.logger,
		Metrics:    s.metrics,
		Observers:  observers,
	}
}

func (s *SDK) publish(c checkout.Completion) {
	cfg, err := s.ready()
	if err != nil {
		return
	}
	s.publisher.Publish(Event(cfg, c, time.Now()))
}

// TrackOrderConfirmed loads the order-confirmed tracking page on surface.
func (s *SDK) TrackOrderConfirmed(surface host.Surface, order types.Track, cb track.Callbacks) (*track.Tracker, error) {
	cfg, err := s.ready()
	if err != nil {
		return nil, err
	}
	t := track.New(track.Deps{
		Config:     cfg,
		Surface:    surface,
		Dispatcher: s.disp,
		Logger:     s.logger,
		Metrics:    s.metrics,
	}, order, cb)
	if err := t.Start(); err != nil {
		return nil, err
	}
	return t, nil
}

// HandleCheckoutData decodes a checkout result. It returns false when
// requestCode belongs to another flow.
func (s *SDK) HandleCheckoutData(cb bridge.CheckoutCallbacks, requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) bool {
	if _, err := s.ready(); err != nil {
		return false
	}
	return s.bridge.DecodeCheckout(cb, requestCode, resultCode, env)
}

// HandleVcnCheckoutData decodes a card-issuing checkout result.
func (s *SDK) HandleVcnCheckoutData(cb bridge.VcnCheckoutCallbacks, requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) bool {
	if _, err := s.ready(); err != nil {
		return false
	}
	return s.bridge.DecodeVcnCheckout(cb, requestCode, resultCode, env)
}

// HandlePrequalData decodes a prequal or modal result.
func (s *SDK) HandlePrequalData(cb bridge.PrequalCallbacks, requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) bool {
	if _, err := s.ready(); err != nil {
		return false
	}
	return s.bridge.DecodePrequal(cb, requestCode, resultCode, env)
}

// Close drains pending publishes and stops the worker pool and, if the
// SDK owns it, the dispatch loop.
func (s *SDK) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.publisher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if s.exec != nil {
		s.exec.Close()
	}
	if s.loop != nil {
		s.loop.Stop()
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}
