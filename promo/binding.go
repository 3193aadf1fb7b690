// Package promo binds a promotional-message fetch to a widget's visibility
// window and its host screen's lifecycle.
//
// A Binding fetches while its widget is attached to a started screen and
// cancels the fetch synchronously when the widget detaches or the screen is
// destroyed, whichever happens first. At most one fetch is in flight per
// binding.
package promo

import (
	"context"
	"fmt"

	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/lifecycle"
	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/task"
	"github.com/pithecene-io/embedpay/types"
)

// Fetcher retrieves promotional content.
type Fetcher interface {
	FetchPromo(ctx context.Context, req types.PromoRequest) (*types.PromoContent, error)
}

// Deps are the collaborators shared by all bindings.
type Deps struct {
	Fetcher      Fetcher
	Executor     *task.Executor
	Dispatcher   task.Dispatcher
	Registry     *lifecycle.Registry
	RequestCodes types.RequestCodes
	Logger       *log.Logger
	Metrics      *metrics.Collector
}

// Binding ties one widget to a promo fetch. All methods run on the
// dispatcher goroutine.
type Binding struct {
	deps    Deps
	widget  host.Widget
	request types.PromoRequest
	logger  *log.Logger
	fetch   *task.Task[*types.PromoContent]

	screen   host.Screen
	observer *lifecycle.Observer
	content  *types.PromoContent
}

var _ lifecycle.Listener = (*Binding)(nil)

// Configure creates a binding for widget. Nothing is fetched until the
// widget is attached to a started screen.
func Configure(deps Deps, widget host.Widget, req types.PromoRequest) *Binding {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	b := &Binding{
		deps:    deps,
		widget:  widget,
		request: req,
		logger:  logger.With(map[string]any{"component": "promo", "promo_id": req.PromoID}),
	}
	b.fetch = task.New(deps.Executor, deps.Dispatcher, task.Job[*types.PromoContent]{
		Name: "promo",
		Work: func(ctx context.Context) (*types.PromoContent, error) {
			return deps.Fetcher.FetchPromo(ctx, req)
		},
		OnSuccess:   b.onFetched,
		OnFailure:   b.onFailed,
		OnCancelled: b.widget.ClearSession,
		Logger:      logger,
	})
	return b
}

// Attach registers the binding with the screen's lifecycle observer.
// If the screen is already started the fetch begins immediately.
func (b *Binding) Attach(screen host.Screen) {
	if b.observer != nil {
		return
	}
	obs := b.deps.Registry.ObserverFor(screen)
	if obs == nil {
		b.logger.Debug("screen destroyed, not attaching", nil)
		return
	}
	b.screen = screen
	b.observer = obs
	obs.Register(b)
}

// Detach unregisters the binding and cancels any in-flight fetch.
func (b *Binding) Detach() {
	if b.observer != nil {
		b.observer.Unregister(b)
		b.observer = nil
	}
	b.screen = nil
	b.cancel()
}

// Content returns the fetched content, or nil.
func (b *Binding) Content() *types.PromoContent { return b.content }

// FetchState returns the state of the underlying fetch.
func (b *Binding) FetchState() task.State { return b.fetch.State() }

// OnStart starts the fetch.
func (b *Binding) OnStart() {
	if b.fetch.State() != task.StateRunning {
		b.deps.Metrics.IncPromoFetchStarted()
	}
	b.fetch.Create()
}

// OnStop keeps the fetch running; content arriving while stopped is shown on return.
func (b *Binding) OnStop() {}

// OnDestroy cancels the fetch.
func (b *Binding) OnDestroy() {
	b.observer = nil
	b.screen = nil
	b.cancel()
}

func (b *Binding) cancel() {
	if b.fetch.State() == task.StateRunning {
		b.deps.Metrics.IncPromoFetchCancelled()
	}
	b.fetch.Cancel()
}

func (b *Binding) onFetched(c *types.PromoContent) {
	b.content = c
	b.widget.SetLabel(c.Text, c.HTML)
	b.deps.Metrics.IncPromoFetchCompleted()
	b.logger.Debug("promo fetched", map[string]any{"route": c.Route.String()})
}

func (b *Binding) onFailed(err error) {
	b.deps.Metrics.IncPromoFetchFailed()
	b.logger.Error("promo fetch failed", map[string]any{"error": err.Error()})
}

// Click starts the flow chosen by the fetched content. It is a no-op when
// nothing has been fetched or the widget is not attached.
func (b *Binding) Click() error {
	if b.content == nil || b.screen == nil || b.content.Route == types.RouteNone {
		return nil
	}

	req := host.FlowRequest{
		RequestCode: b.deps.RequestCodes.WithDefaults().Prequal,
		Amount:      b.request.Amount,
		PromoID:     b.request.PromoID,
		PageType:    b.request.PageType,
	}
	switch b.content.Route {
	case types.RoutePrequal:
		req.Kind = types.FlowPrequal
	case types.RouteModal:
		req.Kind = types.FlowModal
		req.ModalType = host.ModalProduct
		req.PromoID = ""
	}

	if err := b.screen.StartFlow(req); err != nil {
		return fmt.Errorf("start %s flow: %w", req.Kind, err)
	}
	b.deps.Metrics.IncPromoClick()
	return nil
}
