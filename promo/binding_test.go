package promo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/lifecycle"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/task"
	"github.com/pithecene-io/embedpay/types"
)

type fakeFetcher struct {
	entered chan struct{}
	release chan struct{}
	content *types.PromoContent
	err     error
}

func newFakeFetcher(content *types.PromoContent) *fakeFetcher {
	return &fakeFetcher{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
		content: content,
	}
}

// FetchPromo ignores ctx so a response can arrive after cancellation.
func (f *fakeFetcher) FetchPromo(ctx context.Context, req types.PromoRequest) (*types.PromoContent, error) {
	f.entered <- struct{}{}
	<-f.release
	return f.content, f.err
}

type fakeWidget struct {
	labels []string
	clears int
}

func (w *fakeWidget) SetLabel(text, html string) { w.labels = append(w.labels, text) }
func (w *fakeWidget) ClearSession()              { w.clears++ }

type fakeScreen struct {
	state     host.ScreenState
	observers map[string]host.LifecycleObserver
	adds      int
	flows     []host.FlowRequest
}

func newFakeScreen(state host.ScreenState) *fakeScreen {
	return &fakeScreen{state: state, observers: map[string]host.LifecycleObserver{}}
}

func (s *fakeScreen) StartFlow(req host.FlowRequest) error {
	s.flows = append(s.flows, req)
	return nil
}

func (s *fakeScreen) AddObserver(tag string, obs host.LifecycleObserver) bool {
	s.adds++
	if _, ok := s.observers[tag]; ok {
		return false
	}
	s.observers[tag] = obs
	return true
}

func (s *fakeScreen) Observer(tag string) host.LifecycleObserver { return s.observers[tag] }
func (s *fakeScreen) State() host.ScreenState                    { return s.state }

func (s *fakeScreen) destroy() {
	s.state = host.ScreenDestroyed
	for _, o := range s.observers {
		o.OnDestroy()
	}
}

type fixture struct {
	fetcher *fakeFetcher
	widget  *fakeWidget
	queue   *task.Queue
	metrics *metrics.Collector
	binding *Binding
}

func newFixture(t *testing.T, content *types.PromoContent) *fixture {
	t.Helper()
	exec := task.NewExecutor(2)
	f := &fixture{
		fetcher: newFakeFetcher(content),
		widget:  &fakeWidget{},
		queue:   task.NewQueue(),
		metrics: metrics.NewCollector("sandbox", ""),
	}
	t.Cleanup(func() {
		close(f.fetcher.release)
		exec.Close()
	})
	f.binding = Configure(Deps{
		Fetcher:    f.fetcher,
		Executor:   exec,
		Dispatcher: f.queue,
		Registry:   lifecycle.NewRegistry(),
		Metrics:    f.metrics,
	}, f.widget, types.PromoRequest{PromoID: "promo-1", PageType: types.PageProduct, Amount: 112.02})
	return f
}

func (f *fixture) awaitFetch(t *testing.T) {
	t.Helper()
	select {
	case <-f.fetcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never started")
	}
}

func (f *fixture) complete(t *testing.T) {
	t.Helper()
	f.fetcher.release <- struct{}{}
	select {
	case <-f.queue.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("completion never posted")
	}
	f.queue.Drain()
}

func TestBinding_FetchOnStartedScreen(t *testing.T) {
	f := newFixture(t, &types.PromoContent{Text: "As low as $10/mo", Route: types.RoutePrequal})
	screen := newFakeScreen(host.ScreenStarted)

	f.binding.Attach(screen)
	f.awaitFetch(t)
	f.complete(t)

	if len(f.widget.labels) != 1 || f.widget.labels[0] != "As low as $10/mo" {
		t.Errorf("labels = %v", f.widget.labels)
	}
	if f.binding.Content() == nil {
		t.Fatal("content not cached")
	}
	if s := f.metrics.Snapshot(); s.PromoFetchesStarted != 1 || s.PromoFetchesCompleted != 1 {
		t.Errorf("metrics = %+v", s)
	}
}

func TestBinding_WaitsForScreenStart(t *testing.T) {
	f := newFixture(t, &types.PromoContent{Text: "x", Route: types.RouteModal})
	screen := newFakeScreen(host.ScreenCreated)

	f.binding.Attach(screen)
	if got := f.binding.FetchState(); got != task.StateIdle {
		t.Fatalf("fetch state before start = %q, want idle", got)
	}

	screen.state = host.ScreenStarted
	screen.observers[lifecycle.LifeListenerTag].OnStart()
	f.awaitFetch(t)
	if got := f.binding.FetchState(); got != task.StateRunning {
		t.Errorf("fetch state after start = %q, want running", got)
	}
}

func TestBinding_DetachMidFetchSuppressesCallback(t *testing.T) {
	f := newFixture(t, &types.PromoContent{Text: "late", Route: types.RoutePrequal})
	screen := newFakeScreen(host.ScreenStarted)

	f.binding.Attach(screen)
	f.awaitFetch(t)

	f.binding.Detach()
	if got := f.binding.FetchState(); got != task.StateCancelled {
		t.Fatalf("fetch state after detach = %q, want cancelled", got)
	}

	// the network response arrives after the detach
	f.complete(t)

	if len(f.widget.labels) != 0 {
		t.Errorf("widget updated after detach: %v", f.widget.labels)
	}
	if f.binding.Content() != nil {
		t.Error("content cached after detach")
	}
	if f.widget.clears != 1 {
		t.Errorf("widget sessions cleared %d times, want 1", f.widget.clears)
	}
	if s := f.metrics.Snapshot(); s.PromoFetchesCancelled != 1 || s.PromoFetchesCompleted != 0 {
		t.Errorf("metrics = %+v", s)
	}
}

func TestBinding_ScreenDestroyCancels(t *testing.T) {
	f := newFixture(t, &types.PromoContent{Text: "late", Route: types.RoutePrequal})
	screen := newFakeScreen(host.ScreenStarted)

	f.binding.Attach(screen)
	f.awaitFetch(t)
	screen.destroy()

	if got := f.binding.FetchState(); got != task.StateCancelled {
		t.Fatalf("fetch state after destroy = %q, want cancelled", got)
	}
	f.complete(t)
	if len(f.widget.labels) != 0 {
		t.Errorf("widget updated after destroy: %v", f.widget.labels)
	}
}

func TestBinding_RepeatedAttachDetachOneObserver(t *testing.T) {
	f := newFixture(t, &types.PromoContent{Text: "x", Route: types.RoutePrequal})
	screen := newFakeScreen(host.ScreenCreated)

	for range 5 {
		f.binding.Attach(screen)
		f.binding.Detach()
	}

	if screen.adds != 1 {
		t.Errorf("AddObserver called %d times, want 1", screen.adds)
	}
	obs := screen.observers[lifecycle.LifeListenerTag].(*lifecycle.Observer)
	if obs.Len() != 0 {
		t.Errorf("observer holds %d listeners after detach, want 0", obs.Len())
	}
}

func TestBinding_ClickRoutes(t *testing.T) {
	tests := []struct {
		route    types.ClickRoute
		wantKind types.FlowKind
	}{
		{types.RoutePrequal, types.FlowPrequal},
		{types.RouteModal, types.FlowModal},
	}
	for _, tt := range tests {
		t.Run(tt.route.String(), func(t *testing.T) {
			f := newFixture(t, &types.PromoContent{Text: "x", Route: tt.route})
			screen := newFakeScreen(host.ScreenStarted)
			f.binding.Attach(screen)
			f.awaitFetch(t)
			f.complete(t)

			if err := f.binding.Click(); err != nil {
				t.Fatalf("Click: %v", err)
			}
			if len(screen.flows) != 1 {
				t.Fatalf("flows = %v", screen.flows)
			}
			req := screen.flows[0]
			if req.Kind != tt.wantKind || req.RequestCode != types.DefaultPrequalRequestCode || req.Amount != 112.02 {
				t.Errorf("flow request = %+v", req)
			}
		})
	}
}

func TestBinding_ClickWithoutContentIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	screen := newFakeScreen(host.ScreenCreated)
	f.binding.Attach(screen)

	if err := f.binding.Click(); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if len(screen.flows) != 0 {
		t.Errorf("flow started without content: %v", screen.flows)
	}
}

func TestBinding_FetchFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.err = errors.New("connection failed")
	f.binding.Attach(newFakeScreen(host.ScreenStarted))
	f.awaitFetch(t)
	f.complete(t)

	if len(f.widget.labels) != 0 || f.binding.Content() != nil {
		t.Error("failed fetch updated widget")
	}
	if s := f.metrics.Snapshot(); s.PromoFetchesFailed != 1 {
		t.Errorf("PromoFetchesFailed = %d, want 1", s.PromoFetchesFailed)
	}
}
