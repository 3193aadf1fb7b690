package track

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/task"
	"github.com/pithecene-io/embedpay/types"
)

type fakeSurface struct {
	baseURL   string
	content   string
	cleared   int
	destroyed int
}

func (s *fakeSurface) LoadURL(string) {}
func (s *fakeSurface) LoadContent(baseURL, html string) {
	s.baseURL = baseURL
	s.content = html
}
func (s *fakeSurface) SetVisible(bool) {}
func (s *fakeSurface) ClearSession()   { s.cleared++ }
func (s *fakeSurface) Destroy()        { s.destroyed++ }

type recorder struct {
	shown   int
	reasons []string
}

func (r *recorder) OnTrackShown()               { r.shown++ }
func (r *recorder) OnTrackFailed(reason string) { r.reasons = append(r.reasons, reason) }

// manualTimer captures the scheduled timeout so tests decide when it fires.
type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (m *manualTimer) afterFunc(d time.Duration, fn func()) func() bool {
	m.delay = d
	m.fn = fn
	return func() bool {
		m.stopped = true
		return true
	}
}

type fixture struct {
	surface *fakeSurface
	rec     *recorder
	timer   *manualTimer
	metrics *metrics.Collector
	tracker *Tracker
}

func newFixture(t *testing.T, opts ...config.Option) *fixture {
	t.Helper()
	cfg, err := config.New("pk_test", append([]config.Option{config.WithEnvironment(config.Sandbox)}, opts...)...)
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	f := &fixture{
		surface: &fakeSurface{},
		rec:     &recorder{},
		timer:   &manualTimer{},
		metrics: metrics.NewCollector("sandbox", ""),
	}
	f.tracker = New(Deps{
		Config:     cfg,
		Surface:    f.surface,
		Dispatcher: task.DispatcherFunc(func(fn func()) { fn() }),
		Metrics:    f.metrics,
		AfterFunc:  f.timer.afterFunc,
	}, sampleTrack(), f.rec)
	return f
}

func sampleTrack() types.Track {
	return types.Track{
		Order: types.TrackOrder{
			StoreName:     "Affirm Store",
			Currency:      "USD",
			OrderID:       "order-1",
			PaymentMethod: "Visa",
			Total:         3739,
		},
		Products: []types.TrackProduct{
			{Name: "Affirm Beanie", Price: 1000, ProductID: "SKU-1234", Quantity: 1},
		},
	}
}

func TestTracker_TimeoutReportsShown(t *testing.T) {
	f := newFixture(t)
	if err := f.tracker.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.timer.delay != config.DefaultTrackTimeout {
		t.Errorf("timeout = %v, want %v", f.timer.delay, config.DefaultTrackTimeout)
	}
	if f.surface.baseURL != "https://tracker.affirm.com/collect" {
		t.Errorf("base url = %q", f.surface.baseURL)
	}

	f.timer.fn()

	if f.rec.shown != 1 {
		t.Errorf("shown = %d, want 1", f.rec.shown)
	}
	if f.tracker.State() != StateShown {
		t.Errorf("state = %q, want shown", f.tracker.State())
	}
	if f.surface.destroyed != 1 || f.surface.cleared != 1 {
		t.Errorf("surface not torn down: %+v", f.surface)
	}
	if s := f.metrics.Snapshot(); s.TracksShown != 1 {
		t.Errorf("TracksShown = %d, want 1", s.TracksShown)
	}
}

func TestTracker_ConfiguredTimeout(t *testing.T) {
	f := newFixture(t, config.WithTrackTimeout(3*time.Second))
	if err := f.tracker.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.timer.delay != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", f.timer.delay)
	}
}

func TestTracker_TransportErrorFails(t *testing.T) {
	f := newFixture(t)
	if err := f.tracker.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.tracker.OnTransportError(&host.LoadError{URL: "https://cdn1-sandbox.affirm.com/js/v2/affirm.js", StatusCode: 502})
	f.timer.fn()

	if len(f.rec.reasons) != 1 || !strings.Contains(f.rec.reasons[0], "HTTP 502") {
		t.Errorf("reasons = %v", f.rec.reasons)
	}
	if f.rec.shown != 0 {
		t.Error("shown reported after failure")
	}
	if !f.timer.stopped {
		t.Error("timer not stopped")
	}
	if s := f.metrics.Snapshot(); s.TracksFailed != 1 {
		t.Errorf("TracksFailed = %d, want 1", s.TracksFailed)
	}
}

func TestTracker_CancelHasPriority(t *testing.T) {
	f := newFixture(t)
	if err := f.tracker.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.tracker.Cancel()
	// a timeout already in flight and a late transport error are both dropped
	f.timer.fn()
	f.tracker.OnTransportError(errors.New("connection reset"))

	if f.rec.shown != 0 || len(f.rec.reasons) != 0 {
		t.Errorf("callbacks after cancel: %+v", f.rec)
	}
	if f.tracker.State() != StateCancelled {
		t.Errorf("state = %q, want cancelled", f.tracker.State())
	}
	if f.surface.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", f.surface.destroyed)
	}
	if s := f.metrics.Snapshot(); s.TracksCancelled != 1 {
		t.Errorf("TracksCancelled = %d, want 1", s.TracksCancelled)
	}
}

func TestTracker_StartTwice(t *testing.T) {
	f := newFixture(t)
	if err := f.tracker.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.tracker.Start(); !errors.Is(err, ErrStarted) {
		t.Errorf("second Start = %v, want ErrStarted", err)
	}
}

func TestRender(t *testing.T) {
	cfg, err := config.New("pk_test", config.WithEnvironment(config.Sandbox))
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	page, err := Render(cfg, sampleTrack())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		`"pk_test"`,
		`"orderId":"order-1"`,
		`"productId":"SKU-1234"`,
		`src="https://cdn1-sandbox.affirm.com/js/v2/affirm.js"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %s", want)
		}
	}
}
