// Package track shows the order-confirmed tracking page.
//
// The tracking page posts analytics from inside an invisible surface and
// never reports completion, so a Tracker treats the page as shown once its
// timeout elapses. A transport error fails the track. Cancel, from the host
// destroying or detaching the surface, has priority over both and
// suppresses every callback.
package track

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/task"
	"github.com/pithecene-io/embedpay/types"
)

// State is the lifecycle state of a Tracker.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateShown     State = "shown"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// ErrStarted is returned when a tracker is started twice.
var ErrStarted = errors.New("tracker already started")

// Callbacks receive the result of a track. Exactly one is called unless
// the tracker is cancelled first.
type Callbacks interface {
	OnTrackShown()
	OnTrackFailed(reason string)
}

// Deps are the collaborators of a Tracker.
type Deps struct {
	Config     *config.Config
	Surface    host.Surface
	Dispatcher task.Dispatcher
	Logger     *log.Logger
	Metrics    *metrics.Collector
	// AfterFunc schedules fn after d and returns a stop function.
	// Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, fn func()) (stop func() bool)
}

// Tracker drives one tracking page. All methods run on the dispatcher goroutine.
type Tracker struct {
	deps    Deps
	track   types.Track
	cb      Callbacks
	logger  *log.Logger
	timeout time.Duration

	state State
	stop  func() bool
}

var _ host.SurfaceListener = (*Tracker)(nil)

// New creates an idle tracker for track.
func New(deps Deps, track types.Track, cb Callbacks) *Tracker {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	if deps.AfterFunc == nil {
		deps.AfterFunc = func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		}
	}
	timeout := config.DefaultTrackTimeout
	if deps.Config != nil && deps.Config.TrackTimeout.Duration > 0 {
		timeout = deps.Config.TrackTimeout.Duration
	}
	return &Tracker{
		deps:    deps,
		track:   track,
		cb:      cb,
		timeout: timeout,
		state:   StateIdle,
		logger: logger.With(map[string]any{
			"component": "track",
			"order_id":  track.Order.OrderID,
		}),
	}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// Start loads the tracking page and arms the timeout.
func (t *Tracker) Start() error {
	if t.state != StateIdle {
		return ErrStarted
	}
	if t.deps.Config == nil {
		return types.ErrNotInitialized
	}
	page, err := Render(t.deps.Config, t.track)
	if err != nil {
		return err
	}

	t.state = StateLoading
	t.deps.Surface.LoadContent(t.deps.Config.TrackerURL(), page)
	t.stop = t.deps.AfterFunc(t.timeout, func() {
		t.deps.Dispatcher.Post(t.onTimeout)
	})
	t.logger.Debug("tracking page loading", map[string]any{"timeout": t.timeout.String()})
	return nil
}

// Cancel tears the page down without reporting.
func (t *Tracker) Cancel() {
	if t.state != StateLoading {
		return
	}
	t.finish(StateCancelled)
	t.deps.Metrics.IncTrackCancelled()
	t.logger.Debug("tracking cancelled", nil)
}

// OnNavigation lets the tracking page load its resources.
func (t *Tracker) OnNavigation(string) host.Decision { return host.Proceed }

// OnTransportError fails the track.
func (t *Tracker) OnTransportError(err error) {
	if t.state != StateLoading {
		return
	}
	reason := "connection failed"
	if err != nil {
		reason = err.Error()
	}
	t.finish(StateFailed)
	t.deps.Metrics.IncTrackFailed()
	t.logger.Warn("tracking failed", map[string]any{"reason": reason})
	t.cb.OnTrackFailed(reason)
}

// OnLoadCompleted is informational; the page gives no completion signal.
func (t *Tracker) OnLoadCompleted() {
	t.logger.Debug("tracking page load completed", nil)
}

// OnDismiss cancels.
func (t *Tracker) OnDismiss() { t.Cancel() }

func (t *Tracker) onTimeout() {
	if t.state != StateLoading {
		return
	}
	t.finish(StateShown)
	t.deps.Metrics.IncTrackShown()
	t.cb.OnTrackShown()
}

func (t *Tracker) finish(state State) {
	t.state = state
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	t.deps.Surface.ClearSession()
	t.deps.Surface.Destroy()
}

var pageTemplate = template.Must(template.New("track").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<script>
_affirm_config = { public_api_key: {{.PublicKey}}, script: {{.Script}} };
</script>
<script src="{{.Script}}"></script>
</head>
<body>
<script>
affirm.ui.ready(function () {
  affirm.analytics.trackOrderConfirmed({{.Order}}, {{.Products}});
});
</script>
</body>
</html>
`))

type pageData struct {
	PublicKey string
	Script    string
	Order     types.TrackOrder
	Products  []types.TrackProduct
}

// Render returns the tracking page for track.
func Render(cfg *config.Config, track types.Track) (string, error) {
	products := track.Products
	if products == nil {
		products = []types.TrackProduct{}
	}
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		PublicKey: cfg.PublicKey,
		Script:    cfg.JSURL(),
		Order:     track.Order,
		Products:  products,
	})
	if err != nil {
		return "", fmt.Errorf("render tracking page: %w", err)
	}
	return buf.String(), nil
}
