// Package host declares the capabilities a host application provides to
// embedded flows: a web surface, a screen with a lifecycle and a result
// channel, and a promo widget. Implementations are platform specific;
// the library only drives and observes them.
package host

import (
	"fmt"

	"github.com/pithecene-io/embedpay/types"
)

// Decision tells the surface whether to load an intercepted navigation.
type Decision int

const (
	// Proceed lets the surface load the URL.
	Proceed Decision = iota
	// Handled means the library consumed the URL; the surface must not load it.
	Handled
)

func (d Decision) String() string {
	if d == Handled {
		return "handled"
	}
	return "proceed"
}

// Surface is an embedded web surface.
type Surface interface {
	LoadURL(url string)
	LoadContent(baseURL, html string)
	SetVisible(visible bool)
	// ClearSession drops cookies and storage scoped to the surface.
	ClearSession()
	Destroy()
}

// SurfaceListener receives surface events on the dispatcher goroutine,
// in the order they occur.
type SurfaceListener interface {
	// OnNavigation is called before the surface loads url.
	OnNavigation(url string) Decision
	OnTransportError(err error)
	OnLoadCompleted()
	// OnDismiss is a back gesture or other user dismissal.
	OnDismiss()
}

// LoadError is a transport-level failure reported by a surface.
type LoadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *LoadError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("loading %s: HTTP %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("loading %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("loading %s failed", e.URL)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// ScreenState is the lifecycle state of a host screen.
type ScreenState string

const (
	ScreenCreated   ScreenState = "created"
	ScreenStarted   ScreenState = "started"
	ScreenStopped   ScreenState = "stopped"
	ScreenDestroyed ScreenState = "destroyed"
)

// LifecycleObserver receives host screen lifecycle notifications.
type LifecycleObserver interface {
	OnStart()
	OnStop()
	OnDestroy()
}

// FlowRequest asks a screen to start an embedded flow screen. The flow
// screen reports back through its ResultSink with RequestCode.
type FlowRequest struct {
	Kind        types.FlowKind
	RequestCode int

	// Checkout flows
	Checkout *types.Checkout
	UseVCN   bool

	// Prequal and modal flows
	Amount    float64
	PromoID   string
	PageType  types.PageType
	ModalType ModalType
	ModalID   string
}

// ModalType selects the informational modal variant.
type ModalType string

const (
	ModalProduct ModalType = "product"
	ModalSite    ModalType = "site"
)

// Screen is a host screen able to start flows and report lifecycle.
// Implementations are compared by identity and should be pointer types.
type Screen interface {
	StartFlow(req FlowRequest) error
	// AddObserver registers obs under tag. A second registration with the
	// same tag is ignored and returns false.
	AddObserver(tag string, obs LifecycleObserver) bool
	// Observer returns the observer registered under tag, or nil.
	Observer(tag string) LifecycleObserver
	State() ScreenState
}

// ResultSink carries a result envelope back to the screen that started the flow.
type ResultSink interface {
	Deliver(env *types.ResultEnvelope)
}

// ResultSinkFunc adapts a function to ResultSink.
type ResultSinkFunc func(env *types.ResultEnvelope)

// Deliver calls f(env).
func (f ResultSinkFunc) Deliver(env *types.ResultEnvelope) { f(env) }

// Widget is the promotional label a PromoBinding fills.
type Widget interface {
	// SetLabel shows the fetched promo; the widget picks the variant it renders.
	SetLabel(text, html string)
	ClearSession()
}
