// Package lifecycle binds components to the lifecycle of a host screen.
//
// One Observer is installed per screen under the stable tag LifeListenerTag.
// Components register and unregister Listeners with it explicitly; the
// Observer fans start, stop and destroy notifications out to every listener
// currently registered.
package lifecycle

import (
	"reflect"
	"sync"

	"github.com/pithecene-io/embedpay/host"
)

// LifeListenerTag identifies the observer on a host screen.
const LifeListenerTag = "LifeListenerFragmentTag"

// Listener receives screen lifecycle notifications.
type Listener = host.LifecycleObserver

// Observer fans lifecycle notifications out to registered listeners.
// Calls arrive on the dispatcher goroutine.
type Observer struct {
	mu        sync.Mutex
	listeners []Listener
	state     host.ScreenState
	onDestroy func()
}

var _ host.LifecycleObserver = (*Observer)(nil)

// Register adds l. If the screen is already started, l.OnStart runs
// immediately so late registrations still begin their work. Registering
// the same listener twice is a no-op.
func (o *Observer) Register(l Listener) {
	o.mu.Lock()
	for _, existing := range o.listeners {
		if existing == l {
			o.mu.Unlock()
			return
		}
	}
	o.listeners = append(o.listeners, l)
	started := o.state == host.ScreenStarted
	o.mu.Unlock()

	if started {
		l.OnStart()
	}
}

// Unregister removes l. It reports whether l was registered.
func (o *Observer) Unregister(l Listener) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, existing := range o.listeners {
		if existing == l {
			o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (o *Observer) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.listeners)
}

func (o *Observer) snapshot(state host.ScreenState) []Listener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
	return append([]Listener(nil), o.listeners...)
}

// OnStart forwards to every listener.
func (o *Observer) OnStart() {
	for _, l := range o.snapshot(host.ScreenStarted) {
		l.OnStart()
	}
}

// OnStop forwards to every listener.
func (o *Observer) OnStop() {
	for _, l := range o.snapshot(host.ScreenStopped) {
		l.OnStop()
	}
}

// OnDestroy forwards to every listener and drops them all.
func (o *Observer) OnDestroy() {
	listeners := o.snapshot(host.ScreenDestroyed)
	o.mu.Lock()
	o.listeners = nil
	onDestroy := o.onDestroy
	o.mu.Unlock()

	for _, l := range listeners {
		l.OnDestroy()
	}
	if onDestroy != nil {
		onDestroy()
	}
}

// Registry hands out one Observer per host screen. Screens are tracked by
// identity, so hosts should implement host.Screen on a pointer type. A
// screen of a non-comparable type still gets its tagged observer but is
// not tracked by the registry.
type Registry struct {
	mu        sync.Mutex
	observers map[host.Screen]*Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{observers: make(map[host.Screen]*Observer)}
}

// ObserverFor returns the screen's observer, installing it under
// LifeListenerTag on first use. It returns nil for destroyed screens.
func (r *Registry) ObserverFor(screen host.Screen) *Observer {
	if screen.State() == host.ScreenDestroyed {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keyed := reflect.TypeOf(screen).Comparable()
	if keyed {
		if obs, ok := r.observers[screen]; ok {
			return obs
		}
	}
	// Another registry may already have installed one on this screen.
	if existing, ok := screen.Observer(LifeListenerTag).(*Observer); ok {
		if keyed {
			r.track(screen, existing)
		}
		return existing
	}

	obs := &Observer{state: screen.State()}
	if !screen.AddObserver(LifeListenerTag, obs) {
		return nil
	}
	if keyed {
		r.track(screen, obs)
	}
	return obs
}

// track must be called with r.mu held and a comparable screen.
func (r *Registry) track(screen host.Screen, obs *Observer) {
	r.observers[screen] = obs
	obs.mu.Lock()
	prev := obs.onDestroy
	obs.onDestroy = func() {
		if prev != nil {
			prev()
		}
		r.forget(screen)
	}
	obs.mu.Unlock()
}

func (r *Registry) forget(screen host.Screen) {
	r.mu.Lock()
	delete(r.observers, screen)
	r.mu.Unlock()
}

// Len returns the number of screens with a live observer.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}
