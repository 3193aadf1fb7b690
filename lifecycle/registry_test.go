package lifecycle

import (
	"testing"

	"github.com/pithecene-io/embedpay/host"
)

type fakeScreen struct {
	state     host.ScreenState
	observers map[string]host.LifecycleObserver
	adds      int
}

func newFakeScreen() *fakeScreen {
	return &fakeScreen{state: host.ScreenCreated, observers: map[string]host.LifecycleObserver{}}
}

func (s *fakeScreen) StartFlow(host.FlowRequest) error { return nil }

func (s *fakeScreen) AddObserver(tag string, obs host.LifecycleObserver) bool {
	s.adds++
	if _, ok := s.observers[tag]; ok {
		return false
	}
	s.observers[tag] = obs
	return true
}

func (s *fakeScreen) Observer(tag string) host.LifecycleObserver { return s.observers[tag] }

func (s *fakeScreen) State() host.ScreenState { return s.state }

func (s *fakeScreen) start() {
	s.state = host.ScreenStarted
	for _, o := range s.observers {
		o.OnStart()
	}
}

func (s *fakeScreen) destroy() {
	s.state = host.ScreenDestroyed
	for _, o := range s.observers {
		o.OnDestroy()
	}
}

type countingListener struct {
	starts, stops, destroys int
}

func (l *countingListener) OnStart()   { l.starts++ }
func (l *countingListener) OnStop()    { l.stops++ }
func (l *countingListener) OnDestroy() { l.destroys++ }

func TestRegistry_OneObserverPerScreen(t *testing.T) {
	reg := NewRegistry()
	screen := newFakeScreen()
	l := &countingListener{}

	for range 10 {
		obs := reg.ObserverFor(screen)
		obs.Register(l)
		obs.Unregister(l)
	}

	if screen.adds != 1 {
		t.Errorf("AddObserver called %d times, want 1", screen.adds)
	}
	if len(screen.observers) != 1 {
		t.Errorf("screen has %d observers, want 1", len(screen.observers))
	}
	if _, ok := screen.observers[LifeListenerTag]; !ok {
		t.Errorf("observer not registered under %q", LifeListenerTag)
	}
}

func TestRegistry_ReusesObserverInstalledByAnotherRegistry(t *testing.T) {
	screen := newFakeScreen()
	first := NewRegistry().ObserverFor(screen)
	second := NewRegistry().ObserverFor(screen)

	if first != second {
		t.Error("second registry installed a new observer")
	}
	if screen.adds != 1 {
		t.Errorf("AddObserver called %d times, want 1", screen.adds)
	}
}

func TestObserver_FansOutLifecycle(t *testing.T) {
	reg := NewRegistry()
	screen := newFakeScreen()
	a, b := &countingListener{}, &countingListener{}

	obs := reg.ObserverFor(screen)
	obs.Register(a)
	obs.Register(b)
	obs.Register(a)

	screen.start()
	obs.OnStop()

	if a.starts != 1 || b.starts != 1 {
		t.Errorf("starts = %d/%d, want 1/1", a.starts, b.starts)
	}
	if a.stops != 1 || b.stops != 1 {
		t.Errorf("stops = %d/%d, want 1/1", a.stops, b.stops)
	}

	obs.Unregister(b)
	screen.destroy()

	if a.destroys != 1 || b.destroys != 0 {
		t.Errorf("destroys = %d/%d, want 1/0", a.destroys, b.destroys)
	}
	if obs.Len() != 0 {
		t.Errorf("listeners after destroy = %d, want 0", obs.Len())
	}
	if reg.Len() != 0 {
		t.Errorf("registry still tracks %d screens", reg.Len())
	}
	if reg.ObserverFor(screen) != nil {
		t.Error("ObserverFor returned an observer for a destroyed screen")
	}
}

func TestObserver_LateRegisterOnStartedScreen(t *testing.T) {
	reg := NewRegistry()
	screen := newFakeScreen()
	screen.state = host.ScreenStarted
	l := &countingListener{}

	reg.ObserverFor(screen).Register(l)

	if l.starts != 1 {
		t.Errorf("starts = %d, want 1 for registration on a started screen", l.starts)
	}
}

func TestObserver_UnregisterUnknown(t *testing.T) {
	obs := &Observer{}
	if obs.Unregister(&countingListener{}) {
		t.Error("Unregister reported success for unknown listener")
	}
}

// valueScreen implements host.Screen on a non-comparable value type.
type valueScreen struct {
	observers map[string]host.LifecycleObserver
}

func (s valueScreen) StartFlow(host.FlowRequest) error { return nil }

func (s valueScreen) AddObserver(tag string, obs host.LifecycleObserver) bool {
	if _, ok := s.observers[tag]; ok {
		return false
	}
	s.observers[tag] = obs
	return true
}

func (s valueScreen) Observer(tag string) host.LifecycleObserver { return s.observers[tag] }

func (s valueScreen) State() host.ScreenState { return host.ScreenStarted }

func TestRegistry_NonComparableScreen(t *testing.T) {
	reg := NewRegistry()
	screen := valueScreen{observers: map[string]host.LifecycleObserver{}}

	first := reg.ObserverFor(screen)
	if first == nil {
		t.Fatal("ObserverFor returned nil")
	}
	if second := reg.ObserverFor(screen); second != first {
		t.Error("second ObserverFor installed a new observer")
	}
	if len(screen.observers) != 1 {
		t.Errorf("observers on screen = %d, want 1", len(screen.observers))
	}
	if reg.Len() != 0 {
		t.Errorf("Len = %d, want 0 for an untracked screen", reg.Len())
	}
}
