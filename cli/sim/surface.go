package sim

import (
	"sync"
	"time"

	"github.com/pithecene-io/embedpay/host"
)

// SurfaceEvent is one call the session made on the surface.
type SurfaceEvent struct {
	Op     string    `json:"op" yaml:"op"`
	Detail string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	At     time.Time `json:"at" yaml:"at"`
}

// Surface is a host.Surface that records what it was asked to do.
// It is safe to read from any goroutine.
type Surface struct {
	mu        sync.Mutex
	events    []SurfaceEvent
	url       string
	content   string
	visible   bool
	destroyed bool

	loaded   chan struct{}
	loadOnce sync.Once
	now      func() time.Time
}

var _ host.Surface = (*Surface)(nil)

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{loaded: make(chan struct{}), now: time.Now}
}

// LoadURL implements host.Surface.
func (s *Surface) LoadURL(u string) {
	s.mu.Lock()
	s.url = u
	s.record("load_url", u)
	s.mu.Unlock()
	s.loadOnce.Do(func() { close(s.loaded) })
}

// LoadContent implements host.Surface.
func (s *Surface) LoadContent(baseURL, html string) {
	s.mu.Lock()
	s.url = baseURL
	s.content = html
	s.record("load_content", baseURL)
	s.mu.Unlock()
	s.loadOnce.Do(func() { close(s.loaded) })
}

// SetVisible implements host.Surface.
func (s *Surface) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
	if visible {
		s.record("show", "")
	} else {
		s.record("hide", "")
	}
}

// ClearSession implements host.Surface.
func (s *Surface) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("clear_session", "")
}

// Destroy implements host.Surface.
func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.record("destroy", "")
}

func (s *Surface) record(op, detail string) {
	s.events = append(s.events, SurfaceEvent{Op: op, Detail: detail, At: s.now()})
}

// Loaded is closed the first time the surface loads anything.
func (s *Surface) Loaded() <-chan struct{} { return s.loaded }

// URL returns the last loaded URL or content base URL.
func (s *Surface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Content returns the last inline document.
func (s *Surface) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Visible reports whether the surface is shown.
func (s *Surface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Destroyed reports whether the surface was torn down.
func (s *Surface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Events returns a copy of the recorded calls.
func (s *Surface) Events() []SurfaceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SurfaceEvent(nil), s.events...)
}
