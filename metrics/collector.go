// Package metrics provides process-wide counters for embedded flows.
//
// The Collector accumulates counters across sessions, promo bindings,
// trackers and the result bridge. It is a leaf package with no internal
// dependencies. All increment methods are nil-receiver safe so components
// can run without a collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Checkout sessions
	SessionsStarted   int64 `json:"sessions_started" yaml:"sessions_started"`
	SessionsSucceeded int64 `json:"sessions_succeeded" yaml:"sessions_succeeded"`
	SessionsCancelled int64 `json:"sessions_cancelled" yaml:"sessions_cancelled"`
	SessionsFailed    int64 `json:"sessions_failed" yaml:"sessions_failed"`

	// Navigation interception
	NavigationsIntercepted int64 `json:"navigations_intercepted" yaml:"navigations_intercepted"`
	NavigationsIgnored     int64 `json:"navigations_ignored" yaml:"navigations_ignored"`

	// Promo bindings
	PromoFetchesStarted   int64 `json:"promo_fetches_started" yaml:"promo_fetches_started"`
	PromoFetchesCompleted int64 `json:"promo_fetches_completed" yaml:"promo_fetches_completed"`
	PromoFetchesCancelled int64 `json:"promo_fetches_cancelled" yaml:"promo_fetches_cancelled"`
	PromoFetchesFailed    int64 `json:"promo_fetches_failed" yaml:"promo_fetches_failed"`
	PromoClicks           int64 `json:"promo_clicks" yaml:"promo_clicks"`

	// Result bridge
	EnvelopesEncoded  int64 `json:"envelopes_encoded" yaml:"envelopes_encoded"`
	EnvelopesDecoded  int64 `json:"envelopes_decoded" yaml:"envelopes_decoded"`
	EnvelopesIgnored  int64 `json:"envelopes_ignored" yaml:"envelopes_ignored"`
	FrameDecodeErrors int64 `json:"frame_decode_errors" yaml:"frame_decode_errors"`

	// Order tracking
	TracksShown     int64 `json:"tracks_shown" yaml:"tracks_shown"`
	TracksFailed    int64 `json:"tracks_failed" yaml:"tracks_failed"`
	TracksCancelled int64 `json:"tracks_cancelled" yaml:"tracks_cancelled"`

	// Outcome publishing
	PublishSuccess int64 `json:"publish_success" yaml:"publish_success"`
	PublishFailure int64 `json:"publish_failure" yaml:"publish_failure"`

	// Dimensions (informational, set at construction)
	Environment string `json:"environment" yaml:"environment"`
	Adapter     string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
// adapter is empty when outcome publishing is disabled.
func NewCollector(environment, adapter string) *Collector {
	return &Collector{s: Snapshot{Environment: environment, Adapter: adapter}}
}

func (c *Collector) inc(field func(s *Snapshot) *int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field(&c.s)++
	c.mu.Unlock()
}

// --- Checkout sessions ---

// IncSessionStarted records a session leaving idle.
func (c *Collector) IncSessionStarted() {
	c.inc(func(s *Snapshot) *int64 { return &s.SessionsStarted })
}

// IncSessionSucceeded records a success outcome.
func (c *Collector) IncSessionSucceeded() {
	c.inc(func(s *Snapshot) *int64 { return &s.SessionsSucceeded })
}

// IncSessionCancelled records a cancelled outcome, including dismissals.
func (c *Collector) IncSessionCancelled() {
	c.inc(func(s *Snapshot) *int64 { return &s.SessionsCancelled })
}

// IncSessionFailed records an error outcome.
func (c *Collector) IncSessionFailed() {
	c.inc(func(s *Snapshot) *int64 { return &s.SessionsFailed })
}

// --- Navigation ---

// IncNavigationIntercepted records a navigation the surface was told not to load.
func (c *Collector) IncNavigationIntercepted() {
	c.inc(func(s *Snapshot) *int64 { return &s.NavigationsIntercepted })
}

// IncNavigationIgnored records a navigation that arrived after the detector disarmed.
func (c *Collector) IncNavigationIgnored() {
	c.inc(func(s *Snapshot) *int64 { return &s.NavigationsIgnored })
}

// --- Promo ---

// IncPromoFetchStarted records a promo task creation.
func (c *Collector) IncPromoFetchStarted() {
	c.inc(func(s *Snapshot) *int64 { return &s.PromoFetchesStarted })
}

// IncPromoFetchCompleted records promo content reaching the widget.
func (c *Collector) IncPromoFetchCompleted() {
	c.inc(func(s *Snapshot) *int64 { return &s.PromoFetchesCompleted })
}

// IncPromoFetchCancelled records a promo fetch cancelled by detach or destroy.
func (c *Collector) IncPromoFetchCancelled() {
	c.inc(func(s *Snapshot) *int64 { return &s.PromoFetchesCancelled })
}

// IncPromoFetchFailed records a failed promo fetch.
func (c *Collector) IncPromoFetchFailed() {
	c.inc(func(s *Snapshot) *int64 { return &s.PromoFetchesFailed })
}

// IncPromoClick records a click that started a flow.
func (c *Collector) IncPromoClick() { c.inc(func(s *Snapshot) *int64 { return &s.PromoClicks }) }

// --- Result bridge ---

// IncEnvelopeEncoded records an outcome encoded for delivery.
func (c *Collector) IncEnvelopeEncoded() {
	c.inc(func(s *Snapshot) *int64 { return &s.EnvelopesEncoded })
}

// IncEnvelopeDecoded records an envelope that reached a callback.
func (c *Collector) IncEnvelopeDecoded() {
	c.inc(func(s *Snapshot) *int64 { return &s.EnvelopesDecoded })
}

// IncEnvelopeIgnored records an envelope offered with a foreign request code.
func (c *Collector) IncEnvelopeIgnored() {
	c.inc(func(s *Snapshot) *int64 { return &s.EnvelopesIgnored })
}

// IncFrameDecodeErrors records an envelope frame that failed to decode.
func (c *Collector) IncFrameDecodeErrors() {
	c.inc(func(s *Snapshot) *int64 { return &s.FrameDecodeErrors })
}

// --- Tracking ---

// IncTrackShown records a tracker finishing with the synthesized shown result.
func (c *Collector) IncTrackShown() { c.inc(func(s *Snapshot) *int64 { return &s.TracksShown }) }

// IncTrackFailed records a tracker transport failure.
func (c *Collector) IncTrackFailed() { c.inc(func(s *Snapshot) *int64 { return &s.TracksFailed }) }

// IncTrackCancelled records a tracker cancelled by its host.
func (c *Collector) IncTrackCancelled() {
	c.inc(func(s *Snapshot) *int64 { return &s.TracksCancelled })
}

// --- Publishing ---
// Publish counters are per-event; retries inside an adapter are not counted.

// IncPublishSuccess records an outcome event accepted by the adapter.
func (c *Collector) IncPublishSuccess() {
	c.inc(func(s *Snapshot) *int64 { return &s.PublishSuccess })
}

// IncPublishFailure records an outcome event the adapter gave up on.
func (c *Collector) IncPublishFailure() {
	c.inc(func(s *Snapshot) *int64 { return &s.PublishFailure })
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
