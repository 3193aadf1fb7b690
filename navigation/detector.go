// Package navigation turns the navigation events of an embedded web surface
// into a single session outcome.
//
// The remote flow reports completion only by navigating to a terminal URL
// under the affirm:// scheme. The Detector classifies every navigation before
// the surface loads it:
//   - confirm pattern: success, surface told not to load
//   - cancel pattern: cancelled, surface told not to load
//   - any other affirm:// URL: protocol violation
//   - anything else: still loading, surface proceeds
//
// The first terminal classification disarms the detector; later events are
// ignored so a session never produces two outcomes.
package navigation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/types"
)

// Default terminal URLs and the scheme reserved for them.
const (
	TerminalScheme = "affirm"
	ConfirmURL     = "affirm://checkout/confirmed"
	CancelURL      = "affirm://checkout/cancelled"
	// ReferringURL closes the prequal flow.
	ReferringURL = "https://androidsdk/"
)

// Kind classifies a navigation.
type Kind string

const (
	KindLoading   Kind = "loading"
	KindConfirmed Kind = "confirmed"
	KindCancelled Kind = "cancelled"
	KindFailed    Kind = "failed"
	// KindIgnored is returned once the detector is disarmed.
	KindIgnored Kind = "ignored"
)

// Patterns are the terminal URLs recognized for a flow. Empty patterns
// never match.
type Patterns struct {
	Confirm string
	Cancel  string
	// Close ends informational flows without a result.
	Close string
}

// DefaultPatterns returns the terminal URLs for a flow kind.
func DefaultPatterns(kind types.FlowKind) Patterns {
	switch kind {
	case types.FlowPrequal:
		return Patterns{Cancel: CancelURL, Close: ReferringURL}
	case types.FlowModal:
		return Patterns{Cancel: CancelURL}
	default:
		return Patterns{Confirm: ConfirmURL, Cancel: CancelURL}
	}
}

// Options configures a Detector.
type Options struct {
	Flow types.FlowKind
	// ReceiveReasons attaches a cancel reason to cancelled outcomes,
	// synthesizing types.DefaultCancelReason when none is reported.
	ReceiveReasons bool
	// Patterns overrides DefaultPatterns(Flow) when non-zero.
	Patterns Patterns
}

// Classification is the result of inspecting one navigation.
type Classification struct {
	Kind     Kind
	Decision host.Decision
	// Outcome is set for terminal kinds only.
	Outcome *types.SessionOutcome
}

// Terminal reports whether the classification ended the session.
func (c Classification) Terminal() bool {
	return c.Outcome != nil
}

// Detector classifies navigations for one session. Not safe for concurrent
// use; all calls happen on the dispatcher goroutine.
type Detector struct {
	flow           types.FlowKind
	receiveReasons bool
	patterns       Patterns
	armed          bool
}

// New creates an armed detector.
func New(opts Options) *Detector {
	p := opts.Patterns
	if p == (Patterns{}) {
		p = DefaultPatterns(opts.Flow)
	}
	return &Detector{
		flow:           opts.Flow,
		receiveReasons: opts.ReceiveReasons,
		patterns:       p,
		armed:          true,
	}
}

// Armed reports whether a terminal classification can still be emitted.
func (d *Detector) Armed() bool { return d.armed }

// Disarm stops the detector from emitting outcomes, e.g. after a dismissal.
func (d *Detector) Disarm() { d.armed = false }

var ignored = Classification{Kind: KindIgnored, Decision: host.Handled}

// Classify inspects rawURL before the surface loads it.
func (d *Detector) Classify(rawURL string) Classification {
	if !d.armed {
		return ignored
	}

	var c Classification
	switch {
	case matches(rawURL, d.patterns.Confirm):
		c = d.confirm(rawURL)
	case matches(rawURL, d.patterns.Cancel):
		c = Classification{Kind: KindCancelled, Decision: host.Handled, Outcome: types.Cancelled(d.cancelReason(rawURL))}
	case matches(rawURL, d.patterns.Close):
		c = Classification{Kind: KindCancelled, Decision: host.Handled, Outcome: types.Cancelled(nil)}
	case hasScheme(rawURL, TerminalScheme):
		c = failed(fmt.Sprintf("unrecognized terminal navigation %q", stripQuery(rawURL)))
	default:
		return Classification{Kind: KindLoading, Decision: host.Proceed}
	}

	d.armed = false
	return c
}

// TransportError classifies a surface load failure.
func (d *Detector) TransportError(err error) Classification {
	if !d.armed {
		return ignored
	}
	d.armed = false

	msg := "connection failed"
	if err != nil {
		msg = err.Error()
	}
	return Classification{
		Kind:     KindFailed,
		Decision: host.Handled,
		Outcome:  types.Failed(types.ErrorNetwork, msg),
	}
}

func (d *Detector) confirm(rawURL string) Classification {
	q := query(rawURL)

	if d.flow == types.FlowVcnCheckout {
		data := q.Get("data")
		if data == "" {
			return failed("confirmation is missing card details")
		}
		var card types.CardDetails
		if err := json.Unmarshal([]byte(data), &card); err != nil {
			return failed(fmt.Sprintf("invalid card details: %v", err))
		}
		if !card.Valid() {
			return failed("confirmation carries incomplete card details")
		}
		return Classification{Kind: KindConfirmed, Decision: host.Handled, Outcome: types.CardIssued(&card)}
	}

	token := q.Get("checkout_token")
	if token == "" {
		token = q.Get("token")
	}
	if token == "" {
		return failed("confirmation is missing checkout token")
	}
	return Classification{Kind: KindConfirmed, Decision: host.Handled, Outcome: types.Succeeded(token)}
}

// cancelReason returns nil unless reasons are enabled.
func (d *Detector) cancelReason(rawURL string) *types.CancelReason {
	if !d.receiveReasons {
		return nil
	}
	q := query(rawURL)
	if data := q.Get("data"); data != "" {
		var reason types.CancelReason
		if err := json.Unmarshal([]byte(data), &reason); err == nil && reason.Reason != "" {
			return &reason
		}
	}
	if r := q.Get("reason"); r != "" {
		return &types.CancelReason{Reason: r, CheckoutToken: q.Get("checkout_token")}
	}
	return &types.CancelReason{Reason: types.DefaultCancelReason}
}

func failed(msg string) Classification {
	return Classification{
		Kind:     KindFailed,
		Decision: host.Handled,
		Outcome:  types.Failed(types.ErrorProtocol, fmt.Errorf("%w: %s", types.ErrProtocol, msg).Error()),
	}
}

// matches reports whether rawURL is pattern, optionally followed by a
// query, fragment or sub-path. A pattern ending in / matches its whole tree.
// Scheme and host compare case-insensitively, the path exactly.
func matches(rawURL, pattern string) bool {
	if pattern == "" || len(rawURL) < len(pattern) {
		return false
	}
	origin := originLen(pattern)
	if !strings.EqualFold(rawURL[:origin], pattern[:origin]) ||
		rawURL[origin:len(pattern)] != pattern[origin:] {
		return false
	}
	rest := rawURL[len(pattern):]
	return rest == "" || strings.HasSuffix(pattern, "/") ||
		rest[0] == '?' || rest[0] == '#' || rest[0] == '/'
}

// originLen returns the length of pattern's scheme and authority.
func originLen(pattern string) int {
	i := strings.Index(pattern, "://")
	if i < 0 {
		return 0
	}
	i += len("://")
	if j := strings.IndexAny(pattern[i:], "/?#"); j >= 0 {
		return i + j
	}
	return len(pattern)
}

func hasScheme(rawURL, scheme string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasPrefix(strings.ToLower(rawURL), scheme+":")
	}
	return strings.EqualFold(u.Scheme, scheme)
}

func query(rawURL string) url.Values {
	u, err := url.Parse(rawURL)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// IsProtocolViolation reports whether c failed because the remote flow
// broke the terminal URL contract.
func IsProtocolViolation(c Classification) bool {
	return c.Outcome != nil && c.Outcome.ErrorKind == types.ErrorProtocol
}
