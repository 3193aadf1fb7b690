// Package bridge carries a session outcome across a screen boundary as a
// (request code, result code, payload) envelope and decodes it back into
// exactly one typed callback on the caller.
//
// Decoders are isolated by request code: offering an envelope to a decoder
// for another flow returns false and has no side effects, so a host's single
// result-dispatch point can offer every envelope to every handler.
package bridge

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/types"
)

// GenericErrorMessage is reported when an envelope violates its payload
// contract and no message is available.
const GenericErrorMessage = "embedded flow returned an incomplete result"

// CheckoutCallbacks receive the result of a basic checkout.
type CheckoutCallbacks interface {
	OnCheckoutSuccess(token string)
	OnCheckoutCancelled()
	OnCheckoutError(message string)
}

// VcnCheckoutCallbacks receive the result of a card-issuing checkout.
type VcnCheckoutCallbacks interface {
	OnVcnCheckoutSuccess(card types.CardDetails)
	OnVcnCheckoutCancelled()
	// OnVcnCheckoutCancelledReason replaces OnVcnCheckoutCancelled when
	// reason codes are enabled.
	OnVcnCheckoutCancelledReason(reason types.CancelReason)
	OnVcnCheckoutError(message string)
}

// PrequalCallbacks receive the result of a prequal or modal flow.
type PrequalCallbacks interface {
	OnPrequalError(message string)
	OnPrequalClosed()
}

// Bridge encodes and decodes envelopes for one configuration.
type Bridge struct {
	codes          types.RequestCodes
	receiveReasons bool
	metrics        *metrics.Collector
	logger         *log.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMetrics counts encoded, decoded and ignored envelopes.
func WithMetrics(c *metrics.Collector) Option {
	return func(b *Bridge) { b.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a Bridge. Zero request codes take their defaults.
func New(codes types.RequestCodes, receiveReasons bool, opts ...Option) *Bridge {
	b := &Bridge{
		codes:          codes.WithDefaults(),
		receiveReasons: receiveReasons,
		logger:         log.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RequestCodes returns the codes this bridge recognizes.
func (b *Bridge) RequestCodes() types.RequestCodes { return b.codes }

// Encode maps a terminal outcome to an envelope for flow kind.
// A nil or pending outcome encodes as a plain cancellation.
func (b *Bridge) Encode(outcome *types.SessionOutcome, kind types.FlowKind) *types.ResultEnvelope {
	env := &types.ResultEnvelope{
		Type:        types.EnvelopeType,
		RequestCode: b.codes.For(kind),
		ResultCode:  types.ResultCanceled,
	}
	defer b.metrics.IncEnvelopeEncoded()

	if outcome == nil {
		outcome = types.Cancelled(nil)
	}

	switch outcome.Kind {
	case types.OutcomeSuccess:
		env.ResultCode = types.ResultOK
		switch kind {
		case types.FlowCheckout:
			env.Payload = map[string]any{types.KeyCheckoutToken: outcome.Token}
		case types.FlowVcnCheckout:
			if outcome.Card != nil {
				env.Payload = map[string]any{types.KeyCreditDetails: *outcome.Card}
			}
		}
	case types.OutcomeError:
		env.ResultCode = types.ResultError
		env.Payload = map[string]any{types.KeyCheckoutError: outcome.Message}
	default:
		if kind == types.FlowVcnCheckout && b.receiveReasons {
			reason := types.CancelReason{Reason: types.DefaultCancelReason}
			if outcome.Reason != nil && outcome.Reason.Reason != "" {
				reason = *outcome.Reason
			}
			env.Payload = map[string]any{types.KeyVcnReason: reason}
		}
	}
	return env
}

// Handler offers an envelope to one decoder and reports whether it was recognized.
type Handler func(requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) bool

// Dispatch offers the envelope to each handler in order and stops at the
// first that recognizes the request code.
func Dispatch(requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope, handlers ...Handler) bool {
	for _, h := range handlers {
		if h(requestCode, resultCode, env) {
			return true
		}
	}
	return false
}

// CheckoutHandler binds cb to DecodeCheckout.
func (b *Bridge) CheckoutHandler(cb CheckoutCallbacks) Handler {
	return func(rq int, rc types.ResultCode, env *types.ResultEnvelope) bool {
		return b.DecodeCheckout(cb, rq, rc, env)
	}
}

// VcnCheckoutHandler binds cb to DecodeVcnCheckout.
func (b *Bridge) VcnCheckoutHandler(cb VcnCheckoutCallbacks) Handler {
	return func(rq int, rc types.ResultCode, env *types.ResultEnvelope) bool {
		return b.DecodeVcnCheckout(cb, rq, rc, env)
	}
}

// PrequalHandler binds cb to DecodePrequal.
func (b *Bridge) PrequalHandler(cb PrequalCallbacks) Handler {
	return func(rq int, rc types.ResultCode, env *types.ResultEnvelope) bool {
		return b.DecodePrequal(cb, rq, rc, env)
	}
}

// DecodeCheckout invokes exactly one of cb's methods when requestCode is
// the checkout code.
func (b *Bridge) DecodeCheckout(cb CheckoutCallbacks, requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) bool {
	if !b.recognize(requestCode, b.codes.Checkout) {
		return false
	}

	switch resultCode {
	case types.ResultOK:
		token, ok := env.String(types.KeyCheckoutToken)
		if !ok || token == "" {
			b.violation(types.FlowCheckout, types.KeyCheckoutToken)
			cb.OnCheckoutError(GenericErrorMessage)
			return true
		}
		cb.OnCheckoutSuccess(token)
	case types.ResultCanceled:
		cb.OnCheckoutCancelled()
	default:
		cb.OnCheckoutError(b.errorMessage(types.FlowCheckout, resultCode, env))
	}
	return true
}

// DecodeVcnCheckout invokes exactly one of cb's methods when requestCode
// is the card-issuing checkout code.
func (b *Bridge) DecodeVcnCheckout(cb VcnCheckoutCallbacks, requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) bool {
	if !b.recognize(requestCode, b.codes.VcnCheckout) {
		return false
	}

	switch resultCode {
	case types.ResultOK:
		var card types.CardDetails
		if !payloadValue(env, types.KeyCreditDetails, &card) || !card.Valid() {
			b.violation(types.FlowVcnCheckout, types.KeyCreditDetails)
			cb.OnVcnCheckoutError(GenericErrorMessage)
			return true
		}
		cb.OnVcnCheckoutSuccess(card)
	case types.ResultCanceled:
		if !b.receiveReasons {
			cb.OnVcnCheckoutCancelled()
			return true
		}
		var reason types.CancelReason
		if !payloadValue(env, types.KeyVcnReason, &reason) || reason.Reason == "" {
			reason = types.CancelReason{Reason: types.DefaultCancelReason}
		}
		cb.OnVcnCheckoutCancelledReason(reason)
	default:
		cb.OnVcnCheckoutError(b.errorMessage(types.FlowVcnCheckout, resultCode, env))
	}
	return true
}

// DecodePrequal invokes exactly one of cb's methods when requestCode is
// the prequal code. Modal flows share that code.
func (b *Bridge) DecodePrequal(cb PrequalCallbacks, requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) bool {
	if !b.recognize(requestCode, b.codes.Prequal) {
		return false
	}

	switch resultCode {
	case types.ResultOK, types.ResultCanceled:
		cb.OnPrequalClosed()
	default:
		cb.OnPrequalError(b.errorMessage(types.FlowPrequal, resultCode, env))
	}
	return true
}

func (b *Bridge) recognize(requestCode, want int) bool {
	if requestCode != want {
		b.metrics.IncEnvelopeIgnored()
		return false
	}
	b.metrics.IncEnvelopeDecoded()
	return true
}

// errorMessage returns the payload message for ERROR envelopes and the
// generic message for missing messages and unknown result codes.
func (b *Bridge) errorMessage(kind types.FlowKind, resultCode types.ResultCode, env *types.ResultEnvelope) string {
	if resultCode != types.ResultError {
		b.logger.Warn("unknown result code", map[string]any{"flow": kind, "result_code": int(resultCode)})
		return GenericErrorMessage
	}
	msg, ok := env.String(types.KeyCheckoutError)
	if !ok || msg == "" {
		b.violation(kind, types.KeyCheckoutError)
		return GenericErrorMessage
	}
	return msg
}

func (b *Bridge) violation(kind types.FlowKind, key string) {
	b.logger.Warn("envelope missing required payload key", map[string]any{"flow": kind, "key": key})
}

// payloadValue decodes env.Payload[key] into out. In-process envelopes carry
// typed values; envelopes that crossed an ipc frame carry generic maps.
func payloadValue[T any](env *types.ResultEnvelope, key string, out *T) bool {
	if env == nil || env.Payload == nil {
		return false
	}
	switch v := env.Payload[key].(type) {
	case nil:
		return false
	case T:
		*out = v
		return true
	case *T:
		if v == nil {
			return false
		}
		*out = *v
		return true
	default:
		raw, err := msgpack.Marshal(v)
		if err != nil {
			return false
		}
		return msgpack.Unmarshal(raw, out) == nil
	}
}
