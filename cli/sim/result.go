package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pithecene-io/embedpay/bridge"
	"github.com/pithecene-io/embedpay/checkout"
	"github.com/pithecene-io/embedpay/types"
)

// Callback is the merchant callback a decoded envelope was routed to.
type Callback struct {
	Name string   `json:"name" yaml:"name"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

func (c Callback) String() string {
	if c.Name == "" {
		return "(unhandled)"
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(c.Args, ", "))
}

// Recorder implements every callback interface and remembers the last call.
type Recorder struct {
	Last Callback
}

var (
	_ bridge.CheckoutCallbacks    = (*Recorder)(nil)
	_ bridge.VcnCheckoutCallbacks = (*Recorder)(nil)
	_ bridge.PrequalCallbacks     = (*Recorder)(nil)
)

func (r *Recorder) set(name string, args ...string) { r.Last = Callback{Name: name, Args: args} }

func (r *Recorder) OnCheckoutSuccess(token string)    { r.set("OnCheckoutSuccess", token) }
func (r *Recorder) OnCheckoutCancelled()              { r.set("OnCheckoutCancelled") }
func (r *Recorder) OnCheckoutError(message string)    { r.set("OnCheckoutError", message) }
func (r *Recorder) OnVcnCheckoutCancelled()           { r.set("OnVcnCheckoutCancelled") }
func (r *Recorder) OnVcnCheckoutError(message string) { r.set("OnVcnCheckoutError", message) }
func (r *Recorder) OnPrequalError(message string)     { r.set("OnPrequalError", message) }
func (r *Recorder) OnPrequalClosed()                  { r.set("OnPrequalClosed") }

func (r *Recorder) OnVcnCheckoutSuccess(card types.CardDetails) {
	r.set("OnVcnCheckoutSuccess", MaskCard(card.Number), card.Expiration, card.CheckoutToken)
}

func (r *Recorder) OnVcnCheckoutCancelledReason(reason types.CancelReason) {
	r.set("OnVcnCheckoutCancelledReason", reason.Reason)
}

// Route decodes env the way a merchant screen would and returns the
// callback it reached.
func Route(b *bridge.Bridge, requestCode int, resultCode types.ResultCode, env *types.ResultEnvelope) Callback {
	var rec Recorder
	bridge.Dispatch(requestCode, resultCode, env,
		b.CheckoutHandler(&rec),
		b.VcnCheckoutHandler(&rec),
		b.PrequalHandler(&rec),
	)
	return rec.Last
}

// MaskCard keeps the last four digits of a card number.
func MaskCard(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// Result is the rendered outcome of a simulated session.
type Result struct {
	SessionID   string         `json:"session_id" yaml:"session_id"`
	Flow        types.FlowKind `json:"flow" yaml:"flow"`
	Outcome     string         `json:"outcome" yaml:"outcome"`
	ErrorKind   string         `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Message     string         `json:"message,omitempty" yaml:"message,omitempty"`
	RequestCode int            `json:"request_code" yaml:"request_code"`
	ResultCode  string         `json:"result_code" yaml:"result_code"`
	PayloadKeys []string       `json:"payload_keys,omitempty" yaml:"payload_keys,omitempty"`
	Callback    string         `json:"callback" yaml:"callback"`
	DurationMS  int64          `json:"duration_ms" yaml:"duration_ms"`
	Steps       []StepResult   `json:"steps,omitempty" yaml:"steps,omitempty"`
	Surface     []SurfaceEvent `json:"surface,omitempty" yaml:"surface,omitempty"`
}

// NewResult summarizes a completion. Card numbers never appear in it.
func NewResult(b *bridge.Bridge, c checkout.Completion, steps []StepResult, surface []SurfaceEvent) Result {
	res := Result{
		SessionID:  c.SessionID,
		Flow:       c.Flow,
		DurationMS: c.Duration.Milliseconds(),
		Steps:      steps,
		Surface:    surface,
	}
	if o := c.Outcome; o != nil {
		res.Outcome = o.String()
		res.ErrorKind = string(o.ErrorKind)
		res.Message = o.Message
	}
	if env := c.Envelope; env != nil {
		res.RequestCode = env.RequestCode
		res.ResultCode = env.ResultCode.String()
		res.PayloadKeys = payloadKeys(env)
		res.Callback = Route(b, env.RequestCode, env.ResultCode, env).String()
	}
	return res
}

// Frame is one decoded result frame.
type Frame struct {
	Index       int      `json:"index" yaml:"index"`
	RequestCode int      `json:"request_code" yaml:"request_code"`
	ResultCode  string   `json:"result_code" yaml:"result_code"`
	PayloadKeys []string `json:"payload_keys,omitempty" yaml:"payload_keys,omitempty"`
	Callback    string   `json:"callback" yaml:"callback"`
}

// DecodeFrame routes env through b.
func DecodeFrame(b *bridge.Bridge, index int, env *types.ResultEnvelope) Frame {
	f := Frame{
		Index:       index,
		RequestCode: env.RequestCode,
		ResultCode:  env.ResultCode.String(),
		PayloadKeys: payloadKeys(env),
	}
	f.Callback = Route(b, env.RequestCode, env.ResultCode, env).String()
	return f
}

func payloadKeys(env *types.ResultEnvelope) []string {
	if len(env.Payload) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env.Payload))
	for k := range env.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
