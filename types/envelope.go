package types

// ResultCode is the host platform's result code for a finished flow screen.
type ResultCode int

// Result codes. Values match the host platform's conventions so envelopes can
// be handed to the host result channel unchanged.
const (
	ResultOK       ResultCode = -1
	ResultCanceled ResultCode = 0
	ResultError    ResultCode = -8575
)

func (c ResultCode) String() string {
	switch c {
	case ResultOK:
		return "OK"
	case ResultCanceled:
		return "CANCELED"
	case ResultError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Envelope payload keys.
const (
	KeyCheckoutToken = "checkout_token"
	KeyCheckoutError = "checkout_error"
	KeyCreditDetails = "credit_details"
	KeyVcnReason     = "vcn_reason"
)

// EnvelopeType is the frame type discriminator for result envelopes.
const EnvelopeType = "result_envelope"

// ResultEnvelope carries a terminal outcome across a screen transition.
// It is produced by the bridge, delivered once and decoded once.
type ResultEnvelope struct {
	// Type is always EnvelopeType.
	Type string `msgpack:"type" json:"type"`
	// RequestCode identifies the flow that produced the envelope.
	RequestCode int `msgpack:"request_code" json:"request_code"`
	// ResultCode is OK, CANCELED or ERROR.
	ResultCode ResultCode `msgpack:"result_code" json:"result_code"`
	// Payload holds exactly the keys required by ResultCode.
	Payload map[string]any `msgpack:"payload,omitempty" json:"payload,omitempty"`
}

// String returns the payload value for key, or "" if absent or not a string.
func (e *ResultEnvelope) String(key string) (string, bool) {
	if e == nil || e.Payload == nil {
		return "", false
	}
	s, ok := e.Payload[key].(string)
	return s, ok
}
