package types

import "fmt"

// OutcomeKind is the discriminator of a SessionOutcome.
type OutcomeKind string

// Outcome kinds. Exactly one is produced per session.
const (
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomeError     OutcomeKind = "error"
)

// DefaultCancelReason is synthesized when a reason-reporting flow is
// cancelled without the remote side supplying a reason.
const DefaultCancelReason = "canceled"

// CardDetails is the single-use card issued by the VCN checkout flow.
type CardDetails struct {
	CardholderName string `json:"cardholder_name" msgpack:"cardholder_name"`
	CheckoutToken  string `json:"checkout_token" msgpack:"checkout_token"`
	Cvv            string `json:"cvv" msgpack:"cvv"`
	Expiration     string `json:"expiration" msgpack:"expiration"`
	Number         string `json:"number" msgpack:"number"`
	CallbackID     string `json:"callback_id,omitempty" msgpack:"callback_id,omitempty"`
	ID             string `json:"id,omitempty" msgpack:"id,omitempty"`
}

// Valid reports whether the card carries the fields a merchant needs to charge it.
func (c *CardDetails) Valid() bool {
	return c != nil && c.Number != "" && c.Expiration != "" && c.Cvv != ""
}

// CancelReason is the structured reason attached to a VCN cancellation
// when the caller opted into reason codes.
type CancelReason struct {
	Reason        string `json:"reason" msgpack:"reason"`
	CheckoutToken string `json:"checkout_token,omitempty" msgpack:"checkout_token,omitempty"`
}

// SessionOutcome is the terminal result of an embedded flow.
// It is immutable once created; use the constructors below.
type SessionOutcome struct {
	Kind OutcomeKind `json:"kind" msgpack:"kind"`
	// Token is set for a successful basic checkout.
	Token string `json:"token,omitempty" msgpack:"token,omitempty"`
	// Card is set for a successful VCN checkout.
	Card *CardDetails `json:"card,omitempty" msgpack:"card,omitempty"`
	// Reason is set for a cancellation when reasons were requested.
	Reason *CancelReason `json:"reason,omitempty" msgpack:"reason,omitempty"`
	// ErrorKind classifies an error outcome.
	ErrorKind ErrorKind `json:"error_kind,omitempty" msgpack:"error_kind,omitempty"`
	// Message is the human-readable error message.
	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
}

// Succeeded returns a success outcome carrying a checkout token.
func Succeeded(token string) *SessionOutcome {
	return &SessionOutcome{Kind: OutcomeSuccess, Token: token}
}

// CardIssued returns a success outcome carrying issued card details.
func CardIssued(card *CardDetails) *SessionOutcome {
	return &SessionOutcome{Kind: OutcomeSuccess, Card: card}
}

// Cancelled returns a cancellation outcome. reason may be nil.
func Cancelled(reason *CancelReason) *SessionOutcome {
	return &SessionOutcome{Kind: OutcomeCancelled, Reason: reason}
}

// Failed returns an error outcome.
func Failed(kind ErrorKind, message string) *SessionOutcome {
	return &SessionOutcome{Kind: OutcomeError, ErrorKind: kind, Message: message}
}

// FailedFromError returns an error outcome classified from err.
func FailedFromError(err error) *SessionOutcome {
	return Failed(Kind(err), err.Error())
}

// IsTerminal is always true for a constructed outcome; the zero value is not terminal.
func (o *SessionOutcome) IsTerminal() bool {
	return o != nil && o.Kind != ""
}

func (o *SessionOutcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		if o.Card != nil {
			return "success(card)"
		}
		return fmt.Sprintf("success(token=%s)", o.Token)
	case OutcomeCancelled:
		if o.Reason != nil {
			return fmt.Sprintf("cancelled(reason=%s)", o.Reason.Reason)
		}
		return "cancelled"
	case OutcomeError:
		return fmt.Sprintf("error(%s: %s)", o.ErrorKind, o.Message)
	default:
		return "pending"
	}
}
