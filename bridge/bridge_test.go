package bridge

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/types"
)

// recorder implements every callback interface and records invocations.
type recorder struct {
	calls   []string
	token   string
	card    types.CardDetails
	reason  types.CancelReason
	message string
}

func (r *recorder) OnCheckoutSuccess(token string) {
	r.calls = append(r.calls, "checkout_success")
	r.token = token
}
func (r *recorder) OnCheckoutCancelled() { r.calls = append(r.calls, "checkout_cancelled") }
func (r *recorder) OnCheckoutError(message string) {
	r.calls = append(r.calls, "checkout_error")
	r.message = message
}
func (r *recorder) OnVcnCheckoutSuccess(card types.CardDetails) {
	r.calls = append(r.calls, "vcn_success")
	r.card = card
}
func (r *recorder) OnVcnCheckoutCancelled() { r.calls = append(r.calls, "vcn_cancelled") }
func (r *recorder) OnVcnCheckoutCancelledReason(reason types.CancelReason) {
	r.calls = append(r.calls, "vcn_cancelled_reason")
	r.reason = reason
}
func (r *recorder) OnVcnCheckoutError(message string) {
	r.calls = append(r.calls, "vcn_error")
	r.message = message
}
func (r *recorder) OnPrequalError(message string) {
	r.calls = append(r.calls, "prequal_error")
	r.message = message
}
func (r *recorder) OnPrequalClosed() { r.calls = append(r.calls, "prequal_closed") }

var testCard = types.CardDetails{
	CardholderName: "Ada Lovelace",
	CheckoutToken:  "tok-1",
	Cvv:            "123",
	Expiration:     "1230",
	Number:         "4111111111111111",
}

func TestEncode_PayloadKeys(t *testing.T) {
	b := New(types.RequestCodes{}, true)

	tests := []struct {
		name     string
		outcome  *types.SessionOutcome
		kind     types.FlowKind
		wantCode types.ResultCode
		wantKeys []string
		wantRQ   int
	}{
		{"checkout success", types.Succeeded("abc"), types.FlowCheckout, types.ResultOK, []string{types.KeyCheckoutToken}, 8076},
		{"vcn success", types.CardIssued(&testCard), types.FlowVcnCheckout, types.ResultOK, []string{types.KeyCreditDetails}, 8077},
		{"checkout cancelled", types.Cancelled(nil), types.FlowCheckout, types.ResultCanceled, nil, 8076},
		{"vcn cancelled", types.Cancelled(nil), types.FlowVcnCheckout, types.ResultCanceled, []string{types.KeyVcnReason}, 8077},
		{"error", types.Failed(types.ErrorNetwork, "connection failed"), types.FlowCheckout, types.ResultError, []string{types.KeyCheckoutError}, 8076},
		{"prequal closed", types.Cancelled(nil), types.FlowPrequal, types.ResultCanceled, nil, 8078},
		{"modal uses prequal code", types.Cancelled(nil), types.FlowModal, types.ResultCanceled, nil, 8078},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := b.Encode(tt.outcome, tt.kind)
			if env.ResultCode != tt.wantCode {
				t.Errorf("ResultCode = %v, want %v", env.ResultCode, tt.wantCode)
			}
			if env.RequestCode != tt.wantRQ {
				t.Errorf("RequestCode = %d, want %d", env.RequestCode, tt.wantRQ)
			}
			if len(env.Payload) != len(tt.wantKeys) {
				t.Fatalf("Payload = %v, want keys %v", env.Payload, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				if _, ok := env.Payload[k]; !ok {
					t.Errorf("Payload missing %q", k)
				}
			}
		})
	}
}

func TestEncode_SynthesizesCancelReason(t *testing.T) {
	b := New(types.RequestCodes{}, true)
	env := b.Encode(types.Cancelled(nil), types.FlowVcnCheckout)

	reason, ok := env.Payload[types.KeyVcnReason].(types.CancelReason)
	if !ok || reason.Reason != "canceled" {
		t.Errorf("vcn_reason = %#v, want canceled", env.Payload[types.KeyVcnReason])
	}

	off := New(types.RequestCodes{}, false).Encode(types.Cancelled(nil), types.FlowVcnCheckout)
	if len(off.Payload) != 0 {
		t.Errorf("reasons disabled but payload = %v", off.Payload)
	}
}

func TestRoundTrip_CheckoutToken(t *testing.T) {
	b := New(types.RequestCodes{}, false)
	env := b.Encode(types.Succeeded("abc123"), types.FlowCheckout)

	var rec recorder
	if !b.DecodeCheckout(&rec, env.RequestCode, env.ResultCode, env) {
		t.Fatal("DecodeCheckout did not recognize its own request code")
	}
	if len(rec.calls) != 1 || rec.calls[0] != "checkout_success" {
		t.Fatalf("calls = %v", rec.calls)
	}
	if rec.token != "abc123" {
		t.Errorf("token = %q, want abc123", rec.token)
	}
}

func TestRoundTrip_ThroughMsgpack(t *testing.T) {
	b := New(types.RequestCodes{}, true)

	vcn := b.Encode(types.CardIssued(&testCard), types.FlowVcnCheckout)
	reason := b.Encode(types.Cancelled(&types.CancelReason{Reason: "declined"}), types.FlowVcnCheckout)

	for _, env := range []*types.ResultEnvelope{vcn, reason} {
		raw, err := msgpack.Marshal(env)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var decoded types.ResultEnvelope
		if err := msgpack.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}

		var rec recorder
		if !b.DecodeVcnCheckout(&rec, decoded.RequestCode, decoded.ResultCode, &decoded) {
			t.Fatal("not recognized")
		}
		switch decoded.ResultCode {
		case types.ResultOK:
			if rec.card != testCard {
				t.Errorf("card = %+v, want %+v", rec.card, testCard)
			}
		case types.ResultCanceled:
			if rec.reason.Reason != "declined" {
				t.Errorf("reason = %+v, want declined", rec.reason)
			}
		}
	}
}

func TestDecode_IsolatedByRequestCode(t *testing.T) {
	c := metrics.NewCollector("sandbox", "")
	b := New(types.RequestCodes{Checkout: 100, VcnCheckout: 101, Prequal: 102}, true, WithMetrics(c))
	env := &types.ResultEnvelope{Payload: map[string]any{types.KeyCheckoutToken: "t"}}

	var rec recorder
	for _, rq := range []int{0, 8076, 101, 102, 9999} {
		if b.DecodeCheckout(&rec, rq, types.ResultOK, env) {
			t.Errorf("DecodeCheckout recognized foreign code %d", rq)
		}
	}
	for _, rq := range []int{100, 102} {
		if b.DecodeVcnCheckout(&rec, rq, types.ResultOK, env) {
			t.Errorf("DecodeVcnCheckout recognized foreign code %d", rq)
		}
	}
	if b.DecodePrequal(&rec, 100, types.ResultError, env) {
		t.Error("DecodePrequal recognized checkout code")
	}

	if len(rec.calls) != 0 {
		t.Errorf("callbacks invoked for foreign codes: %v", rec.calls)
	}
	if s := c.Snapshot(); s.EnvelopesIgnored != 8 || s.EnvelopesDecoded != 0 {
		t.Errorf("ignored=%d decoded=%d, want 8/0", s.EnvelopesIgnored, s.EnvelopesDecoded)
	}
}

func TestDecode_ContractViolations(t *testing.T) {
	b := New(types.RequestCodes{}, false)

	tests := []struct {
		name     string
		decode   func(r *recorder) bool
		wantCall string
		wantMsg  string
	}{
		{
			name: "ok without token",
			decode: func(r *recorder) bool {
				return b.DecodeCheckout(r, 8076, types.ResultOK, &types.ResultEnvelope{})
			},
			wantCall: "checkout_error",
			wantMsg:  GenericErrorMessage,
		},
		{
			name: "error without message",
			decode: func(r *recorder) bool {
				return b.DecodeCheckout(r, 8076, types.ResultError, nil)
			},
			wantCall: "checkout_error",
			wantMsg:  GenericErrorMessage,
		},
		{
			name: "unknown result code",
			decode: func(r *recorder) bool {
				return b.DecodeCheckout(r, 8076, types.ResultCode(42), &types.ResultEnvelope{})
			},
			wantCall: "checkout_error",
			wantMsg:  GenericErrorMessage,
		},
		{
			name: "vcn ok without card",
			decode: func(r *recorder) bool {
				env := &types.ResultEnvelope{Payload: map[string]any{types.KeyCreditDetails: "garbage"}}
				return b.DecodeVcnCheckout(r, 8077, types.ResultOK, env)
			},
			wantCall: "vcn_error",
			wantMsg:  GenericErrorMessage,
		},
		{
			name: "error with message",
			decode: func(r *recorder) bool {
				env := &types.ResultEnvelope{Payload: map[string]any{types.KeyCheckoutError: "connection failed"}}
				return b.DecodeCheckout(r, 8076, types.ResultError, env)
			},
			wantCall: "checkout_error",
			wantMsg:  "connection failed",
		},
		{
			name: "prequal error",
			decode: func(r *recorder) bool {
				env := &types.ResultEnvelope{Payload: map[string]any{types.KeyCheckoutError: "bad amount"}}
				return b.DecodePrequal(r, 8078, types.ResultError, env)
			},
			wantCall: "prequal_error",
			wantMsg:  "bad amount",
		},
		{
			name: "prequal closed",
			decode: func(r *recorder) bool {
				return b.DecodePrequal(r, 8078, types.ResultOK, nil)
			},
			wantCall: "prequal_closed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec recorder
			if !tt.decode(&rec) {
				t.Fatal("not recognized")
			}
			if len(rec.calls) != 1 || rec.calls[0] != tt.wantCall {
				t.Fatalf("calls = %v, want [%s]", rec.calls, tt.wantCall)
			}
			if rec.message != tt.wantMsg {
				t.Errorf("message = %q, want %q", rec.message, tt.wantMsg)
			}
		})
	}
}

func TestDecodeVcn_CancelVariants(t *testing.T) {
	var rec recorder
	New(types.RequestCodes{}, false).DecodeVcnCheckout(&rec, 8077, types.ResultCanceled, nil)
	if len(rec.calls) != 1 || rec.calls[0] != "vcn_cancelled" {
		t.Errorf("reasons off: calls = %v", rec.calls)
	}

	rec = recorder{}
	New(types.RequestCodes{}, true).DecodeVcnCheckout(&rec, 8077, types.ResultCanceled, nil)
	if len(rec.calls) != 1 || rec.calls[0] != "vcn_cancelled_reason" || rec.reason.Reason != "canceled" {
		t.Errorf("reasons on, no payload: calls = %v reason = %+v", rec.calls, rec.reason)
	}
}

func TestDispatch(t *testing.T) {
	b := New(types.RequestCodes{}, false)
	var checkout, prequal recorder
	handlers := []Handler{b.CheckoutHandler(&checkout), b.PrequalHandler(&prequal)}

	env := b.Encode(types.Cancelled(nil), types.FlowPrequal)
	if !Dispatch(env.RequestCode, env.ResultCode, env, handlers...) {
		t.Fatal("Dispatch did not find prequal handler")
	}
	if len(checkout.calls) != 0 {
		t.Errorf("checkout handler invoked: %v", checkout.calls)
	}
	if len(prequal.calls) != 1 || prequal.calls[0] != "prequal_closed" {
		t.Errorf("prequal calls = %v", prequal.calls)
	}

	if Dispatch(1234, types.ResultOK, env, handlers...) {
		t.Error("Dispatch recognized unknown request code")
	}
}
