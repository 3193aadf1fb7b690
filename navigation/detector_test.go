package navigation

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/types"
)

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		raw        string
		wantKind   Kind
		wantOutKnd types.OutcomeKind
		wantToken  string
		wantReason string
		wantErrKnd types.ErrorKind
	}{
		{
			name:     "remote page keeps loading",
			opts:     Options{Flow: types.FlowCheckout},
			raw:      "https://sandbox.affirm.com/checkout/abc",
			wantKind: KindLoading,
		},
		{
			name:       "confirmed with token param",
			opts:       Options{Flow: types.FlowCheckout},
			raw:        "affirm://checkout/confirmed?token=abc123",
			wantKind:   KindConfirmed,
			wantOutKnd: types.OutcomeSuccess,
			wantToken:  "abc123",
		},
		{
			name:       "confirmed with upper-case scheme and host",
			opts:       Options{Flow: types.FlowCheckout},
			raw:        "AFFIRM://Checkout/confirmed?token=x",
			wantKind:   KindConfirmed,
			wantOutKnd: types.OutcomeSuccess,
			wantToken:  "x",
		},
		{
			name:       "path compares exactly",
			opts:       Options{Flow: types.FlowCheckout},
			raw:        "affirm://checkout/CONFIRMED?token=x",
			wantKind:   KindFailed,
			wantOutKnd: types.OutcomeError,
			wantErrKnd: types.ErrorProtocol,
		},
		{
			name:       "confirmed with checkout_token param",
			opts:       Options{Flow: types.FlowCheckout},
			raw:        "affirm://checkout/confirmed?checkout_token=tok-9&token=ignored",
			wantKind:   KindConfirmed,
			wantOutKnd: types.OutcomeSuccess,
			wantToken:  "tok-9",
		},
		{
			name:       "confirmed without token",
			opts:       Options{Flow: types.FlowCheckout},
			raw:        "affirm://checkout/confirmed",
			wantKind:   KindFailed,
			wantOutKnd: types.OutcomeError,
			wantErrKnd: types.ErrorProtocol,
		},
		{
			name:       "cancelled without reasons",
			opts:       Options{Flow: types.FlowCheckout},
			raw:        "affirm://checkout/cancelled",
			wantKind:   KindCancelled,
			wantOutKnd: types.OutcomeCancelled,
		},
		{
			name:       "cancelled synthesizes reason",
			opts:       Options{Flow: types.FlowVcnCheckout, ReceiveReasons: true},
			raw:        "affirm://checkout/cancelled",
			wantKind:   KindCancelled,
			wantOutKnd: types.OutcomeCancelled,
			wantReason: "canceled",
		},
		{
			name:       "cancelled with reason param",
			opts:       Options{Flow: types.FlowVcnCheckout, ReceiveReasons: true},
			raw:        "affirm://checkout/cancelled?reason=declined",
			wantKind:   KindCancelled,
			wantOutKnd: types.OutcomeCancelled,
			wantReason: "declined",
		},
		{
			name:       "cancelled with reason json",
			opts:       Options{Flow: types.FlowVcnCheckout, ReceiveReasons: true},
			raw:        `affirm://checkout/cancelled?data=%7B%22reason%22%3A%22user_exit%22%7D`,
			wantKind:   KindCancelled,
			wantOutKnd: types.OutcomeCancelled,
			wantReason: "user_exit",
		},
		{
			name:       "unknown terminal scheme url",
			opts:       Options{Flow: types.FlowCheckout},
			raw:        "affirm://checkout/exploded?x=1",
			wantKind:   KindFailed,
			wantOutKnd: types.OutcomeError,
			wantErrKnd: types.ErrorProtocol,
		},
		{
			name:     "confirm prefix is not a match",
			opts:     Options{Flow: types.FlowCheckout},
			raw:      "https://example.com/affirm://checkout/confirmed",
			wantKind: KindLoading,
		},
		{
			name:       "prequal closes on referring url",
			opts:       Options{Flow: types.FlowPrequal},
			raw:        "https://androidsdk/done",
			wantKind:   KindCancelled,
			wantOutKnd: types.OutcomeCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.opts).Classify(tt.raw)

			if c.Kind != tt.wantKind {
				t.Fatalf("Kind = %q, want %q", c.Kind, tt.wantKind)
			}
			if tt.wantKind == KindLoading {
				if c.Decision != host.Proceed || c.Outcome != nil {
					t.Errorf("loading navigation = %+v, want proceed with no outcome", c)
				}
				return
			}
			if c.Decision != host.Handled {
				t.Errorf("Decision = %v, want handled", c.Decision)
			}
			if c.Outcome == nil {
				t.Fatal("terminal classification without outcome")
			}
			if c.Outcome.Kind != tt.wantOutKnd {
				t.Errorf("Outcome.Kind = %q, want %q", c.Outcome.Kind, tt.wantOutKnd)
			}
			if c.Outcome.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", c.Outcome.Token, tt.wantToken)
			}
			if tt.wantReason == "" && c.Outcome.Reason != nil {
				t.Errorf("Reason = %+v, want none", c.Outcome.Reason)
			}
			if tt.wantReason != "" && (c.Outcome.Reason == nil || c.Outcome.Reason.Reason != tt.wantReason) {
				t.Errorf("Reason = %+v, want %q", c.Outcome.Reason, tt.wantReason)
			}
			if c.Outcome.ErrorKind != tt.wantErrKnd {
				t.Errorf("ErrorKind = %q, want %q", c.Outcome.ErrorKind, tt.wantErrKnd)
			}
		})
	}
}

func TestClassify_VcnCardDetails(t *testing.T) {
	d := New(Options{Flow: types.FlowVcnCheckout})
	data := `{"cardholder_name":"Ada","checkout_token":"tok","cvv":"123","expiration":"1230","number":"4111111111111111"}`

	c := d.Classify("affirm://checkout/confirmed?data=" + url.QueryEscape(data))

	if c.Kind != KindConfirmed {
		t.Fatalf("Kind = %q, want confirmed (%+v)", c.Kind, c.Outcome)
	}
	card := c.Outcome.Card
	if card == nil || card.Number != "4111111111111111" || card.CardholderName != "Ada" {
		t.Errorf("Card = %+v", card)
	}
}

func TestClassify_VcnInvalidCard(t *testing.T) {
	for _, raw := range []string{
		"affirm://checkout/confirmed",
		"affirm://checkout/confirmed?data=not-json",
		"affirm://checkout/confirmed?data=" + url.QueryEscape(`{"number":"4111"}`),
	} {
		c := New(Options{Flow: types.FlowVcnCheckout}).Classify(raw)
		if !IsProtocolViolation(c) {
			t.Errorf("Classify(%q) = %+v, want protocol violation", raw, c.Outcome)
		}
	}
}

func TestDetector_AtMostOnce(t *testing.T) {
	d := New(Options{Flow: types.FlowCheckout})

	first := d.Classify("affirm://checkout/confirmed?token=abc123")
	if !first.Terminal() {
		t.Fatal("first confirmation not terminal")
	}

	for _, raw := range []string{
		"affirm://checkout/confirmed?token=abc123",
		"affirm://checkout/cancelled",
		"https://sandbox.affirm.com/anything",
	} {
		c := d.Classify(raw)
		if c.Kind != KindIgnored || c.Outcome != nil || c.Decision != host.Handled {
			t.Errorf("after disarm Classify(%q) = %+v, want ignored", raw, c)
		}
	}
	if c := d.TransportError(errors.New("boom")); c.Outcome != nil {
		t.Errorf("TransportError after disarm produced %v", c.Outcome)
	}
	if d.Armed() {
		t.Error("detector still armed")
	}
}

func TestDetector_TransportError(t *testing.T) {
	d := New(Options{Flow: types.FlowCheckout})
	c := d.TransportError(&host.LoadError{URL: "https://sandbox.affirm.com/x", StatusCode: 503})

	if c.Kind != KindFailed || c.Outcome.ErrorKind != types.ErrorNetwork {
		t.Fatalf("got %+v", c)
	}
	if !strings.Contains(c.Outcome.Message, "HTTP 503") {
		t.Errorf("Message = %q, want status code", c.Outcome.Message)
	}
}

func TestDetector_DisarmSuppressesLaterTerminal(t *testing.T) {
	d := New(Options{Flow: types.FlowCheckout})
	d.Disarm()

	if c := d.Classify("affirm://checkout/cancelled"); c.Terminal() {
		t.Errorf("disarmed detector emitted %v", c.Outcome)
	}
}
