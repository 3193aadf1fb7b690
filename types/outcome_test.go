package types //nolint:revive // types is a valid package name

import "testing"

func TestSessionOutcome_String(t *testing.T) {
	tests := []struct {
		name    string
		outcome *SessionOutcome
		want    string
	}{
		{"token", Succeeded("abc123"), "success(token=abc123)"},
		{"card", CardIssued(&CardDetails{Number: "4111"}), "success(card)"},
		{"cancelled", Cancelled(nil), "cancelled"},
		{"cancelled with reason", Cancelled(&CancelReason{Reason: DefaultCancelReason}), "cancelled(reason=canceled)"},
		{"error", Failed(ErrorNetwork, "connection failed"), "error(network_failure: connection failed)"},
		{"zero", &SessionOutcome{}, "pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionOutcome_IsTerminal(t *testing.T) {
	var nilOutcome *SessionOutcome
	if nilOutcome.IsTerminal() {
		t.Error("nil outcome must not be terminal")
	}
	if (&SessionOutcome{}).IsTerminal() {
		t.Error("zero outcome must not be terminal")
	}
	if !Cancelled(nil).IsTerminal() {
		t.Error("cancelled outcome must be terminal")
	}
}

func TestCardDetails_Valid(t *testing.T) {
	var nilCard *CardDetails
	if nilCard.Valid() {
		t.Error("nil card must be invalid")
	}
	if (&CardDetails{Number: "4111111111111111"}).Valid() {
		t.Error("card without cvv/expiration must be invalid")
	}
	card := &CardDetails{Number: "4111111111111111", Cvv: "123", Expiration: "1230"}
	if !card.Valid() {
		t.Error("complete card must be valid")
	}
}
