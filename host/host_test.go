package host

import (
	"errors"
	"testing"
)

func TestLoadError(t *testing.T) {
	dns := errors.New("no such host")
	tests := []struct {
		name string
		err  *LoadError
		want string
	}{
		{"status", &LoadError{URL: "https://x/a", StatusCode: 502}, "loading https://x/a: HTTP 502"},
		{"cause", &LoadError{URL: "https://x/a", Err: dns}, "loading https://x/a: no such host"},
		{"bare", &LoadError{URL: "https://x/a"}, "loading https://x/a failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if !errors.Is(&LoadError{Err: dns}, dns) {
		t.Error("LoadError does not unwrap its cause")
	}
}

func TestDecisionString(t *testing.T) {
	if Proceed.String() != "proceed" || Handled.String() != "handled" {
		t.Errorf("got %q/%q", Proceed, Handled)
	}
}
