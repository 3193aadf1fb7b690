// Package types defines core domain types for the embedpay library.
//
//nolint:revive // types is a common Go package naming convention
package types

// FlowKind identifies which embedded flow produced or consumes a result.
type FlowKind string

// Flow kinds.
const (
	FlowCheckout    FlowKind = "checkout"
	FlowVcnCheckout FlowKind = "vcn_checkout"
	FlowPrequal     FlowKind = "prequal"
	FlowModal       FlowKind = "modal"
	FlowTrack       FlowKind = "track"
)

// Default request codes, used when a configuration leaves a code unset.
const (
	DefaultCheckoutRequestCode    = 8076
	DefaultVcnCheckoutRequestCode = 8077
	DefaultPrequalRequestCode     = 8078
)

// RequestCodes holds the caller-chosen request code for each flow that
// returns a result through the host's result channel.
type RequestCodes struct {
	Checkout    int `yaml:"checkout" json:"checkout"`
	VcnCheckout int `yaml:"vcn_checkout" json:"vcn_checkout"`
	Prequal     int `yaml:"prequal" json:"prequal"`
}

// WithDefaults returns a copy with zero codes replaced by the defaults.
func (r RequestCodes) WithDefaults() RequestCodes {
	if r.Checkout == 0 {
		r.Checkout = DefaultCheckoutRequestCode
	}
	if r.VcnCheckout == 0 {
		r.VcnCheckout = DefaultVcnCheckoutRequestCode
	}
	if r.Prequal == 0 {
		r.Prequal = DefaultPrequalRequestCode
	}
	return r
}

// For returns the request code assigned to kind.
// Modal flows share the prequal code; track has none and returns 0.
func (r RequestCodes) For(kind FlowKind) int {
	switch kind {
	case FlowCheckout:
		return r.Checkout
	case FlowVcnCheckout:
		return r.VcnCheckout
	case FlowPrequal, FlowModal:
		return r.Prequal
	default:
		return 0
	}
}

// Distinct reports whether the three codes are pairwise different.
func (r RequestCodes) Distinct() bool {
	return r.Checkout != r.VcnCheckout && r.Checkout != r.Prequal && r.VcnCheckout != r.Prequal
}
