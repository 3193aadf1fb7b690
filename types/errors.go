package types

import (
	"context"
	"errors"
)

// ErrorKind classifies errors surfaced by embedded flows.
type ErrorKind string

// Error taxonomy.
const (
	ErrorNetwork       ErrorKind = "network_failure"
	ErrorProtocol      ErrorKind = "protocol_violation"
	ErrorCancellation  ErrorKind = "user_cancellation"
	ErrorTimeout       ErrorKind = "timeout"
	ErrorConfiguration ErrorKind = "configuration"
)

var (
	// ErrNotInitialized is returned when configuration is read before initialization.
	ErrNotInitialized = errors.New("embedpay is not initialized")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrSessionUsed is returned when a single-use session is started twice.
	ErrSessionUsed = errors.New("session already started")
	// ErrClosed is returned by operations on an SDK after Close.
	ErrClosed = errors.New("embedpay is closed")
	// ErrNilOrder is returned when a checkout is started without an order.
	ErrNilOrder = errors.New("checkout cannot be nil")
	// ErrNetwork wraps transport and non-success status failures.
	ErrNetwork = errors.New("network failure")
	// ErrProtocol wraps contract violations by the embedded flow or remote service.
	ErrProtocol = errors.New("protocol violation")
	// ErrTimeout is reported when a flow produced no terminal signal in time.
	ErrTimeout = errors.New("timed out")
)

// Kind classifies err into the error taxonomy.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrSessionUsed), errors.Is(err, ErrNilOrder),
		errors.Is(err, ErrClosed):
		return ErrorConfiguration
	case errors.Is(err, ErrProtocol):
		return ErrorProtocol
	case errors.Is(err, ErrNetwork):
		return ErrorNetwork
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.Is(err, context.Canceled):
		return ErrorCancellation
	default:
		return ErrorNetwork
	}
}
