// Package adapter defines the boundary for publishing finished sessions to
// downstream systems.
//
// Publication is telemetry: it runs off the dispatcher goroutine, never
// blocks a flow and never changes the envelope a host receives. Card
// details are never published.
package adapter

import (
	"context"
	"time"
)

// EventType is the event_type of every SessionCompletedEvent.
const EventType = "session_completed"

// SessionCompletedEvent is the payload published when a session reaches a
// terminal outcome.
type SessionCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "session_completed"
	SessionID       string `json:"session_id"`
	Flow            string `json:"flow"`
	Environment     string `json:"environment"`
	Outcome         string `json:"outcome"` // success, cancelled, error
	ErrorKind       string `json:"error_kind,omitempty"`
	Message         string `json:"message,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CheckoutToken   string `json:"checkout_token,omitempty"`
	RequestCode     int    `json:"request_code"`
	ResultCode      string `json:"result_code"`
	Timestamp       string `json:"timestamp"` // RFC 3339
	DurationMs      int64  `json:"duration_ms"`
}

// Adapter publishes session completion events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *SessionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff returns the delay before retry attempt i (i >= 1).
func Backoff(i int) time.Duration {
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. It stops early when ctx ends or fatal reports the error as
// non-retriable.
func Retry(ctx context.Context, retries int, fn func(ctx context.Context) error, fatal func(error) bool) (attempts int, err error) {
	for i := range 1 + retries {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-time.After(Backoff(i)):
			}
		}

		err = fn(ctx)
		if err == nil {
			return i + 1, nil
		}
		if fatal != nil && fatal(err) {
			return i + 1, &FatalError{Err: err}
		}
	}
	return 1 + retries, err
}

// FatalError wraps an error that stopped Retry before exhausting attempts.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "non-retriable error: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }
