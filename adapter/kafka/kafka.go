// Package kafka publishes session completion events to a Kafka topic.
//
// Messages are keyed by session id so every event of a session lands on
// the same partition. Temporary broker errors are retried with exponential
// backoff; other Kafka protocol errors fail immediately.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/pithecene-io/embedpay/adapter"
)

// DefaultTopic is the default topic name.
const DefaultTopic = "embedpay.session_completed"

// DefaultTimeout is the default per-write timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Kafka adapter.
type Config struct {
	// Brokers are the bootstrap broker addresses (required).
	Brokers []string
	// Topic is the destination topic.
	Topic string
	// Timeout is the per-write timeout.
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// writer is the subset of *kafkago.Writer the adapter uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Adapter publishes session completion events to Kafka.
type Adapter struct {
	config Config
	w      writer
}

// New creates a Kafka adapter. Returns an error if no broker is given.
func New(cfg Config) (*Adapter, error) {
	cfg, err := withDefaults(cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		config: cfg,
		w: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  1,
			WriteTimeout: cfg.Timeout,
		},
	}, nil
}

func withDefaults(cfg Config) (Config, error) {
	if len(cfg.Brokers) == 0 {
		return cfg, errors.New("kafka adapter requires at least one broker")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return cfg, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	return cfg, nil
}

// Publish writes the event as one JSON message.
func (a *Adapter) Publish(ctx context.Context, event *adapter.SessionCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(event.SessionID),
		Value: body,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(adapter.EventType)},
			{Key: "contract_version", Value: []byte(event.ContractVersion)},
		},
	}

	attempts, err := adapter.Retry(ctx, a.config.Retries, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return a.w.WriteMessages(ctx, msg)
	}, permanent)
	if err != nil {
		return fmt.Errorf("kafka: failed after %d attempts: %w", attempts, err)
	}
	return nil
}

// permanent reports Kafka protocol errors the broker marks as non-temporary.
func permanent(err error) bool {
	var kerr kafkago.Error
	return errors.As(err, &kerr) && !kerr.Temporary()
}

// Close flushes pending writes and closes broker connections.
func (a *Adapter) Close() error {
	return a.w.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
