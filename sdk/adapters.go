package sdk

import (
	"fmt"
	"time"

	"github.com/pithecene-io/embedpay/adapter"
	"github.com/pithecene-io/embedpay/adapter/kafka"
	"github.com/pithecene-io/embedpay/adapter/redis"
	"github.com/pithecene-io/embedpay/adapter/webhook"
	"github.com/pithecene-io/embedpay/checkout"
	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/types"
)

// NewAdapter builds the adapter selected by cfg. An empty type returns nil.
func NewAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	var (
		a   adapter.Adapter
		err error
	)
	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		a, err = webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries(cfg, webhook.DefaultRetries),
		})
	case "redis":
		a, err = redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: retries(cfg, redis.DefaultRetries),
		})
	case "kafka":
		a, err = kafka.New(kafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			Timeout: cfg.Timeout.Duration,
			Retries: retries(cfg, kafka.DefaultRetries),
		})
	default:
		return nil, fmt.Errorf("%w: unknown adapter type %q", types.ErrInvalidConfig, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s adapter: %w", types.ErrInvalidConfig, cfg.Type, err)
	}
	return a, nil
}

func retries(cfg config.AdapterConfig, def int) int {
	if cfg.Retries != nil {
		return *cfg.Retries
	}
	return def
}

// Event converts a completion into the published event. Card details are
// never included.
func Event(cfg *config.Config, c checkout.Completion, now time.Time) *adapter.SessionCompletedEvent {
	ev := &adapter.SessionCompletedEvent{
		ContractVersion: types.Version,
		EventType:       adapter.EventType,
		SessionID:       c.SessionID,
		Flow:            string(c.Flow),
		Environment:     string(cfg.Environment),
		Timestamp:       now.UTC().Format(time.RFC3339),
		DurationMs:      c.Duration.Milliseconds(),
	}
	if c.Envelope != nil {
		ev.RequestCode = c.Envelope.RequestCode
		ev.ResultCode = c.Envelope.ResultCode.String()
	}
	if o := c.Outcome; o != nil {
		ev.Outcome = string(o.Kind)
		ev.CheckoutToken = o.Token
		if o.Card != nil {
			ev.CheckoutToken = o.Card.CheckoutToken
		}
		if o.Reason != nil {
			ev.CancelReason = o.Reason.Reason
		}
		ev.ErrorKind = string(o.ErrorKind)
		ev.Message = o.Message
	}
	return ev
}
