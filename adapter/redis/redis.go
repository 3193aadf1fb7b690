// Package redis publishes session completion events to Redis.
//
// Each event is PUBLISHed as JSON on a channel and, in the same MULTI
// transaction, stored in a hash keyed by session id so a merchant backend
// that missed the message can still look the outcome up until the key
// expires.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/embedpay/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "embedpay:session_completed"

// DefaultKeyPrefix prefixes the per-session hash key.
const DefaultKeyPrefix = "embedpay:session:"

// DefaultTTL is how long a session hash is kept.
const DefaultTTL = 24 * time.Hour

// DefaultTimeout is the default per-attempt timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name.
	Channel string
	// KeyPrefix prefixes the session hash key.
	KeyPrefix string
	// TTL is the session hash lifetime.
	TTL time.Duration
	// Timeout is the per-attempt timeout.
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes session completion events to Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis adapter. Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Key returns the hash key holding the outcome of sessionID.
func (a *Adapter) Key(sessionID string) string {
	return a.config.KeyPrefix + sessionID
}

// Publish stores and publishes the event.
func (a *Adapter) Publish(ctx context.Context, event *adapter.SessionCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	attempts, err := adapter.Retry(ctx, a.config.Retries, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return a.write(ctx, event, body)
	}, nil)
	if err != nil {
		return fmt.Errorf("redis: failed after %d attempts: %w", attempts, err)
	}
	return nil
}

func (a *Adapter) write(ctx context.Context, event *adapter.SessionCompletedEvent, body []byte) error {
	key := a.Key(event.SessionID)
	_, err := a.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"outcome":     event.Outcome,
			"flow":        event.Flow,
			"result_code": event.ResultCode,
			"event":       string(body),
		})
		pipe.Expire(ctx, key, a.config.TTL)
		pipe.Publish(ctx, a.config.Channel, body)
		return nil
	})
	return err
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
