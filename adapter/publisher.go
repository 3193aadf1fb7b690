package adapter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/metrics"
)

// DefaultPublishTimeout bounds one asynchronous publish, retries included.
const DefaultPublishTimeout = 30 * time.Second

// Publisher publishes events asynchronously. A nil Publisher discards
// events, so callers need not check whether an adapter is configured.
type Publisher struct {
	adapter Adapter
	timeout time.Duration
	logger  *log.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPublisher wraps a. timeout <= 0 selects DefaultPublishTimeout.
func NewPublisher(a Adapter, timeout time.Duration, logger *log.Logger, m *metrics.Collector) *Publisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Publisher{
		adapter: a,
		timeout: timeout,
		logger:  logger.With(map[string]any{"component": "publisher"}),
		metrics: m,
	}
}

// Publish sends event in the background. Events published after Close are dropped.
func (p *Publisher) Publish(event *SessionCompletedEvent) {
	if p == nil || event == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("publisher closed, dropping event", map[string]any{"session_id": event.SessionID})
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.adapter.Publish(ctx, event); err != nil {
			p.metrics.IncPublishFailure()
			p.logger.Error("publish failed", map[string]any{
				"session_id": event.SessionID,
				"error":      err.Error(),
			})
			return
		}
		p.metrics.IncPublishSuccess()
		p.logger.Debug("published", map[string]any{"session_id": event.SessionID})
	}()
}

// Close waits for in-flight publishes, or until ctx ends, then closes the adapter.
func (p *Publisher) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}
	return errors.Join(waitErr, p.adapter.Close())
}
