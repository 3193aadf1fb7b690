package config

import (
	"fmt"
	"sync"

	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/types"
)

// Holder owns the process configuration. The first successful Initialize
// wins; later calls are logged and ignored. Reads before initialization
// fail fast with types.ErrNotInitialized.
type Holder struct {
	mu     sync.RWMutex
	cfg    *Config
	logger *log.Logger
}

// NewHolder creates an empty holder. logger may be nil.
func NewHolder(logger *log.Logger) *Holder {
	if logger == nil {
		logger = log.Nop()
	}
	return &Holder{logger: logger}
}

// Initialize stores cfg if the holder is empty.
// Returns true if cfg was applied, false if a configuration was already present.
// A nil or invalid cfg is a programming error and is returned immediately.
func (h *Holder) Initialize(cfg *Config) (bool, error) {
	if cfg == nil {
		return false, fmt.Errorf("%w: configuration cannot be nil", types.ErrInvalidConfig)
	}
	applied := cfg.Clone()
	applied.ApplyDefaults()
	if err := applied.Validate(); err != nil {
		return false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cfg != nil {
		h.logger.Warn("already initialized, ignoring configuration", map[string]any{
			"environment": string(cfg.Environment),
		})
		return false, nil
	}
	h.cfg = applied
	return true, nil
}

// SetLogger replaces the logger later Initialize calls warn on.
func (h *Holder) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = log.Nop()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = logger
}

// Initialized reports whether a configuration is present.
func (h *Holder) Initialized() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg != nil
}

// Get returns the configuration, or types.ErrNotInitialized.
func (h *Holder) Get() (*Config, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cfg == nil {
		return nil, types.ErrNotInitialized
	}
	return h.cfg, nil
}

// MustGet returns the configuration and panics if the holder is empty.
// Reading configuration before initialization is a caller bug.
func (h *Holder) MustGet() *Config {
	cfg, err := h.Get()
	if err != nil {
		panic(err)
	}
	return cfg
}
