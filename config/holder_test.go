package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/types"
)

func TestHolder_GetBeforeInitialize(t *testing.T) {
	h := NewHolder(nil)

	if _, err := h.Get(); !errors.Is(err, types.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if h.Initialized() {
		t.Error("empty holder reports initialized")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustGet on empty holder did not panic")
		}
	}()
	h.MustGet()
}

func TestHolder_FirstInitializeWins(t *testing.T) {
	var buf bytes.Buffer
	h := NewHolder(log.New(log.LevelDebug, &buf))

	first, err := New("pk_first", WithEnvironment(Sandbox))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := New("pk_second")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	applied, err := h.Initialize(first)
	if err != nil || !applied {
		t.Fatalf("first Initialize = (%v, %v), want (true, nil)", applied, err)
	}
	applied, err = h.Initialize(second)
	if err != nil || applied {
		t.Fatalf("second Initialize = (%v, %v), want (false, nil)", applied, err)
	}

	got := h.MustGet()
	if got.PublicKey != "pk_first" {
		t.Errorf("PublicKey = %q, want pk_first", got.PublicKey)
	}
	if !strings.Contains(buf.String(), "already initialized") {
		t.Errorf("expected warning log, got %q", buf.String())
	}
}

func TestHolder_InitializeAppliesDefaults(t *testing.T) {
	h := NewHolder(nil)
	if _, err := h.Initialize(&Config{PublicKey: "pk"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	cfg := h.MustGet()
	if cfg.RequestCodes.Checkout != types.DefaultCheckoutRequestCode {
		t.Errorf("Checkout code = %d, want default", cfg.RequestCodes.Checkout)
	}
	if cfg.Environment != Production {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
}

func TestHolder_InitializeRejectsInvalid(t *testing.T) {
	h := NewHolder(nil)

	if _, err := h.Initialize(nil); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("nil config: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := h.Initialize(&Config{}); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("empty key: expected ErrInvalidConfig, got %v", err)
	}
	if h.Initialized() {
		t.Error("invalid config must not initialize the holder")
	}
}

func TestHolder_StoresCopy(t *testing.T) {
	h := NewHolder(nil)
	cfg, _ := New("pk_original")
	if _, err := h.Initialize(cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	cfg.PublicKey = "pk_mutated"

	if got := h.MustGet().PublicKey; got != "pk_original" {
		t.Errorf("holder config mutated through caller pointer: %q", got)
	}
}
