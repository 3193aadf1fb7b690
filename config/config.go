package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pithecene-io/embedpay/types"
)

// Defaults applied by New and Load.
const (
	DefaultWorkers      = 4
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultTrackTimeout = 10 * time.Second
	DefaultLogLevel     = "none"
)

// Config is the library configuration. It is created once at process start
// and never mutated afterwards; components receive it by pointer and treat it
// as read-only. Use Clone to derive a modified copy.
type Config struct {
	PublicKey          string             `yaml:"public_key"`
	Environment        Environment        `yaml:"environment"`
	MerchantName       string             `yaml:"merchant_name"`
	RequestCodes       types.RequestCodes `yaml:"request_codes"`
	ReceiveReasonCodes bool               `yaml:"receive_reason_codes"`
	LogLevel           string             `yaml:"log_level"`
	// Workers bounds the background fetch pool.
	Workers      int      `yaml:"workers"`
	HTTPTimeout  Duration `yaml:"http_timeout"`
	TrackTimeout Duration `yaml:"track_timeout"`
	// BaseURL overrides the environment's API origin (scheme included).
	// Intended for proxies and tests.
	BaseURL string        `yaml:"base_url"`
	Adapter AdapterConfig `yaml:"adapter"`

	// Unresolved lists ${VAR} references in the source file that
	// expanded to "" with no fallback. Set by Read.
	Unresolved []string `yaml:"-"`
}

// AdapterConfig selects where completed sessions are published.
// An empty Type disables publication.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Topic   string            `yaml:"topic,omitempty"`
	Brokers []string          `yaml:"brokers,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}

// Option customizes a Config built by New.
type Option func(*Config)

// WithEnvironment selects sandbox or production.
func WithEnvironment(env Environment) Option {
	return func(c *Config) { c.Environment = env }
}

// WithMerchantName sets the partnership name shown in the flow.
func WithMerchantName(name string) Option {
	return func(c *Config) { c.MerchantName = name }
}

// WithCheckoutRequestCode overrides the checkout request code.
func WithCheckoutRequestCode(code int) Option {
	return func(c *Config) { c.RequestCodes.Checkout = code }
}

// WithVcnCheckoutRequestCode overrides the VCN checkout request code.
func WithVcnCheckoutRequestCode(code int) Option {
	return func(c *Config) { c.RequestCodes.VcnCheckout = code }
}

// WithPrequalRequestCode overrides the prequalification request code.
func WithPrequalRequestCode(code int) Option {
	return func(c *Config) { c.RequestCodes.Prequal = code }
}

// WithReceiveReasonCodes opts into structured VCN cancellation reasons.
func WithReceiveReasonCodes(enabled bool) Option {
	return func(c *Config) { c.ReceiveReasonCodes = enabled }
}

// WithLogLevel sets the log level: debug, info, warn, error or none.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithWorkers bounds the background fetch pool.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithBaseURL overrides the API origin.
func WithBaseURL(u string) Option {
	return func(c *Config) { c.BaseURL = u }
}

// WithTrackTimeout overrides the order-tracking display timeout.
func WithTrackTimeout(d time.Duration) Option {
	return func(c *Config) { c.TrackTimeout = Duration{d} }
}

// WithAdapter configures outcome publication.
func WithAdapter(a AdapterConfig) Option {
	return func(c *Config) { c.Adapter = a }
}

// New builds a validated Config for publicKey.
func New(publicKey string, opts ...Option) (*Config, error) {
	cfg := &Config{PublicKey: publicKey}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = Production
	}
	c.RequestCodes = c.RequestCodes.WithDefaults()
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.HTTPTimeout.Duration <= 0 {
		c.HTTPTimeout = Duration{DefaultHTTPTimeout}
	}
	if c.TrackTimeout.Duration <= 0 {
		c.TrackTimeout = Duration{DefaultTrackTimeout}
	}
}

// Validate reports every configuration error, joined and wrapped in
// types.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.PublicKey) == "" {
		errs = append(errs, errors.New("public key cannot be empty"))
	}
	if _, err := ParseEnvironment(string(c.Environment)); err != nil {
		errs = append(errs, err)
	}
	if !c.RequestCodes.WithDefaults().Distinct() {
		errs = append(errs, fmt.Errorf("request codes must be distinct: %+v", c.RequestCodes))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error", "none":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("%s adapter requires a url", c.Adapter.Type))
		}
	case "kafka":
		if len(c.Adapter.Brokers) == 0 {
			errs = append(errs, errors.New("kafka adapter requires brokers"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown adapter type %q", c.Adapter.Type))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// APIBaseURL returns the API origin, honoring BaseURL.
func (c *Config) APIBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return httpsPrefix + c.Environment.BaseHost()
}

// JSURL returns the full URL of the client script embedded in promo and tracking pages.
func (c *Config) JSURL() string {
	return httpsPrefix + c.Environment.JSHost() + jsPath
}

// TrackerURL returns the order-tracking collection endpoint.
func (c *Config) TrackerURL() string {
	return httpsPrefix + c.Environment.TrackerHost() + trackerPath
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Adapter.Headers != nil {
		cp.Adapter.Headers = make(map[string]string, len(c.Adapter.Headers))
		for k, v := range c.Adapter.Headers {
			cp.Adapter.Headers[k] = v
		}
	}
	if c.Adapter.Brokers != nil {
		cp.Adapter.Brokers = append([]string(nil), c.Adapter.Brokers...)
	}
	if c.Adapter.Retries != nil {
		r := *c.Adapter.Retries
		cp.Adapter.Retries = &r
	}
	return &cp
}
