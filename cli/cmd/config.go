package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/embedpay/cli/render"
	"github.com/pithecene-io/embedpay/config"
)

// Exit codes shared by all commands.
const (
	exitSuccess = 0
	// exitFlowError: the session ended with an error outcome.
	exitFlowError = 1
	// exitCancelled: the session was cancelled or closed.
	exitCancelled = 2
	// exitUsage: bad flags or configuration.
	exitUsage = 3
)

// loadConfig builds the configuration from --config (if any) with the
// command-line overrides applied on top, then validates it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		read, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = read
	}

	if c.IsSet("public-key") {
		cfg.PublicKey = c.String("public-key")
	}
	if c.IsSet("environment") {
		env, err := config.ParseEnvironment(strings.ToLower(c.String("environment")))
		if err != nil {
			return nil, err
		}
		cfg.Environment = env
	}
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("receive-reasons") {
		cfg.ReceiveReasonCodes = c.Bool("receive-reasons")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigView is the rendered form of a configuration. The public key is
// shortened and adapter headers are reduced to their names.
type ConfigView struct {
	PublicKey          string   `json:"public_key" yaml:"public_key"`
	Environment        string   `json:"environment" yaml:"environment"`
	MerchantName       string   `json:"merchant_name,omitempty" yaml:"merchant_name,omitempty"`
	APIBaseURL         string   `json:"api_base_url" yaml:"api_base_url"`
	CheckoutCode       int      `json:"checkout_request_code" yaml:"checkout_request_code"`
	VcnCheckoutCode    int      `json:"vcn_checkout_request_code" yaml:"vcn_checkout_request_code"`
	PrequalCode        int      `json:"prequal_request_code" yaml:"prequal_request_code"`
	ReceiveReasonCodes bool     `json:"receive_reason_codes" yaml:"receive_reason_codes"`
	LogLevel           string   `json:"log_level" yaml:"log_level"`
	Workers            int      `json:"workers" yaml:"workers"`
	HTTPTimeout        string   `json:"http_timeout" yaml:"http_timeout"`
	TrackTimeout       string   `json:"track_timeout" yaml:"track_timeout"`
	Adapter            string   `json:"adapter,omitempty" yaml:"adapter,omitempty"`
	AdapterTarget      string   `json:"adapter_target,omitempty" yaml:"adapter_target,omitempty"`
	AdapterHeaders     []string `json:"adapter_headers,omitempty" yaml:"adapter_headers,omitempty"`
}

// NewConfigView summarizes cfg for display.
func NewConfigView(cfg *config.Config) ConfigView {
	v := ConfigView{
		PublicKey:          redactKey(cfg.PublicKey),
		Environment:        string(cfg.Environment),
		MerchantName:       cfg.MerchantName,
		APIBaseURL:         cfg.APIBaseURL(),
		CheckoutCode:       cfg.RequestCodes.Checkout,
		VcnCheckoutCode:    cfg.RequestCodes.VcnCheckout,
		PrequalCode:        cfg.RequestCodes.Prequal,
		ReceiveReasonCodes: cfg.ReceiveReasonCodes,
		LogLevel:           cfg.LogLevel,
		Workers:            cfg.Workers,
		HTTPTimeout:        cfg.HTTPTimeout.String(),
		TrackTimeout:       cfg.TrackTimeout.String(),
		Adapter:            cfg.Adapter.Type,
	}
	switch cfg.Adapter.Type {
	case "kafka":
		v.AdapterTarget = strings.Join(cfg.Adapter.Brokers, ",")
	case "":
	default:
		v.AdapterTarget = cfg.Adapter.URL
	}
	for name := range cfg.Adapter.Headers {
		v.AdapterHeaders = append(v.AdapterHeaders, name)
	}
	sort.Strings(v.AdapterHeaders)
	return v
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// ConfigCommand returns the config command with subcommands.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Validate and show the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check a configuration and exit non-zero if it is invalid",
				Flags:  append(ConfigFlags(), ReadOnlyFlags()...),
				Action: configValidateAction,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration after defaults and overrides",
				Flags:  append(ConfigFlags(), ReadOnlyFlags()...),
				Action: configShowAction,
			},
		},
	}
}

// ValidateResponse is the response for config validate.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Source   string   `json:"source"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func configValidateAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for config command", exitUsage)
	}

	resp := ValidateResponse{Valid: true, Source: c.String("config")}
	if resp.Source == "" {
		resp.Source = "flags"
	}
	cfg, err := loadConfig(c)
	if err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	} else {
		for _, name := range cfg.Unresolved {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("${%s} is unset", name))
		}
	}
	if err := r.Render(resp); err != nil {
		return err
	}
	if !resp.Valid {
		return cli.Exit("", exitUsage)
	}
	return nil
}

func configShowAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for config command", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitUsage)
	}
	return r.Render(NewConfigView(cfg))
}
