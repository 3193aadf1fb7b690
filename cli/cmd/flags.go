// Package cmd provides CLI commands for the embedpay binary.
package cmd

import (
	"github.com/urfave/cli/v2"
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (simulate, decode only)",
	}
)

// Configuration flags. Every value can come from the environment, so a
// .env file loaded with --env-file is enough to run the CLI.
var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to YAML config file",
		EnvVars: []string{"EMBEDPAY_CONFIG"},
	}

	PublicKeyFlag = &cli.StringFlag{
		Name:    "public-key",
		Usage:   "Merchant public API key (overrides config)",
		EnvVars: []string{"EMBEDPAY_PUBLIC_KEY"},
	}

	EnvironmentFlag = &cli.StringFlag{
		Name:    "environment",
		Aliases: []string{"env"},
		Usage:   "sandbox or production (overrides config)",
		EnvVars: []string{"EMBEDPAY_ENVIRONMENT"},
	}

	BaseURLFlag = &cli.StringFlag{
		Name:    "base-url",
		Usage:   "API origin override, e.g. a local proxy",
		EnvVars: []string{"EMBEDPAY_BASE_URL"},
	}

	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "debug, info, warn, error or none (overrides config)",
		EnvVars: []string{"EMBEDPAY_LOG_LEVEL"},
	}

	ReceiveReasonsFlag = &cli.BoolFlag{
		Name:    "receive-reasons",
		Usage:   "Report structured cancel reasons for card-issuing checkouts",
		EnvVars: []string{"EMBEDPAY_RECEIVE_REASON_CODES"},
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// ConfigFlags returns the flags that build a configuration.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		PublicKeyFlag,
		EnvironmentFlag,
		BaseURLFlag,
		LogLevelFlag,
		ReceiveReasonsFlag,
	}
}
