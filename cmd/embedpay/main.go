// Package main provides the embedpay CLI entrypoint.
//
// Usage:
//
//	embedpay <command> [subcommand] [options]
//
// Exit codes for `simulate`:
//   - 0: the session succeeded
//   - 1: the session ended with an error outcome
//   - 2: the session was cancelled or closed
//   - 3: invalid flags or configuration
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/embedpay/cli/cmd"
	"github.com/pithecene-io/embedpay/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// defaultEnvFile is loaded when present and --env-file is not given.
const defaultEnvFile = ".env"

func main() {
	app := &cli.App{
		Name:    "embedpay",
		Usage:   "Embedded financing checkout toolkit",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from these files before running (default: .env if present)",
			},
		},
		Before:         loadEnvFiles,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.SimulateCommand(),
			cmd.DecodeCommand(),
			cmd.ConfigCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// loadEnvFiles loads --env-file files, or .env when it exists. Variables
// already set in the process environment win.
func loadEnvFiles(c *cli.Context) error {
	files := c.StringSlice("env-file")
	if len(files) == 0 {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{defaultEnvFile}
	}
	if err := godotenv.Load(files...); err != nil {
		return cli.Exit(fmt.Sprintf("cannot load env file: %v", err), 3)
	}
	return nil
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
