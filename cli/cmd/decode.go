package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/embedpay/bridge"
	"github.com/pithecene-io/embedpay/cli/render"
	"github.com/pithecene-io/embedpay/cli/sim"
	"github.com/pithecene-io/embedpay/cli/tui"
	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/ipc"
	"github.com/pithecene-io/embedpay/metrics"
	"github.com/pithecene-io/embedpay/types"
)

// DecodeCommand returns the decode command.
// It reads result frames and reports the merchant callback each one
// reaches, the way a host screen would route it.
func DecodeCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "in",
			Aliases: []string{"i"},
			Usage:   "Frame file to read, - for stdin",
			Value:   "-",
		},
		ConfigFlag,
		ReceiveReasonsFlag,
	}
	return &cli.Command{
		Name:   "decode",
		Usage:  "Decode result envelope frames into callbacks",
		Flags:  append(flags, ReadOnlyFlags()...),
		Action: decodeAction,
	}
}

func decodeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	codes, reasons, err := decodeSettings(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitUsage)
	}

	in, err := openInput(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer in.Close()

	collector := metrics.NewCollector("", "")
	b := bridge.New(codes, reasons, bridge.WithMetrics(collector))
	frames, err := decodeFrames(in, b, collector)
	if err != nil {
		return cli.Exit(fmt.Sprintf("decode: %v", err), exitFlowError)
	}
	if skipped := collector.Snapshot().FrameDecodeErrors; skipped > 0 {
		fmt.Fprintf(c.App.ErrWriter, "warning: skipped %d undecodable frame(s)\n", skipped)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectFrames, frames)
	}
	return r.Render(frames)
}

// decodeSettings reads request codes and the reason setting from --config
// when given. Decoding needs no public key.
func decodeSettings(c *cli.Context) (types.RequestCodes, bool, error) {
	var cfg config.Config
	if path := c.String("config"); path != "" {
		read, err := config.Read(path)
		if err != nil {
			return types.RequestCodes{}, false, err
		}
		cfg = *read
	}
	if c.IsSet("receive-reasons") {
		cfg.ReceiveReasonCodes = c.Bool("receive-reasons")
	}
	codes := cfg.RequestCodes.WithDefaults()
	if !codes.Distinct() {
		return types.RequestCodes{}, false, fmt.Errorf("request codes must be distinct: %+v", codes)
	}
	return codes, cfg.ReceiveReasonCodes, nil
}

func openInput(c *cli.Context) (io.ReadCloser, error) {
	path := c.String("in")
	if path == "-" {
		reader := c.App.Reader
		if reader == nil {
			reader = os.Stdin
		}
		return io.NopCloser(reader), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", path, err)
	}
	return f, nil
}

// decodeFrames reads frames until EOF. Frames whose framing is intact but
// whose payload cannot be decoded are counted and skipped; a broken
// stream stops decoding.
func decodeFrames(in io.Reader, b *bridge.Bridge, collector *metrics.Collector) ([]sim.Frame, error) {
	dec := ipc.NewFrameDecoder(in)
	frames := []sim.Frame{}
	for index := 1; ; index++ {
		env, err := dec.ReadEnvelope()
		switch {
		case errors.Is(err, io.EOF):
			return frames, nil
		case ipc.IsFatalFrameError(err):
			return frames, fmt.Errorf("frame %d: %w", index, err)
		case err != nil:
			collector.IncFrameDecodeErrors()
			continue
		}
		frames = append(frames, sim.DecodeFrame(b, index, env))
	}
}
