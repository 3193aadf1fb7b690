package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/embedpay/checkout"
	"github.com/pithecene-io/embedpay/cli/render"
	"github.com/pithecene-io/embedpay/cli/sim"
	"github.com/pithecene-io/embedpay/cli/tui"
	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/ipc"
	"github.com/pithecene-io/embedpay/sdk"
	"github.com/pithecene-io/embedpay/task"
	"github.com/pithecene-io/embedpay/types"
)

// SimulateCommand returns the simulate command.
// It runs one embedded flow against a terminal surface, either scripted
// with --step or interactively with --tui.
func SimulateCommand() *cli.Command {
	flags := append(ConfigFlags(),
		&cli.StringFlag{
			Name:  "flow",
			Usage: "checkout, vcn_checkout, prequal or modal",
			Value: string(types.FlowCheckout),
		},
		&cli.StringFlag{
			Name:  "order",
			Usage: "Path to a checkout order JSON document (default: a sample order)",
		},
		&cli.Float64Flag{
			Name:  "amount",
			Usage: "Amount in dollars for prequal and product modal flows",
			Value: 500,
		},
		&cli.StringFlag{
			Name:  "promo-id",
			Usage: "Promo id for the prequal flow",
		},
		&cli.StringFlag{
			Name:  "page-type",
			Usage: "Page type for the prequal flow",
		},
		&cli.StringFlag{
			Name:  "modal-type",
			Usage: "site or product",
			Value: string(host.ModalSite),
		},
		&cli.StringFlag{
			Name:  "modal-id",
			Usage: "Modal id for the modal flow",
		},
		&cli.StringSliceFlag{
			Name:  "step",
			Usage: "Scripted surface event, repeatable: confirm[:token], card:<json>, cancel[:reason], close, navigate:<url>, error[:message], dismiss",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Checkout token sent when confirming in --tui mode",
			Value: "sim-token",
		},
		&cli.BoolFlag{
			Name:  "live",
			Usage: "Create checkouts against the remote service instead of answering locally",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Maximum time for a scripted simulation",
			Value: 30 * time.Second,
		},
		&cli.StringFlag{
			Name:  "frame-out",
			Usage: "Append the result envelope as a frame to this file (see decode)",
		},
	)
	flags = append(flags, ReadOnlyFlags()...)

	return &cli.Command{
		Name:   "simulate",
		Usage:  "Run an embedded flow against a scripted or interactive terminal surface",
		Flags:  flags,
		Action: simulateAction,
	}
}

func simulateAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	interactive := c.Bool("tui")
	steps, err := sim.ParseSteps(c.StringSlice("step"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid --step: %v", err), exitUsage)
	}
	switch {
	case interactive && len(steps) > 0:
		return cli.Exit("--step cannot be combined with --tui", exitUsage)
	case !interactive && len(steps) == 0:
		return cli.Exit("at least one --step is required without --tui", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitUsage)
	}
	req, err := flowRequest(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if !interactive {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Duration("timeout"))
		defer cancel()
	}

	loop := task.NewLoop(0)
	go func() { _ = loop.Run(ctx) }()
	defer loop.Stop()

	driver := sim.NewDriver(loop)
	opts := []sdk.Option{
		sdk.WithDispatcher(loop),
		sdk.WithCompletionObserver(driver.Observe),
	}
	if !c.Bool("live") {
		opts = append(opts, sdk.WithHTTPClient((&sim.OfflineTransport{}).Client()))
	}
	s := sdk.New(opts...)
	if _, err := s.Initialize(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("initialize: %v", err), exitUsage)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}()

	sink := host.ResultSinkFunc(func(*types.ResultEnvelope) {})
	err = driver.Open(ctx, func(surface host.Surface) (*checkout.Session, error) {
		return s.NewFlowSession(req, surface, sink)
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("open %s flow: %v", req.Kind, err), exitUsage)
	}

	summarize := func() (sim.Result, bool) {
		completion, ok := driver.Completion()
		if !ok {
			return sim.Result{}, false
		}
		b, err := s.Bridge()
		if err != nil {
			return sim.Result{}, false
		}
		return sim.NewResult(b, completion, driver.Steps(), driver.Surface().Events()), true
	}

	if interactive {
		if _, _, err := tui.RunSimulate(ctx, tui.Simulation{
			Driver:  driver,
			Token:   c.String("token"),
			Result:  summarize,
			Metrics: s.Metrics,
		}); err != nil {
			return err
		}
	} else if err := driver.Run(ctx, steps); err != nil {
		return cli.Exit(fmt.Sprintf("simulation failed: %v", err), exitFlowError)
	}

	completion, ok := driver.Completion()
	if !ok {
		// Interactive session quit before the flow finished.
		return nil
	}
	if path := c.String("frame-out"); path != "" {
		if err := appendFrame(path, completion.Envelope); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}

	if !interactive {
		res, _ := summarize()
		if err := r.Render(res); err != nil {
			return err
		}
	}
	return cli.Exit("", outcomeExitCode(completion.Outcome))
}

// flowRequest builds the flow request from flags.
func flowRequest(c *cli.Context) (host.FlowRequest, error) {
	req := host.FlowRequest{
		Kind:     types.FlowKind(strings.ToLower(c.String("flow"))),
		Amount:   c.Float64("amount"),
		PromoID:  c.String("promo-id"),
		PageType: types.PageType(c.String("page-type")),
		ModalID:  c.String("modal-id"),
	}

	switch req.Kind {
	case types.FlowCheckout, types.FlowVcnCheckout:
		order, err := loadOrder(c.String("order"))
		if err != nil {
			return host.FlowRequest{}, err
		}
		req.Checkout = order
		req.UseVCN = req.Kind == types.FlowVcnCheckout
	case types.FlowPrequal:
	case types.FlowModal:
		switch mt := host.ModalType(strings.ToLower(c.String("modal-type"))); mt {
		case host.ModalSite, host.ModalProduct:
			req.ModalType = mt
		default:
			return host.FlowRequest{}, fmt.Errorf("invalid --modal-type %q (must be site or product)", c.String("modal-type"))
		}
	default:
		return host.FlowRequest{}, fmt.Errorf("invalid --flow %q (must be checkout, vcn_checkout, prequal or modal)", c.String("flow"))
	}
	return req, nil
}

// loadOrder reads an order document, or returns the sample order for "".
func loadOrder(path string) (*types.Checkout, error) {
	if path == "" {
		return sampleOrder(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read order %q: %w", path, err)
	}
	var order types.Checkout
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("invalid order JSON in %s: %w", path, err)
	}
	return &order, nil
}

func sampleOrder() *types.Checkout {
	return &types.Checkout{
		OrderID:  "sim-order-1",
		Currency: "USD",
		Items: map[string]types.Item{
			"wheel": {
				DisplayName: "Great Deal Wheel",
				SKU:         "wheel",
				UnitPrice:   100000,
				Qty:         1,
				ItemURL:     "https://merchant.example/wheel",
			},
		},
		ShippingAmount: 0,
		TaxAmount:      10000,
		Total:          110000,
	}
}

// appendFrame appends env to path as a length-prefixed frame.
func appendFrame(path string, env *types.ResultEnvelope) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if err := ipc.NewFrameEncoder(f).WriteEnvelope(env); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func outcomeExitCode(o *types.SessionOutcome) int {
	if o == nil {
		return exitFlowError
	}
	switch o.Kind {
	case types.OutcomeSuccess:
		return exitSuccess
	case types.OutcomeCancelled:
		return exitCancelled
	default:
		return exitFlowError
	}
}
