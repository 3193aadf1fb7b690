// Package api is the HTTP client for the remote financing service: it
// creates checkout sessions and fetches promotional messaging.
//
// Requests carry a fresh X-Affirm-Request-Id and run through an otelhttp
// transport so callers with a tracer provider get client spans for free.
// Failures are wrapped in types.ErrNetwork; callers never see a partial result.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/iox"
	"github.com/pithecene-io/embedpay/log"
	"github.com/pithecene-io/embedpay/navigation"
	"github.com/pithecene-io/embedpay/types"
)

// Paths and headers of the remote service.
const (
	CheckoutPath    = "/api/v2/checkout/"
	PromoPath       = "/api/promos/v2/"
	PrequalPath     = "/apps/prequal"
	RequestIDHeader = "X-Affirm-Request-Id"
	contentType     = "application/json; charset=utf-8"
	tracerName      = "github.com/pithecene-io/embedpay/api"
	maxErrorBody    = 4 << 10
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
	// Message is the service's error message, if it sent one.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Client talks to the remote service for one configuration.
type Client struct {
	cfg    *config.Config
	http   *http.Client
	tracer trace.Tracer
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTracerProvider sets the provider for request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) { cl.tracer = tp.Tracer(tracerName) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for cfg.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.HTTPTimeout.Duration,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tracer: otel.Tracer(tracerName),
		logger: log.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type merchant struct {
	PublicAPIKey       string `json:"public_api_key"`
	ConfirmationURL    string `json:"user_confirmation_url"`
	CancelURL          string `json:"user_cancel_url"`
	ConfirmationAction string `json:"user_confirmation_url_action,omitempty"`
	UseVCN             bool   `json:"use_vcn"`
	Name               string `json:"name,omitempty"`
}

type checkoutRequest struct {
	*types.Checkout
	Merchant merchant       `json:"merchant"`
	Metadata map[string]any `json:"metadata"`
	APIVer   string         `json:"api_version"`
}

// CreateCheckout registers order with the service and returns the handle
// whose RedirectURL starts the embedded flow.
func (c *Client) CreateCheckout(ctx context.Context, order *types.Checkout, useVCN bool) (*types.CheckoutHandle, error) {
	if order == nil {
		return nil, types.ErrNilOrder
	}
	ctx, span := c.tracer.Start(ctx, "checkout.create", trace.WithAttributes(
		attribute.Bool("checkout.use_vcn", useVCN),
		attribute.String("checkout.order_id", order.OrderID),
	))
	defer span.End()

	metadata := make(map[string]any, len(order.Metadata)+2)
	for k, v := range order.Metadata {
		metadata[k] = v
	}
	metadata["platform_type"] = types.SDKName
	metadata["platform_version"] = types.Version

	body := checkoutRequest{
		Checkout: order,
		Merchant: merchant{
			PublicAPIKey:       c.cfg.PublicKey,
			ConfirmationURL:    navigation.ConfirmURL,
			CancelURL:          navigation.CancelURL,
			ConfirmationAction: "GET",
			UseVCN:             useVCN,
			Name:               c.cfg.MerchantName,
		},
		Metadata: metadata,
		APIVer:   "v2",
	}

	var handle types.CheckoutHandle
	if err := c.do(ctx, http.MethodPost, c.cfg.APIBaseURL()+CheckoutPath, body, &handle); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: create checkout: %w", types.ErrNetwork, err)
	}
	if handle.RedirectURL == "" {
		err := fmt.Errorf("%w: create checkout: response has no redirect_url", types.ErrNetwork)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("checkout.id", handle.CheckoutID))
	return &handle, nil
}

type promoResponse struct {
	Promo struct {
		Ala     string `json:"ala"`
		HTMLAla string `json:"html_ala"`
		Config  struct {
			PromoPrequalEnabled bool `json:"promo_prequal_enabled"`
		} `json:"config"`
	} `json:"promo"`
}

// PromoURL returns the promo endpoint for req.
func (c *Client) PromoURL(req types.PromoRequest) string {
	q := url.Values{}
	q.Set("is_sdk", "true")
	q.Set("field", "ala")
	q.Set("amount", strconv.FormatInt(req.AmountCents(), 10))
	q.Set("show_cta", strconv.FormatBool(req.ShowCTA))
	if req.PromoID != "" {
		q.Set("promo_external_id", req.PromoID)
	}
	if req.PageType != "" {
		q.Set("page_type", string(req.PageType))
	}
	return c.cfg.APIBaseURL() + PromoPath + url.PathEscape(c.cfg.PublicKey) + "?" + q.Encode()
}

// FetchPromo fetches the promotional message for req. The returned route
// tells a click handler which flow to open.
func (c *Client) FetchPromo(ctx context.Context, req types.PromoRequest) (*types.PromoContent, error) {
	ctx, span := c.tracer.Start(ctx, "promo.fetch", trace.WithAttributes(
		attribute.Int64("promo.amount_cents", req.AmountCents()),
		attribute.String("promo.page_type", string(req.PageType)),
	))
	defer span.End()

	var resp promoResponse
	if err := c.do(ctx, http.MethodGet, c.PromoURL(req), nil, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: fetch promo: %w", types.ErrNetwork, err)
	}
	if resp.Promo.Ala == "" && resp.Promo.HTMLAla == "" {
		err := fmt.Errorf("%w: fetch promo: empty promo", types.ErrNetwork)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	content := &types.PromoContent{Text: resp.Promo.Ala, HTML: resp.Promo.HTMLAla, Route: types.RouteModal}
	if resp.Promo.Config.PromoPrequalEnabled {
		content.Route = types.RoutePrequal
	}
	span.SetAttributes(attribute.String("promo.route", content.Route.String()))
	return content, nil
}

// PrequalURL returns the static entry URL of the prequal flow.
func (c *Client) PrequalURL(amount float64, promoID string, pageType types.PageType) string {
	q := url.Values{}
	q.Set("public_api_key", c.cfg.PublicKey)
	q.Set("unit_price", strconv.FormatInt(types.PromoRequest{Amount: amount}.AmountCents(), 10))
	q.Set("promo_external_id", promoID)
	q.Set("isSDK", "true")
	q.Set("use_promo", "True")
	q.Set("referring_url", navigation.ReferringURL)
	if pageType != "" {
		q.Set("page_type", string(pageType))
	}
	return c.cfg.APIBaseURL() + PrequalPath + "?" + q.Encode()
}

// do performs one request; no retries. out is decoded from a 2xx JSON body.
func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", contentType)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", map[string]any{"request_id": requestID, "method": method, "error": err.Error()})
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DrainClose(resp.Body)

	c.logger.Debug("request completed", map[string]any{
		"request_id":  requestID,
		"method":      method,
		"status":      resp.StatusCode,
		"duration_ms": c.now().Sub(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw := iox.ReadLimited(resp.Body, maxErrorBody)
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)
	return &StatusError{Code: resp.StatusCode, Message: payload.Message}
}
