package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/erp/crmsync/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Bitrix24 API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client talks to a Bitrix24 portal through an inbound webhook.
// It implements every CRM port of the integration domain.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

var (
	_ integration.DealSyncCRM  = (*Client)(nil)
	_ integration.UserFieldCRM = (*Client)(nil)
	_ integration.CurrencyCRM  = (*Client)(nil)
)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default traced HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for per-call debug output
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Bitrix24 client with the given configuration
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, integration.ErrCRMNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrCRMNotConfigured, err)
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   time.Duration(config.TimeoutSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call invokes a REST method and returns the decoded envelope.
// Error envelopes and HTTP failures are returned as errors.
func (c *Client) Call(ctx context.Context, method string, params any) (*Response, error) {
	start := time.Now()
	resp, err := c.doRequest(ctx, method, params)
	c.logger.Debug("Bitrix24 call",
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil),
	)
	return resp, err
}

// callInto invokes a method and decodes its result into out
func (c *Client) callInto(ctx context.Context, method string, params any, out any) error {
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%w: %s result: %v", integration.ErrCRMInvalidResponse, method, err)
	}
	return nil
}

// listAll walks every page of a list method, following "next" until it is absent
func listAll[T any](ctx context.Context, c *Client, method string, params map[string]any) ([]T, error) {
	var all []T
	start := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := make(map[string]any, len(params)+1)
		for k, v := range params {
			page[k] = v
		}
		page["start"] = start

		resp, err := c.Call(ctx, method, page)
		if err != nil {
			return nil, err
		}

		var items []T
		if err := json.Unmarshal(resp.Result, &items); err != nil {
			return nil, fmt.Errorf("%w: %s result: %v", integration.ErrCRMInvalidResponse, method, err)
		}
		all = append(all, items...)

		if resp.Next == nil {
			return all, nil
		}
		if *resp.Next <= start {
			return nil, fmt.Errorf("%w: %s next %d does not advance past %d",
				integration.ErrCRMInvalidResponse, method, *resp.Next, start)
		}
		start = *resp.Next
	}
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request to the Bitrix24 REST API
func (c *Client) doRequest(ctx context.Context, method string, params any) (*Response, error) {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to encode %s params: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.MethodURL(method), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", integration.ErrCRMUnavailable, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %v", integration.ErrCRMUnavailable, method, err)
	}

	var envelope Response
	decodeErr := json.Unmarshal(body, &envelope)

	if decodeErr == nil && !envelope.IsSuccess() {
		return nil, &integration.CRMError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			Code:        envelope.Error,
			Description: envelope.ErrorDescription,
		}
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", integration.ErrCRMUnavailable, method, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, &integration.CRMError{Method: method, StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", integration.ErrCRMInvalidResponse, method, decodeErr)
	}
	return &envelope, nil
}
