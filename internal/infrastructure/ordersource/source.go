// Package ordersource fetches pending orders from an HTTP endpoint.
package ordersource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/erp/crmsync/internal/domain/integration"
)

// maxResponseSize is the maximum allowed order document size (1MB)
const maxResponseSize = 1 * 1024 * 1024

// DefaultTimeoutSeconds is the HTTP timeout used when none is configured
const DefaultTimeoutSeconds = 30

// ErrConfigInvalidURL indicates a missing or relative order source url
var ErrConfigInvalidURL = errors.New("ordersource: url must be an absolute http(s) url")

// Config holds configuration for the order source endpoint
type Config struct {
	URL            string
	TimeoutSeconds int
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if c.URL == "" || err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrConfigInvalidURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return nil
}

// HTTPSource implements integration.OrderSource over a plain GET endpoint
type HTTPSource struct {
	config     *Config
	httpClient *http.Client
}

var _ integration.OrderSource = (*HTTPSource)(nil)

// NewHTTPSource creates a new HTTPSource. hc may be nil.
func NewHTTPSource(config *Config, hc *http.Client) (*HTTPSource, error) {
	if config == nil {
		return nil, integration.ErrOrderSourceNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderSourceNotConfigured, err)
	}
	if hc == nil {
		hc = &http.Client{
			Timeout:   time.Duration(config.TimeoutSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &HTTPSource{config: config, httpClient: hc}, nil
}

// FetchOrder downloads and validates one order document.
// A malformed document is returned as *integration.ValidationError.
func (s *HTTPSource) FetchOrder(ctx context.Context) (*integration.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("ordersource: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrOrderSourceUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrOrderSourceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 || resp.StatusCode == http.StatusNoContent {
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrOrderSourceInvalidResponse, resp.StatusCode)
	}

	return integration.DecodeOrder(body)
}
