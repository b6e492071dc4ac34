package bitrix

import (
	"errors"
	"net/url"
	"strings"
)

const (
	// DefaultTimeoutSeconds is the HTTP timeout used when none is configured
	DefaultTimeoutSeconds = 30
	// PageSize is the fixed page size of Bitrix24 list methods
	PageSize = 50
)

// Errors for Bitrix24 configuration
var (
	ErrConfigMissingWebhookURL = errors.New("bitrix: webhook url is required")
	ErrConfigInvalidWebhookURL = errors.New("bitrix: webhook url must be an absolute http(s) url")
)

// Config holds configuration for a Bitrix24 inbound webhook
type Config struct {
	// WebhookURL is the inbound webhook base, e.g. https://example.bitrix24.ru/rest/1/secret
	WebhookURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewConfig creates a new Bitrix24 configuration with defaults
func NewConfig(webhookURL string) *Config {
	return &Config{
		WebhookURL:     webhookURL,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	c.WebhookURL = strings.TrimRight(strings.TrimSpace(c.WebhookURL), "/")
	if c.WebhookURL == "" {
		return ErrConfigMissingWebhookURL
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrConfigInvalidWebhookURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return nil
}

// MethodURL returns the endpoint of a REST method
func (c *Config) MethodURL(method string) string {
	return c.WebhookURL + "/" + method + ".json"
}
