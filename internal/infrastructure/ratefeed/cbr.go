// Package ratefeed reads official daily exchange rates from the Central Bank of Russia.
package ratefeed

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/text/encoding/charmap"

	"github.com/erp/crmsync/internal/domain/integration"
)

const (
	// DefaultBaseURL is the CBR daily rates endpoint
	DefaultBaseURL = "https://cbr.ru/scripts/XML_daily.asp"
	// DefaultTimeoutSeconds is the HTTP timeout used when none is configured
	DefaultTimeoutSeconds = 30
	// dateReqLayout is the layout of the date_req query parameter
	dateReqLayout = "02/01/2006"
	// maxResponseSize is the maximum allowed feed size (2MB)
	maxResponseSize = 2 * 1024 * 1024
	userAgent       = "crmsync/1.0"
)

// Config holds configuration for the CBR feed
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Validate fills in defaults and checks the base url
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("ratefeed: invalid base url %q", c.BaseURL)
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return nil
}

// valCurs is the root element of the daily rates document
type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	ID       string `xml:"ID,attr"`
	NumCode  string `xml:"NumCode"`
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Name     string `xml:"Name"`
	Value    string `xml:"Value"`
}

// CBRFeed implements integration.RateFeed for cbr.ru
type CBRFeed struct {
	config     *Config
	httpClient *http.Client
}

var _ integration.RateFeed = (*CBRFeed)(nil)

// NewCBRFeed creates a new CBRFeed. hc may be nil.
func NewCBRFeed(config *Config, hc *http.Client) (*CBRFeed, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if hc == nil {
		hc = &http.Client{
			Timeout:   time.Duration(config.TimeoutSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &CBRFeed{config: config, httpClient: hc}, nil
}

// RequestURL returns the feed url for the given date
func (f *CBRFeed) RequestURL(date time.Time) string {
	q := url.Values{}
	q.Set("date_req", date.Format(dateReqLayout))
	sep := "?"
	if strings.Contains(f.config.BaseURL, "?") {
		sep = "&"
	}
	return f.config.BaseURL + sep + q.Encode()
}

// FetchRates returns every rate published for date.
// Entries with an unparsable code or value are skipped.
func (f *CBRFeed) FetchRates(ctx context.Context, date time.Time) ([]integration.CurrencyRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.RequestURL(date), nil)
	if err != nil {
		return nil, fmt.Errorf("ratefeed: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrFeedUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrFeedUnavailable, resp.StatusCode)
	}

	return ParseDaily(body)
}

// ParseDaily decodes a daily rates document. The feed is served as windows-1251.
func ParseDaily(body []byte) ([]integration.CurrencyRate, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charsetReader

	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFeedInvalidResponse, err)
	}

	rates := make([]integration.CurrencyRate, 0, len(doc.Valutes))
	for _, v := range doc.Valutes {
		nominal, err := strconv.ParseInt(strings.TrimSpace(v.Nominal), 10, 64)
		if err != nil {
			nominal = 1
		}
		rate, err := integration.NewCurrencyRate(v.CharCode, v.Value, nominal)
		if err != nil {
			continue
		}
		rates = append(rates, rate)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: no rates in document dated %q", integration.ErrFeedInvalidResponse, doc.Date)
	}
	return rates, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "windows-1251", "cp1251", "win-1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8", "utf8", "":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}
