package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // zone data for minimal containers

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (CRMSYNC_BITRIX_WEBHOOK_URL)
const EnvPrefix = "CRMSYNC"

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	Bitrix      BitrixConfig
	OrderSource OrderSourceConfig
	Feed        FeedConfig
	UserFields  UserFieldsConfig
	Deal        DealConfig
	Redis       RedisConfig
	Server      ServerConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// BitrixConfig holds the CRM inbound webhook settings
type BitrixConfig struct {
	WebhookURL string        // https://<portal>.bitrix24.ru/rest/<user>/<token>
	Timeout    time.Duration // per request
}

// OrderSourceConfig holds the pending order endpoint settings
type OrderSourceConfig struct {
	URL     string
	Timeout time.Duration
}

// FeedConfig holds the central bank rate feed and currency job settings
type FeedConfig struct {
	BaseURL       string
	Currencies    []string
	TargetHour    int           // local hour (0-23) the daily pass runs in
	CheckInterval time.Duration // how often the trigger wakes up
	Timeout       time.Duration
	Location      string // IANA zone the target hour is interpreted in
}

// UserFieldsConfig lists the deal user fields to provision
type UserFieldsConfig struct {
	Names []string
}

// DealConfig holds deal reconciliation settings
type DealConfig struct {
	ProductMergeMode string // union, replace
	PhoneRegion      string
	Location         string // IANA zone of order delivery dates
}

// RedisConfig holds Redis connection settings for the run marker
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         string
	WebhookToken string // optional shared secret for X-Webhook-Token
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodySize  int64
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool    // Whether to enable tracing
	CollectorEndpoint     string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio         float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName           string
	Insecure              bool // Use insecure (non-TLS) connection (development only)
	MetricsEnabled        bool
	MetricsExportInterval time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CRMSYNC_ prefix (e.g., CRMSYNC_BITRIX_WEBHOOK_URL)
// 2. Variables from a .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Bitrix: BitrixConfig{
			WebhookURL: v.GetString("bitrix.webhook_url"),
			Timeout:    v.GetDuration("bitrix.timeout"),
		},
		OrderSource: OrderSourceConfig{
			URL:     v.GetString("order_source.url"),
			Timeout: v.GetDuration("order_source.timeout"),
		},
		Feed: FeedConfig{
			BaseURL:       v.GetString("feed.base_url"),
			Currencies:    splitList(v.GetStringSlice("feed.currencies")),
			TargetHour:    v.GetInt("feed.target_hour"),
			CheckInterval: v.GetDuration("feed.check_interval"),
			Timeout:       v.GetDuration("feed.timeout"),
			Location:      v.GetString("feed.location"),
		},
		UserFields: UserFieldsConfig{
			Names: splitList(v.GetStringSlice("userfields.names")),
		},
		Deal: DealConfig{
			ProductMergeMode: v.GetString("deal.product_merge_mode"),
			PhoneRegion:      v.GetString("deal.phone_region"),
			Location:         v.GetString("deal.location"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			WebhookToken: v.GetString("server.webhook_token"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			MaxBodySize:  v.GetInt64("server.max_body_size"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
		},
	}

	// target_hour 0 is a real hour, so only fill it in when the key is absent
	if !v.IsSet("feed.target_hour") {
		cfg.Feed.TargetHour = DefaultTargetHour
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultTargetHour is the local hour the currency pass runs in
const DefaultTargetHour = 8

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crmsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Bitrix.Timeout == 0 {
		cfg.Bitrix.Timeout = 30 * time.Second
	}
	if cfg.OrderSource.Timeout == 0 {
		cfg.OrderSource.Timeout = 30 * time.Second
	}
	if cfg.Feed.BaseURL == "" {
		cfg.Feed.BaseURL = "https://cbr.ru/scripts/XML_daily.asp"
	}
	if len(cfg.Feed.Currencies) == 0 {
		cfg.Feed.Currencies = []string{"EUR", "USD", "KZT", "PLN"}
	}
	if cfg.Feed.CheckInterval == 0 {
		cfg.Feed.CheckInterval = time.Hour
	}
	if cfg.Feed.Timeout == 0 {
		cfg.Feed.Timeout = 30 * time.Second
	}
	if cfg.Feed.Location == "" {
		cfg.Feed.Location = "Europe/Moscow"
	}
	if len(cfg.UserFields.Names) == 0 {
		cfg.UserFields.Names = []string{"DELIVERY_CODE", "DELIVERY_ADDRESS"}
	}
	if cfg.Deal.ProductMergeMode == "" {
		cfg.Deal.ProductMergeMode = "union"
	}
	if cfg.Deal.PhoneRegion == "" {
		cfg.Deal.PhoneRegion = "RU"
	}
	if cfg.Deal.Location == "" {
		cfg.Deal.Location = cfg.Feed.Location
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// reconciliation makes several sequential CRM calls
		cfg.Server.WriteTimeout = 2 * time.Minute
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Feed.TargetHour < 0 || c.Feed.TargetHour > 23 {
		return fmt.Errorf("feed.target_hour must be between 0 and 23, got %d", c.Feed.TargetHour)
	}
	if c.Feed.CheckInterval < time.Second {
		return fmt.Errorf("feed.check_interval must be at least 1s, got %s", c.Feed.CheckInterval)
	}
	if _, err := time.LoadLocation(c.Feed.Location); err != nil {
		return fmt.Errorf("feed.location: %w", err)
	}
	if _, err := time.LoadLocation(c.Deal.Location); err != nil {
		return fmt.Errorf("deal.location: %w", err)
	}

	switch strings.ToLower(c.Deal.ProductMergeMode) {
	case "union", "replace":
	default:
		return fmt.Errorf("deal.product_merge_mode must be union or replace, got %q", c.Deal.ProductMergeMode)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Bitrix.WebhookURL != "" && !strings.HasPrefix(c.Bitrix.WebhookURL, "https://") {
			return fmt.Errorf("bitrix.webhook_url must use https in production")
		}
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
	}

	return nil
}

// FeedLocation returns the zone the currency target hour is interpreted in
func (c *Config) FeedLocation() *time.Location {
	loc, err := time.LoadLocation(c.Feed.Location)
	if err != nil {
		return time.Local
	}
	return loc
}

// DealLocation returns the zone order delivery dates are interpreted in
func (c *Config) DealLocation() *time.Location {
	loc, err := time.LoadLocation(c.Deal.Location)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr returns the redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// splitList accepts both TOML arrays and comma-separated env values
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
