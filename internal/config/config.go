// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Validation errors wrap this package's sentinel errors.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// BaseURL is the roster service root, e.g. "https://host/api".
	BaseURL string `koanf:"base_url"`

	// APIKey is sent in the x-api-key header on every request.
	APIKey string `koanf:"api_key"`

	// PageLimit is the page size requested from GET /patients.
	PageLimit int `koanf:"page_limit"`

	// MaxPages caps how many pages one run may request.
	MaxPages int `koanf:"max_pages"`

	// MaxAttempts bounds attempts per request, first try included.
	MaxAttempts int `koanf:"max_attempts"`

	// RetryBaseDelayMS and RetryMaxJitterMS shape the exponential backoff.
	RetryBaseDelayMS int `koanf:"retry_base_delay_ms"`
	RetryMaxJitterMS int `koanf:"retry_max_jitter_ms"`

	// RequestTimeoutMS bounds a single HTTP attempt.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// PushgatewayURL enables pushing run metrics when non-empty. Metrics are
	// not recorded without it.
	PushgatewayURL string `koanf:"pushgateway_url"`

	// MetricsLabels are constant labels attached to every pushed metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// DryRun computes and logs the buckets without submitting them.
	DryRun bool `koanf:"dry_run"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		BaseURL:          "https://assessment.ksensetech.com/api",
		PageLimit:        5,
		MaxPages:         1000,
		MaxAttempts:      5,
		RetryBaseDelayMS: 1000,
		RetryMaxJitterMS: 500,
		RequestTimeoutMS: 30_000,
	}
}

// RetryBaseDelay returns RetryBaseDelayMS as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// RetryMaxJitter returns RetryMaxJitterMS as a duration.
func (c *Config) RetryMaxJitter() time.Duration {
	return time.Duration(c.RetryMaxJitterMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
