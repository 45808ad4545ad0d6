// Package config provides configuration for the sync pipeline.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigurationError reports a missing or invalid required setting. It is the
// only run-fatal error class: the run aborts before any network activity.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Setting, e.Reason)
}

// Config holds everything a sync run needs.
type Config struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	DatabaseURL string        `mapstructure:"database_url"`

	Congress           int      `mapstructure:"congress"`             // target congress number, e.g. 119
	BillTypes          []string `mapstructure:"bill_types"`           // empty means all types
	CurrentMembersOnly bool     `mapstructure:"current_members_only"` // restrict member sync to sitting members

	BatchSize       int           `mapstructure:"batch_size"`       // fan-out width and transaction size
	PageSize        int           `mapstructure:"page_size"`        // upstream page size
	FreshnessWindow time.Duration `mapstructure:"freshness_window"` // watermark staleness cutoff
	PageDelay       time.Duration `mapstructure:"page_delay"`       // pacing between requests
	RetryAttempts   int           `mapstructure:"retry_attempts"`   // page-level 429 retries
	RetryDelay      time.Duration `mapstructure:"retry_delay"`      // delay between page-level retries
	CooldownPeriod  time.Duration `mapstructure:"cooldown_period"`  // batch-wide throttle pause
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`

	MetricsAddr string `mapstructure:"metrics_addr"` // exposition listener, empty disables
}

// Default returns a configuration with sensible defaults. The API key,
// database URL and target congress have no defaults and must be supplied.
func Default() *Config {
	return &Config{
		BaseURL:            "https://api.congress.gov/v3",
		CurrentMembersOnly: true,
		BatchSize:          20,
		PageSize:           250,
		FreshnessWindow:    7 * 24 * time.Hour,
		PageDelay:          time.Second,
		RetryAttempts:      3,
		RetryDelay:         5 * time.Second,
		CooldownPeriod:     time.Hour,
		RequestTimeout:     30 * time.Second,
	}
}

// Load reads configuration from the environment (CONGRESS_ prefix) and an
// optional config file, layered over the defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	defaults := Default()
	// Keys must be registered for AutomaticEnv to surface them in Unmarshal.
	v.SetDefault("api_key", "")
	v.SetDefault("database_url", "")
	v.SetDefault("congress", 0)
	v.SetDefault("bill_types", []string{})
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("current_members_only", defaults.CurrentMembersOnly)
	v.SetDefault("batch_size", defaults.BatchSize)
	v.SetDefault("page_size", defaults.PageSize)
	v.SetDefault("freshness_window", defaults.FreshnessWindow)
	v.SetDefault("page_delay", defaults.PageDelay)
	v.SetDefault("retry_attempts", defaults.RetryAttempts)
	v.SetDefault("retry_delay", defaults.RetryDelay)
	v.SetDefault("cooldown_period", defaults.CooldownPeriod)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("metrics_addr", "")

	v.SetEnvPrefix("CONGRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a run. Violations are
// ConfigurationErrors and abort before any network activity.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigurationError{Setting: "api_key", Reason: "is required"}
	}
	if c.DatabaseURL == "" {
		return &ConfigurationError{Setting: "database_url", Reason: "is required"}
	}
	if c.Congress <= 0 {
		return &ConfigurationError{Setting: "congress", Reason: "must be a positive congress number"}
	}
	if c.BatchSize < 1 {
		return &ConfigurationError{Setting: "batch_size", Reason: "must be at least 1"}
	}
	if c.PageSize < 1 || c.PageSize > 250 {
		return &ConfigurationError{Setting: "page_size", Reason: "must be between 1 and 250"}
	}
	if c.FreshnessWindow <= 0 {
		return &ConfigurationError{Setting: "freshness_window", Reason: "must be positive"}
	}
	if c.PageDelay <= 0 {
		return &ConfigurationError{Setting: "page_delay", Reason: "must be positive"}
	}
	if c.RetryAttempts < 0 {
		return &ConfigurationError{Setting: "retry_attempts", Reason: "cannot be negative"}
	}
	if c.CooldownPeriod <= 0 {
		return &ConfigurationError{Setting: "cooldown_period", Reason: "must be positive"}
	}
	for _, t := range c.BillTypes {
		if !validBillTypes[strings.ToLower(t)] {
			return &ConfigurationError{Setting: "bill_types", Reason: fmt.Sprintf("unknown bill type %q", t)}
		}
	}
	return nil
}

var validBillTypes = map[string]bool{
	"hr": true, "s": true,
	"hjres": true, "sjres": true,
	"hconres": true, "sconres": true,
	"hres": true, "sres": true,
}
