package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.APIKey = "test-key"
	cfg.DatabaseURL = "postgres://localhost/congress"
	cfg.Congress = 119
	return cfg
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://api.congress.gov/v3", cfg.BaseURL)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 250, cfg.PageSize)
	assert.Equal(t, 7*24*time.Hour, cfg.FreshnessWindow)
	assert.Equal(t, time.Second, cfg.PageDelay)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Hour, cfg.CooldownPeriod)
	assert.True(t, cfg.CurrentMembersOnly)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONGRESS_API_KEY", "env-key")
	t.Setenv("CONGRESS_DATABASE_URL", "postgres://env/db")
	t.Setenv("CONGRESS_CONGRESS", "118")
	t.Setenv("CONGRESS_BATCH_SIZE", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, 118, cfg.Congress)
	assert.Equal(t, 5, cfg.BatchSize)
	// untouched defaults survive the env layer
	assert.Equal(t, 250, cfg.PageSize)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		setting string
	}{
		{"missing api key", func(c *Config) { c.APIKey = "" }, "api_key"},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, "database_url"},
		{"zero congress", func(c *Config) { c.Congress = 0 }, "congress"},
		{"negative congress", func(c *Config) { c.Congress = -5 }, "congress"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"oversized page", func(c *Config) { c.PageSize = 500 }, "page_size"},
		{"zero freshness window", func(c *Config) { c.FreshnessWindow = 0 }, "freshness_window"},
		{"zero page delay", func(c *Config) { c.PageDelay = 0 }, "page_delay"},
		{"negative retries", func(c *Config) { c.RetryAttempts = -1 }, "retry_attempts"},
		{"zero cooldown", func(c *Config) { c.CooldownPeriod = 0 }, "cooldown_period"},
		{"bogus bill type", func(c *Config) { c.BillTypes = []string{"hr", "xyz"} }, "bill_types"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.setting, cfgErr.Setting)
		})
	}
}

func TestValidateAcceptsKnownBillTypes(t *testing.T) {
	cfg := validConfig()
	cfg.BillTypes = []string{"hr", "S", "hjres", "sres"}
	assert.NoError(t, cfg.Validate())
}
