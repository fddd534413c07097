package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromDefaults(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFromDefaults(t)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3003, cfg.Server.Port)
	assert.Equal(t, "erp", cfg.Data.Source)
	assert.Equal(t, "http://localhost:3001/api/v1", cfg.ERP.ServiceURL)
	assert.Equal(t, 180, cfg.ERP.HistoryDays)
	assert.Equal(t, 30, cfg.Forecast.DefaultHorizon)
	assert.Equal(t, 90, cfg.Forecast.MaxHorizon)
	assert.Equal(t, 5, cfg.Forecast.MinDataPoints)
	assert.Equal(t, 0.8, cfg.Forecast.BaseConfidence)
	assert.Equal(t, 0.01, cfg.Forecast.ConfidenceDecay)
	assert.False(t, cfg.InsightAI.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("FORECAST_DEFAULT_HORIZON", "45")
	t.Setenv("ENVIRONMENT", "Production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Forecast.DefaultHorizon)
	assert.Equal(t, "production", cfg.Environment, "environment is normalized to lowercase")
}

func TestLoadInsightAPIKeyFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("INSIGHT_AI_API_KEY", "secret-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.InsightAI.APIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Data: DataConfig{Source: "erp"},
			Forecast: ForecastConfig{
				DefaultHorizon: 30,
				MaxHorizon:     90,
				BaseConfidence: 0.8,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"postgres source", func(c *Config) { c.Data.Source = "postgres" }, false},
		{"bad source", func(c *Config) { c.Data.Source = "csv" }, true},
		{"default horizon above max", func(c *Config) { c.Forecast.DefaultHorizon = 120 }, true},
		{"zero default horizon", func(c *Config) { c.Forecast.DefaultHorizon = 0 }, true},
		{"base confidence above one", func(c *Config) { c.Forecast.BaseConfidence = 1.5 }, true},
		{"bad cache ttl", func(c *Config) { c.Cache.TTL = "five minutes" }, true},
		{"augmentation without url", func(c *Config) { c.InsightAI.Enabled = true }, true},
		{
			"augmentation with url",
			func(c *Config) {
				c.InsightAI.Enabled = true
				c.InsightAI.ServiceURL = "http://localhost:9000"
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCacheTTL(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL(), "empty TTL uses default")

	cfg.Cache.TTL = "90s"
	assert.Equal(t, 90*time.Second, cfg.CacheTTL())

	cfg.Cache.TTL = "garbage"
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL(), "unparseable TTL falls back to default")
}
