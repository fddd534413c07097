package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Data        DataConfig      `mapstructure:"data"`
	ERP         ERPConfig       `mapstructure:"erp"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Cache       CacheConfig     `mapstructure:"cache"`
	InsightAI   InsightAIConfig `mapstructure:"insight_ai"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DataConfig selects where historical records come from: the ERP HTTP API
// ("erp") or direct reads against the transactional store ("postgres").
type DataConfig struct {
	Source string `mapstructure:"source"`
}

type ERPConfig struct {
	ServiceURL  string `mapstructure:"service_url"`
	Timeout     int    `mapstructure:"timeout_seconds"`
	HistoryDays int    `mapstructure:"history_days"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     string `mapstructure:"ttl"`
}

type InsightAIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AuthURL    string `mapstructure:"auth_url"`
	ServiceURL string `mapstructure:"service_url"`
	APIKey     string `mapstructure:"api_key" json:"-" yaml:"-"`
	CustomerID string `mapstructure:"customer_id"`
	UserID     string `mapstructure:"user_id"`
	Timeout    int    `mapstructure:"timeout_seconds"`
}

type ForecastConfig struct {
	DefaultHorizon  int     `mapstructure:"default_horizon"`
	MaxHorizon      int     `mapstructure:"max_horizon"`
	MinDataPoints   int     `mapstructure:"min_data_points"`
	BaseConfidence  float64 `mapstructure:"base_confidence"`
	ConfidenceDecay float64 `mapstructure:"confidence_decay"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Exporter     string `mapstructure:"exporter"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	if err := viper.BindEnv("insight_ai.api_key", "INSIGHT_AI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind INSIGHT_AI_API_KEY environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(cfg *Config) error {
	switch cfg.Data.Source {
	case "erp", "postgres":
	default:
		return fmt.Errorf("data source must be \"erp\" or \"postgres\", got %q", cfg.Data.Source)
	}

	if cfg.Forecast.DefaultHorizon < 1 || cfg.Forecast.DefaultHorizon > cfg.Forecast.MaxHorizon {
		return fmt.Errorf("default horizon %d must be between 1 and max horizon %d",
			cfg.Forecast.DefaultHorizon, cfg.Forecast.MaxHorizon)
	}

	if cfg.Forecast.BaseConfidence <= 0 || cfg.Forecast.BaseConfidence > 1 {
		return fmt.Errorf("base confidence must be in (0, 1], got %f", cfg.Forecast.BaseConfidence)
	}

	if cfg.Cache.TTL != "" {
		if _, err := time.ParseDuration(cfg.Cache.TTL); err != nil {
			return fmt.Errorf("invalid cache TTL duration: %w", err)
		}
	}

	if cfg.InsightAI.Enabled && cfg.InsightAI.ServiceURL == "" {
		return fmt.Errorf("insight_ai.service_url is required when insight augmentation is enabled")
	}

	return nil
}

// CacheTTL returns the parsed cache TTL, defaulting to five minutes.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 3003)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Data source
	viper.SetDefault("data.source", "erp")

	// ERP service
	viper.SetDefault("erp.service_url", "http://localhost:3001/api/v1")
	viper.SetDefault("erp.timeout_seconds", 30)
	viper.SetDefault("erp.history_days", 180)

	// Database (used when data.source is "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "foresight")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Response cache
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "5m")

	// Insight augmentation service
	viper.SetDefault("insight_ai.enabled", false)
	viper.SetDefault("insight_ai.auth_url", "")
	viper.SetDefault("insight_ai.service_url", "")
	viper.SetDefault("insight_ai.api_key", "")
	viper.SetDefault("insight_ai.customer_id", "")
	viper.SetDefault("insight_ai.user_id", "")
	viper.SetDefault("insight_ai.timeout_seconds", 30)

	// Forecast parameters
	viper.SetDefault("forecast.default_horizon", 30)
	viper.SetDefault("forecast.max_horizon", 90)
	viper.SetDefault("forecast.min_data_points", 5)
	viper.SetDefault("forecast.base_confidence", 0.8)
	viper.SetDefault("forecast.confidence_decay", 0.01)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "")
}
