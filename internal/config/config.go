// Package config provides configuration management for the Dutch Trader application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Betfair  BetfairConfig  `mapstructure:"betfair" validate:"required"`
	Trading  TradingConfig  `mapstructure:"trading" validate:"required"`
	Live     LiveConfig     `mapstructure:"live" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Features FeaturesConfig `mapstructure:"features"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// BetfairConfig represents Betfair Exchange Italy API configuration
type BetfairConfig struct {
	APIURL    string `mapstructure:"api_url" validate:"required,url"`
	LoginURL  string `mapstructure:"login_url" validate:"required,url"`
	StreamURL string `mapstructure:"stream_url" validate:"required"`
	AppKey    string `mapstructure:"app_key" validate:"required"`
	Username  string `mapstructure:"username" validate:"required"`
	Password  string `mapstructure:"password" validate:"required"`
	CertFile  string `mapstructure:"cert_file" validate:"required"`
	KeyFile   string `mapstructure:"key_file" validate:"required"`
}

// TradingConfig represents dutching and risk configuration
type TradingConfig struct {
	// CommissionPercent is the exchange commission charged on net winnings;
	// Betfair Italy charges 4.5 by default.
	CommissionPercent float64 `mapstructure:"commission_percent" validate:"gte=0,lt=100"`
	MinStake          float64 `mapstructure:"min_stake" validate:"required,gt=0"`
	MaxPayout         float64 `mapstructure:"max_payout" validate:"required,gt=0"`
	MaxStakePerDutch  float64 `mapstructure:"max_stake_per_dutch" validate:"required,gt=0"`
	MaxExposure       float64 `mapstructure:"max_exposure" validate:"required,gt=0"`
	MaxDailyLoss      float64 `mapstructure:"max_daily_loss" validate:"required,gt=0"`
}

// LiveConfig represents streaming and cashout refresh configuration
type LiveConfig struct {
	ConflateMs        int `mapstructure:"conflate_ms" validate:"required,gt=0"`
	RefreshIntervalMs int `mapstructure:"refresh_interval_ms" validate:"required,gt=0"`
	CatalogueCacheTTL int `mapstructure:"catalogue_cache_ttl_seconds" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// FeaturesConfig represents feature flags
type FeaturesConfig struct {
	LiveTradingEnabled  bool `mapstructure:"live_trading_enabled"`
	PaperTradingEnabled bool `mapstructure:"paper_trading_enabled"`
	AutoCashoutEnabled  bool `mapstructure:"auto_cashout_enabled"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RefreshInterval returns the cashout refresh cadence as a duration
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Live.RefreshIntervalMs) * time.Millisecond
}

// CatalogueCacheTTL returns the market catalogue cache lifetime
func (c *Config) CatalogueCacheTTL() time.Duration {
	return time.Duration(c.Live.CatalogueCacheTTL) * time.Second
}
