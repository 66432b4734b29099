// Package config provides typed configuration for the futures data
// tools: store backend and price epoch, fetch endpoints and staleness
// thresholds, logging, and the symbol table mapping ticker symbols to
// the positioning report provider's market names. Configuration loads
// from defaults, then an optional JSON file, then environment
// variables, with later sources winning.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/futurescope/futuresdata/internal/models"
)

// Config is the complete application configuration.
type Config struct {
	Storage StorageConfig `json:"storage"`
	Fetch   FetchConfig   `json:"fetch"`
	Logging LoggingConfig `json:"logging"`

	// Symbols maps ticker symbols to the report provider's
	// exchange/commodity name. The table is injected data, not code:
	// adding a market is a config change, no engine logic involved.
	Symbols map[string]string `json:"symbols"`
}

// StorageConfig selects and parameterizes the store backend.
type StorageConfig struct {
	Type  string `json:"type" env:"FUTURESDATA_STORAGE_TYPE"` // "csv", "memory"
	Epoch string `json:"epoch" env:"FUTURESDATA_PRICE_EPOCH"` // earliest supported price history (YYYY-MM-DD)
}

// FetchConfig parameterizes the remote fetchers.
type FetchConfig struct {
	PriceBaseURL   string `json:"price_base_url" env:"FUTURESDATA_PRICE_BASE_URL"`     // price provider base URL, empty for default
	ReportBaseURL  string `json:"report_base_url" env:"FUTURESDATA_REPORT_BASE_URL"`   // report provider base URL, empty for default
	ReportYears    int    `json:"report_years" env:"FUTURESDATA_REPORT_YEARS"`         // trailing report years fetched for a fresh store
	StaleAfterDays int    `json:"stale_after_days" env:"FUTURESDATA_STALE_AFTER_DAYS"` // positioning staleness threshold
}

// LoggingConfig configures structured logging. Output never goes to
// stdout; that stream is reserved for the JSON result envelope.
type LoggingConfig struct {
	Level      string `json:"level" env:"FUTURESDATA_LOG_LEVEL"`        // debug, info, warn, error
	Format     string `json:"format" env:"FUTURESDATA_LOG_FORMAT"`      // json, text
	Output     string `json:"output" env:"FUTURESDATA_LOG_OUTPUT"`      // stderr, file
	FilePath   string `json:"file_path" env:"FUTURESDATA_LOG_FILE"`     // log file path when output is "file"
	MaxSizeMB  int    `json:"max_size_mb" env:"FUTURESDATA_LOG_MAX_MB"` // rotation size
	MaxBackups int    `json:"max_backups" env:"FUTURESDATA_LOG_MAX_BACKUPS"`
	MaxAgeDays int    `json:"max_age_days" env:"FUTURESDATA_LOG_MAX_AGE"`
	Compress   bool   `json:"compress" env:"FUTURESDATA_LOG_COMPRESS"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Type:  "csv",
			Epoch: "2000-01-01",
		},
		Fetch: FetchConfig{
			ReportYears:    4,
			StaleAfterDays: 7,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Symbols: DefaultSymbols(),
	}
}

// DefaultSymbols returns the built-in symbol table for markets with
// positioning report coverage.
func DefaultSymbols() map[string]string {
	return map[string]string{
		// Precious metals
		"GC=F": "GOLD - COMMODITY EXCHANGE INC.",
		"SI=F": "SILVER - COMMODITY EXCHANGE INC.",
		"PL=F": "PLATINUM - NEW YORK MERCANTILE EXCHANGE",
		"PA=F": "PALLADIUM - NEW YORK MERCANTILE EXCHANGE",

		// Industrial metals
		"HG=F": "COPPER- #1 - COMMODITY EXCHANGE INC.",

		// Energy
		"CL=F": "WTI FINANCIAL CRUDE OIL - NEW YORK MERCANTILE EXCHANGE",
		"NG=F": "HENRY HUB PENULTIMATE NAT GAS - NEW YORK MERCANTILE EXCHANGE",
		"HO=F": "GULF JET NY HEAT OIL SPR - NEW YORK MERCANTILE EXCHANGE",
		"RB=F": "GASOLINE RBOB - NEW YORK MERCANTILE EXCHANGE",

		// Grains
		"ZC=F": "CORN - CHICAGO BOARD OF TRADE",
		"ZW=F": "WHEAT-SRW - CHICAGO BOARD OF TRADE",
		"ZS=F": "SOYBEANS - CHICAGO BOARD OF TRADE",

		// Softs
		"KC=F": "COFFEE C - ICE FUTURES U.S.",
		"SB=F": "SUGAR NO. 11 - ICE FUTURES U.S.",
		"CT=F": "COTTON NO. 2 - ICE FUTURES U.S.",
	}
}

// Load builds the configuration from defaults, the optional JSON file
// at path (missing files are not an error), and environment
// variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "csv", "memory":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if _, err := time.Parse(models.DateFormat, c.Storage.Epoch); err != nil {
		return fmt.Errorf("invalid price epoch %q: %w", c.Storage.Epoch, err)
	}
	if c.Fetch.ReportYears < 1 {
		return fmt.Errorf("report_years must be at least 1, got %d", c.Fetch.ReportYears)
	}
	if c.Fetch.StaleAfterDays < 1 {
		return fmt.Errorf("stale_after_days must be at least 1, got %d", c.Fetch.StaleAfterDays)
	}
	return nil
}

// EpochDate returns the parsed price history epoch.
func (c *Config) EpochDate() time.Time {
	t, _ := time.Parse(models.DateFormat, c.Storage.Epoch)
	return t
}

// StaleAfter returns the positioning staleness threshold as a
// duration.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Fetch.StaleAfterDays) * 24 * time.Hour
}

// MarketName resolves a ticker symbol to the report provider's market
// name. The second return is false for symbols without positioning
// coverage.
func (c *Config) MarketName(symbol string) (string, bool) {
	name, ok := c.Symbols[symbol]
	return name, ok
}
