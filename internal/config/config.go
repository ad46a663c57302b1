package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"voyage-backoffice/internal/logger"
)

// Config holds the back-office runtime configuration. Values come from
// defaults, an optional yaml file pointed at by BACKOFFICE_CONFIG, and
// environment variables (env wins).
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	HTTPAddr    string `yaml:"http_addr"`

	Currency          string `yaml:"currency"`
	CurrencyPrecision int32  `yaml:"currency_precision"`
	// SettlementEpsilon is the slack allowed when deciding that an
	// invoice is fully paid, expressed in currency units.
	SettlementEpsilon string `yaml:"settlement_epsilon"`

	Log logger.Config `yaml:"log"`
}

// Load builds the configuration.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:          ":8080",
		Currency:          "DZD",
		CurrencyPrecision: 2,
		SettlementEpsilon: "0.01",
		Log:               logger.DefaultConfig(),
	}

	if path := os.Getenv("BACKOFFICE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.Currency = getenvDefault("CURRENCY", cfg.Currency)
	cfg.CurrencyPrecision = int32(getenvIntDefault("CURRENCY_PRECISION", int(cfg.CurrencyPrecision)))
	cfg.SettlementEpsilon = getenvDefault("SETTLEMENT_EPSILON", cfg.SettlementEpsilon)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Output = getenvDefault("LOG_OUTPUT", cfg.Log.Output)

	if cfg.CurrencyPrecision < 0 {
		return cfg, errors.New("config: currency precision must be >= 0")
	}
	if _, err := decimal.NewFromString(cfg.SettlementEpsilon); err != nil {
		return cfg, errors.New("config: invalid settlement epsilon")
	}
	return cfg, nil
}

// Epsilon returns the settlement epsilon as a decimal.
func (c Config) Epsilon() decimal.Decimal {
	eps, err := decimal.NewFromString(c.SettlementEpsilon)
	if err != nil {
		return decimal.Zero
	}
	return eps
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
