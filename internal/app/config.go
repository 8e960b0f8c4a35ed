package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/orderprofit"
)

// Config holds the complete application configuration, loadable from
// environment variables (VOLT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (VOLT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (VOLT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Pricing      PricingConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PricingConfig holds calculation defaults applied when a request does
// not override them.
type PricingConfig struct {
	RateTableName       string `default:"default" usage:"Name of the active rate table" flag:"rate-table"`
	TransactionFixedFee string `default:"0.39" usage:"Fixed per-transaction processor fee" flag:"transaction-fixed-fee"`
	TaxPercent          string `default:"7" usage:"Default tax percentage on gross revenue" flag:"tax-percent"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "VOLT",
		Files:     []string{"config.yaml", "/etc/voltstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set VOLT_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Pricing.Options(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Options parses the pricing defaults into calculation options.
func (c PricingConfig) Options() (orderprofit.Options, error) {
	fee, err := decimal.NewFromString(c.TransactionFixedFee)
	if err != nil {
		return orderprofit.Options{}, errors.Wrap(err, "parse transaction fixed fee")
	}
	tax, err := decimal.NewFromString(c.TaxPercent)
	if err != nil {
		return orderprofit.Options{}, errors.Wrap(err, "parse tax percent")
	}
	return orderprofit.Options{TransactionFixedFee: fee, TaxPercent: tax}, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's VOLT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
