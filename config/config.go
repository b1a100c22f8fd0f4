// Package config loads the storefront settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"go-storefront/checkout"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port          string `env:"PORT" envDefault:"8000"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"storefront"`
	CartDBPath    string `env:"CART_DB_PATH" envDefault:"carts.db"`
	JWTSecret     string `env:"JWT_SECRET"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`

	PostmarkToken string `env:"POSTMARK_API_TOKEN"`
	EmailSender   string `env:"EMAIL_SENDER"`

	PaymentAPIURL    string `env:"PAYMENT_API_URL"`
	PaymentAPIKey    string `env:"PAYMENT_API_KEY"`
	PaymentReturnURL string `env:"PAYMENT_RETURN_URL" envDefault:"http://localhost:8000/checkout/payment-return"`
	SuccessURL       string `env:"CHECKOUT_SUCCESS_URL" envDefault:"/checkout/success"`

	CarrierFee            decimal.Decimal `env:"CARRIER_FEE" envDefault:"7.000"`
	FreeShippingThreshold decimal.Decimal `env:"FREE_SHIPPING_THRESHOLD" envDefault:"300.000"`
	FiscalStamp           decimal.Decimal `env:"FISCAL_STAMP" envDefault:"1.000"`
}

// Load reads an optional .env file, then binds the environment into a Config.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the server cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CarrierFee.IsNegative() || c.FiscalStamp.IsNegative() || c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("pricing settings must not be negative")
	}
	if c.SessionIdleTimeout <= 0 || c.SessionSweepInterval <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	return nil
}

// Pricing returns the checkout fees configured for this deployment.
func (c Config) Pricing() checkout.Pricing {
	return checkout.Pricing{
		CarrierFee:            c.CarrierFee,
		FreeShippingThreshold: c.FreeShippingThreshold,
		FiscalStamp:           c.FiscalStamp,
	}
}

// Level maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
