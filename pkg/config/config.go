package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	PayPal   PayPalConfig
	Email    EmailConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Stripe.validate(cfg.Checkout.DemoMode); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SILKSTRANDS_APP_ENV" required:"true"`
	Port         string `envconfig:"SILKSTRANDS_APP_PORT" default:"3001"`
	LogLevel     string `envconfig:"SILKSTRANDS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SILKSTRANDS_LOG_WARN_STACK" default:"false"`

	// ExtraCORSOrigins supplements the built-in storefront origins, for
	// preview deployments.
	ExtraCORSOrigins []string `envconfig:"SILKSTRANDS_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"SILKSTRANDS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SILKSTRANDS_REDIS_ADDR"`
	Password     string        `envconfig:"SILKSTRANDS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SILKSTRANDS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SILKSTRANDS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SILKSTRANDS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SILKSTRANDS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SILKSTRANDS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SILKSTRANDS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	SecretKey     string `envconfig:"SILKSTRANDS_STRIPE_SECRET_KEY"`
	WebhookSecret string `envconfig:"SILKSTRANDS_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"SILKSTRANDS_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Configured reports whether Stripe credentials are present. Health reporting
// uses this so secret values never leave the process.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.SecretKey) != ""
}

// validate enforces the fatal-startup rule: outside demo mode the secret key
// and webhook signing secret must both be present.
func (s StripeConfig) validate(demoMode bool) error {
	if demoMode {
		return nil
	}
	if strings.TrimSpace(s.SecretKey) == "" {
		return fmt.Errorf("%s is required outside demo mode", EnvStripeSecretKey)
	}
	if strings.TrimSpace(s.WebhookSecret) == "" {
		return fmt.Errorf("%s is required outside demo mode", EnvStripeWebhookSecret)
	}
	return nil
}

type PayPalConfig struct {
	ClientID string `envconfig:"SILKSTRANDS_PAYPAL_CLIENT_ID"`
	Secret   string `envconfig:"SILKSTRANDS_PAYPAL_SECRET"`
	BaseURL  string `envconfig:"SILKSTRANDS_PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
	Currency string `envconfig:"SILKSTRANDS_PAYPAL_CURRENCY" default:"USD"`
}

// Configured reports whether PayPal credentials are present.
func (p PayPalConfig) Configured() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.Secret) != ""
}

type EmailConfig struct {
	SendgridAPIKey  string `envconfig:"SILKSTRANDS_SENDGRID_API_KEY"`
	FromAddress     string `envconfig:"SILKSTRANDS_EMAIL_FROM"`
	BusinessAddress string `envconfig:"SILKSTRANDS_EMAIL_BUSINESS"`
}

// Configured reports whether outbound order mail can be sent.
func (e EmailConfig) Configured() bool {
	return strings.TrimSpace(e.SendgridAPIKey) != "" && strings.TrimSpace(e.FromAddress) != ""
}

type CheckoutConfig struct {
	// DemoMode swaps the Stripe gateway for a locally synthesized one. It is
	// an explicit deployment choice, never a fallback on network failure.
	DemoMode         bool          `envconfig:"SILKSTRANDS_CHECKOUT_DEMO_MODE" default:"false"`
	DemoDelay        time.Duration `envconfig:"SILKSTRANDS_CHECKOUT_DEMO_DELAY" default:"750ms"`
	Currency         string        `envconfig:"SILKSTRANDS_CHECKOUT_CURRENCY" default:"usd"`
	WebhookDedupeTTL time.Duration `envconfig:"SILKSTRANDS_CHECKOUT_WEBHOOK_DEDUPE_TTL" default:"720h"`
	SessionTTL       time.Duration `envconfig:"SILKSTRANDS_CHECKOUT_SESSION_TTL" default:"24h"`
}
