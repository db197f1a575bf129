package config

import (
	"fmt"

	pkgconfig "github.com/m-a-mahammad/shop-checkout/pkg/config"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort      int    `env:"CHECKOUT_HTTP_PORT" envDefault:"8010"`
	AllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`

	// Auth
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// Rate limiting for payment submissions
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Upstream cart service
	CartServiceURL string `env:"CART_SERVICE_URL" envDefault:"http://localhost:8003"`

	// Payment gateway
	GatewayBaseURL       string `env:"GATEWAY_BASE_URL" envDefault:"https://accept.paymob.com"`
	GatewayHostedBaseURL string `env:"GATEWAY_HOSTED_BASE_URL" envDefault:""`
	GatewaySecretKey     string `env:"GATEWAY_SECRET_KEY,required,notEmpty"`
	GatewayPublicKey     string `env:"GATEWAY_PUBLIC_KEY,required,notEmpty"`
	CardIntegrationID    int64  `env:"GATEWAY_CARD_INTEGRATION_ID" envDefault:"0"`
	WalletIntegrationID  int64  `env:"GATEWAY_WALLET_INTEGRATION_ID" envDefault:"0"`

	// Intent parameters
	Currency          string `env:"PAYMENT_CURRENCY" envDefault:"EGP"`
	ExpirationSeconds int    `env:"PAYMENT_EXPIRATION_SECONDS" envDefault:"3600"`
	RedirectionURL    string `env:"PAYMENT_REDIRECTION_URL" envDefault:""`
	NotificationURL   string `env:"PAYMENT_NOTIFICATION_URL" envDefault:""`

	// Redis (cart snapshots)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Snapshot TTL in hours (default: 7 days)
	SnapshotTTL int `env:"CART_SNAPSHOT_TTL_HOURS" envDefault:"168"`

	// PostgreSQL (payment attempt log)
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"checkout"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"checkout_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"checkout"`
	PostgresSSL  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tracing
	TracingEnabled bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampling  float64 `env:"TRACE_SAMPLING" envDefault:"1.0"`

	// Pprof debug endpoint allowlist
	PprofCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load checkout config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.ExpirationSeconds < 60 {
		return fmt.Errorf("payment expiration too short: %ds", c.ExpirationSeconds)
	}
	return nil
}
