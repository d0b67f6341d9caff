// Package config loads and validates app config from env and an optional
// .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or a path to it.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or a path to it.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on session tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim on session tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTL is the fixed session token validity window (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// PrimaryAffiliationCode is the sentinel affiliation code that classifies
	// an account as Primary; every other code is Secondary.
	PrimaryAffiliationCode string `mapstructure:"PRIMARY_AFFILIATION_CODE"`

	// FederationVerifyURL is the base URL of the federated identity
	// provider's token-info endpoint. Empty disables the federated path.
	FederationVerifyURL string `mapstructure:"FEDERATION_VERIFY_URL"`
	// FederationTimeout bounds each token verification call (e.g. "5s").
	FederationTimeout string `mapstructure:"FEDERATION_TIMEOUT"`

	// NotifyBaseURL is the transactional mail provider base URL. Empty
	// disables outbound notifications.
	NotifyBaseURL string `mapstructure:"NOTIFY_BASE_URL"`
	// NotifyAPIKey authenticates against the mail provider.
	NotifyAPIKey string `mapstructure:"NOTIFY_API_KEY"`
	// NotifyFrom is the sender address on outbound mail.
	NotifyFrom string `mapstructure:"NOTIFY_FROM"`
	// NotifyTimeout bounds each notification dispatch (e.g. "5s").
	NotifyTimeout string `mapstructure:"NOTIFY_TIMEOUT"`

	// EventQueueSize is the dispatcher queue capacity.
	EventQueueSize int `mapstructure:"EVENT_QUEUE_SIZE"`
	// EventWorkers is the number of dispatcher worker goroutines.
	EventWorkers int `mapstructure:"EVENT_WORKERS"`
	// KafkaBrokers is a comma-separated broker list; empty disables the
	// Kafka event stream sink.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsTopic is the Kafka topic for the domain event stream.
	EventsTopic string `mapstructure:"EVENTS_TOPIC"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables
	// telemetry export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "json" or "console".
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI); env vars
// override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "identity-plane-auth")
	v.SetDefault("JWT_AUDIENCE", "identity-plane-api")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("PRIMARY_AFFILIATION_CODE", "PRIMARY-ORG")
	v.SetDefault("FEDERATION_VERIFY_URL", "")
	v.SetDefault("FEDERATION_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_BASE_URL", "")
	v.SetDefault("NOTIFY_API_KEY", "")
	v.SetDefault("NOTIFY_FROM", "")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("EVENT_QUEUE_SIZE", 256)
	v.SetDefault("EVENT_WORKERS", 4)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_TOPIC", "identity-events")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.EventQueueSize < 0 || cfg.EventWorkers < 0 {
		return nil, errors.New("config: EVENT_QUEUE_SIZE and EVENT_WORKERS must be non-negative")
	}

	return &cfg, nil
}

// SessionTokenTTL parses SessionTTL. Returns 24h if unset or invalid.
func (c *Config) SessionTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// FederationVerifyTimeout parses FederationTimeout. Returns 5s if unset or invalid.
func (c *Config) FederationVerifyTimeout() time.Duration {
	d, err := time.ParseDuration(c.FederationTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// NotifyDispatchTimeout parses NotifyTimeout. Returns 5s if unset or invalid.
func (c *Config) NotifyDispatchTimeout() time.Duration {
	d, err := time.ParseDuration(c.NotifyTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// An empty list means the event stream sink is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
