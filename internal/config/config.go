// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBMaxOpenConns caps the pool; 0 leaves database/sql's default.
	DBMaxOpenConns int `mapstructure:"DB_MAX_OPEN_CONNS"`
	// DBMaxIdleConns caps idle connections; 0 leaves database/sql's default.
	DBMaxIdleConns int `mapstructure:"DB_MAX_IDLE_CONNS"`
	// DBConnMaxLifetime is a duration string (e.g. "30m"); empty or invalid means no limit.
	DBConnMaxLifetime string `mapstructure:"DB_CONN_MAX_LIFETIME"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Only cmd/seed signs tokens;
	// the server needs it only when JWT_PUBLIC_KEY is empty.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file used to verify access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for the placeholder secret of invited users; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTelEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Notification sinks (optional). Kafka is enabled when brokers are set; Redis when an address is set.
	// NotifyKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	NotifyKafkaBrokers  string `mapstructure:"NOTIFY_KAFKA_BROKERS"`
	NotifyKafkaTopic    string `mapstructure:"NOTIFY_KAFKA_TOPIC"`
	NotifyRedisAddr     string `mapstructure:"NOTIFY_REDIS_ADDR"`
	NotifyRedisPassword string `mapstructure:"NOTIFY_REDIS_PASSWORD"`
	NotifyRedisDB       int    `mapstructure:"NOTIFY_REDIS_DB"`
	NotifyRedisQueue    string `mapstructure:"NOTIFY_REDIS_QUEUE"`
	// NotifyTimeout bounds one asynchronous dispatch (e.g. "5s").
	NotifyTimeout string `mapstructure:"NOTIFY_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"GRPC_ADDR":                   ":8080",
	"DATABASE_URL":                "",
	"DB_MAX_OPEN_CONNS":           25,
	"DB_MAX_IDLE_CONNS":           5,
	"DB_CONN_MAX_LIFETIME":        "30m",
	"JWT_PRIVATE_KEY":             "",
	"JWT_PUBLIC_KEY":              "",
	"JWT_ISSUER":                  "organizer-team-auth",
	"JWT_AUDIENCE":                "organizer-team-api",
	"JWT_ACCESS_TTL":              "15m",
	"BCRYPT_COST":                 12,
	"APP_ENV":                     "development",
	"LOG_LEVEL":                   "info",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_EXPORTER_OTLP_INSECURE": false,
	"OTEL_SERVICE_NAME":           "organizer-team",
	"NOTIFY_KAFKA_BROKERS":        "",
	"NOTIFY_KAFKA_TOPIC":          "organizer-team.notifications",
	"NOTIFY_REDIS_ADDR":           "",
	"NOTIFY_REDIS_PASSWORD":       "",
	"NOTIFY_REDIS_DB":             0,
	"NOTIFY_REDIS_QUEUE":          "notifications:membership",
	"NOTIFY_TIMEOUT":              "5s",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, so every key gets a default.
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when APP_ENV=production")
		}
		if c.JWTPublicKey == "" && c.JWTPrivateKey == "" {
			return errors.New("config: JWT_PUBLIC_KEY or JWT_PRIVATE_KEY must be set when APP_ENV=production")
		}
	}
	if len(c.NotifyKafkaBrokersList()) > 0 && strings.TrimSpace(c.NotifyKafkaTopic) == "" {
		return errors.New("config: NOTIFY_KAFKA_TOPIC must be set when NOTIFY_KAFKA_BROKERS is set")
	}
	if c.NotifyRedisDB < 0 {
		return errors.New("config: NOTIFY_REDIS_DB must not be negative")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// ConnMaxLifetime parses DBConnMaxLifetime. Returns 0 (no limit) if unset or invalid.
func (c *Config) ConnMaxLifetime() time.Duration {
	return parseDuration(c.DBConnMaxLifetime, 0)
}

// NotifyTimeoutDuration parses NotifyTimeout. Returns 5s if unset or invalid.
func (c *Config) NotifyTimeoutDuration() time.Duration {
	return parseDuration(c.NotifyTimeout, 5*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NotifyKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka notification sink.
func (c *Config) NotifyKafkaBrokersList() []string {
	if c == nil || c.NotifyKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.NotifyKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
