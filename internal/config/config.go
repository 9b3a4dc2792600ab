package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DatabaseURL        string `envconfig:"DB_URL" required:"true"`
	PlatformSchema     string `envconfig:"PLATFORM_SCHEMA" default:"public"`
	TenantSchemaPrefix string `envconfig:"TENANT_SCHEMA_PREFIX" default:"tenant_"`
	DBMaxConns         int32  `envconfig:"DB_MAX_CONNS" default:"4"`

	// RedisURL is optional. Without it the identity cache, send rate limit and
	// background queue are disabled.
	RedisURL string `envconfig:"REDIS_URL"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"JWT_ISSUER" default:"team-orbit"`

	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"10s"`
	InflightTimeout  time.Duration `envconfig:"INFLIGHT_TIMEOUT" default:"5s"`
	SendRateLimit    int           `envconfig:"SEND_RATE_LIMIT" default:"30"`
	SendRateWindow   time.Duration `envconfig:"SEND_RATE_WINDOW" default:"10s"`
	IdentityCacheTTL time.Duration `envconfig:"IDENTITY_CACHE_TTL" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	AsynqConcurrency int           `envconfig:"ASYNQ_CONCURRENCY" default:"10"`
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_URL must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be positive, got %s", c.HandshakeTimeout)
	}
	if c.InflightTimeout <= 0 {
		return fmt.Errorf("INFLIGHT_TIMEOUT must be positive, got %s", c.InflightTimeout)
	}
	if c.SendRateLimit < 0 {
		return fmt.Errorf("SEND_RATE_LIMIT must not be negative, got %d", c.SendRateLimit)
	}
	if c.SendRateLimit > 0 && c.SendRateWindow <= 0 {
		return fmt.Errorf("SEND_RATE_WINDOW must be positive when SEND_RATE_LIMIT is set")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	return nil
}

// RedisEnabled reports whether Redis backed features should be started.
func (c Config) RedisEnabled() bool {
	return c.RedisURL != ""
}
