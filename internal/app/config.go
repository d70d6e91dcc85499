// Package app holds process-level wiring: configuration, logging, the
// HTTP middleware stack, routing and lifecycle management.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from the environment.
type Config struct {
	AppEnv       string        `envconfig:"APP_ENV" default:"development"`
	AppAddr      string        `envconfig:"APP_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	LogFormat    string        `envconfig:"LOG_FORMAT" default:"json"`

	PGDSN     string `envconfig:"PG_DSN" required:"true"`
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	StatsCacheTTL        time.Duration `envconfig:"STATS_CACHE_TTL" default:"60s"`
	VerifyLockTTL        time.Duration `envconfig:"VERIFY_LOCK_TTL" default:"30s"`
	RateLimitPerMinute   int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	IdempotencyRetention time.Duration `envconfig:"IDEMPOTENCY_RETENTION" default:"720h"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("app: load config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the process runs in production mode.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// InTestMode reports whether the process runs under the test harness.
func InTestMode() bool {
	return os.Getenv("GALLEY_TEST_MODE") == "1"
}
