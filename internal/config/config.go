package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port            int    `env:"PORT" envDefault:"8080"`
	UpstreamAPIKey  string `env:"UPSTREAM_API_KEY,required"`
	UpstreamBaseURL string `env:"UPSTREAM_BASE_URL" envDefault:"https://api.deepseek.com"`
	UpstreamModel   string `env:"UPSTREAM_MODEL" envDefault:"deepseek-chat"`

	// Comma-separated CORS allowlist. Empty means same-origin only.
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:""`

	RateLimitWindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	RateLimitMaxRequests   int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"20"`
	SessionDurationMinutes int `env:"SESSION_DURATION_MINUTES" envDefault:"30"`
	DailyUsageLimit        int `env:"DAILY_USAGE_LIMIT" envDefault:"100"`

	// Optional. When set, sessions and rate-limit buckets live in Redis so
	// multiple gateway processes share one view of quota state.
	RedisURL string `env:"REDIS_URL"`

	// Optional. When set, usage events are recorded in Postgres for abuse
	// review beyond the in-memory stats endpoint.
	DatabaseURL string `env:"DATABASE_URL"`

	// Optional bcrypt hash guarding GET /api/stats. Unset leaves the
	// endpoint open, matching the original deployment.
	StatsPasswordHash string `env:"STATS_PASSWORD_HASH"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationMinutes) * time.Minute
}

func (c *Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func (c *Config) Validate(isProduction bool) error {
	if c.StatsPasswordHash != "" {
		if !strings.HasPrefix(c.StatsPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.StatsPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.StatsPasswordHash, "$2y$") {
			return fmt.Errorf("STATS_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if c.RateLimitMaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive")
	}
	if c.SessionDurationMinutes <= 0 {
		return fmt.Errorf("SESSION_DURATION_MINUTES must be positive")
	}
	if c.DailyUsageLimit <= 0 {
		return fmt.Errorf("DAILY_USAGE_LIMIT must be positive")
	}

	if isProduction {
		if c.AllowedOrigins == "" {
			log.Warn().Msg("ALLOWED_ORIGINS is empty in production: cross-origin browsers cannot reach the API")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
