package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3001}
		assert.Equal(t, ":3001", cfg.Addr())
	})

	t.Run("RateLimitWindow converts seconds to duration", func(t *testing.T) {
		cfg := &Config{RateLimitWindowSeconds: 60}
		assert.Equal(t, time.Minute, cfg.RateLimitWindow())
	})

	t.Run("SessionDuration converts minutes to duration", func(t *testing.T) {
		cfg := &Config{SessionDurationMinutes: 30}
		assert.Equal(t, 30*time.Minute, cfg.SessionDuration())
	})

	t.Run("Origins splits and trims the allowlist", func(t *testing.T) {
		cfg := &Config{AllowedOrigins: "http://localhost:5173, capacitor://localhost ,https://app.example.com"}
		assert.Equal(t, []string{
			"http://localhost:5173",
			"capacitor://localhost",
			"https://app.example.com",
		}, cfg.Origins())
	})

	t.Run("Origins returns nil for empty allowlist", func(t *testing.T) {
		cfg := &Config{}
		assert.Nil(t, cfg.Origins())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RateLimitMaxRequests:   20,
			SessionDurationMinutes: 30,
			DailyUsageLimit:        100,
		}
	}

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate(false))
	})

	t.Run("rejects non-bcrypt stats hash", func(t *testing.T) {
		cfg := valid()
		cfg.StatsPasswordHash = "plaintext-password"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts bcrypt stats hash", func(t *testing.T) {
		cfg := valid()
		cfg.StatsPasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects zero rate limit", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimitMaxRequests = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects zero daily limit", func(t *testing.T) {
		cfg := valid()
		cfg.DailyUsageLimit = 0
		assert.Error(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                      os.Getenv("PORT"),
		"UPSTREAM_API_KEY":          os.Getenv("UPSTREAM_API_KEY"),
		"UPSTREAM_BASE_URL":         os.Getenv("UPSTREAM_BASE_URL"),
		"RATE_LIMIT_MAX_REQUESTS":   os.Getenv("RATE_LIMIT_MAX_REQUESTS"),
		"SESSION_DURATION_MINUTES":  os.Getenv("SESSION_DURATION_MINUTES"),
		"DAILY_USAGE_LIMIT":         os.Getenv("DAILY_USAGE_LIMIT"),
		"RATE_LIMIT_WINDOW_SECONDS": os.Getenv("RATE_LIMIT_WINDOW_SECONDS"),
		"LOG_LEVEL":                 os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("UPSTREAM_API_KEY", "sk-test")
		os.Unsetenv("PORT")
		os.Unsetenv("UPSTREAM_BASE_URL")
		os.Unsetenv("RATE_LIMIT_MAX_REQUESTS")
		os.Unsetenv("SESSION_DURATION_MINUTES")
		os.Unsetenv("DAILY_USAGE_LIMIT")
		os.Unsetenv("RATE_LIMIT_WINDOW_SECONDS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "sk-test", cfg.UpstreamAPIKey)
		assert.Equal(t, "https://api.deepseek.com", cfg.UpstreamBaseURL)
		assert.Equal(t, "deepseek-chat", cfg.UpstreamModel)
		assert.Equal(t, 60, cfg.RateLimitWindowSeconds)
		assert.Equal(t, 20, cfg.RateLimitMaxRequests)
		assert.Equal(t, 30, cfg.SessionDurationMinutes)
		assert.Equal(t, 100, cfg.DailyUsageLimit)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("UPSTREAM_API_KEY", "sk-test")
		os.Setenv("PORT", "3001")
		os.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3001, cfg.Port)
		assert.Equal(t, 5, cfg.RateLimitMaxRequests)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required UPSTREAM_API_KEY", func(t *testing.T) {
		os.Unsetenv("UPSTREAM_API_KEY")

		_, err := Load()
		assert.Error(t, err)
	})
}
