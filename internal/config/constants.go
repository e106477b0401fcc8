package config

import "time"

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Upstream provider call bound
const UpstreamTimeout = 30 * time.Second

// Generation option ceilings enforced on every forwarded request
const (
	TemperatureCeiling = 0.9
	MaxTokensCeiling   = 2000

	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
	DefaultMaxTokens   = 1000
)

// Session init endpoint protection
const (
	InitRateLimitMax    = 10
	InitRateLimitWindow = time.Minute
)

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Usage events older than this are pruned by the cleanup job
const UsageRetention = 30 * 24 * time.Hour
