package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vibetutor/gateway-server-go/internal/config"
	"github.com/vibetutor/gateway-server-go/internal/database"
	"github.com/vibetutor/gateway-server-go/internal/handler"
	"github.com/vibetutor/gateway-server-go/internal/jobs"
	"github.com/vibetutor/gateway-server-go/internal/middleware"
	"github.com/vibetutor/gateway-server-go/internal/redis"
	"github.com/vibetutor/gateway-server-go/internal/repository"
	"github.com/vibetutor/gateway-server-go/internal/service"
)

func main() {
	godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("RENDER") != "" || os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	// Quota state is process-local unless Redis is configured, in which
	// case every gateway instance shares sessions and rate-limit windows.
	var (
		sessions repository.SessionStore
		limiter  service.RateLimiter
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")

		sessions = repository.NewRedisSessionStore(redisClient.Client, cfg.SessionDuration(), cfg.DailyUsageLimit)
		limiter = service.NewRedisRateLimiter(redisClient.Client, cfg.RateLimitMaxRequests, cfg.RateLimitWindow())
	} else {
		sessions = repository.NewMemorySessionStore(cfg.SessionDuration(), cfg.DailyUsageLimit)
		limiter = service.NewMemoryRateLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow())
	}

	var usageRepo repository.UsageRepository
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		if err := db.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		cancel()
		log.Info().Msg("database connected")

		usageRepo = repository.NewUsageRepository(db.DB)
	}

	upstream := service.NewUpstreamClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey)
	chatService := service.NewChatService(
		sessions, limiter, service.NewContentFilter(), upstream, usageRepo, cfg.UpstreamModel,
	)
	sessionService := service.NewSessionService(sessions, cfg.SessionDuration())

	chatHandler := handler.NewChatHandler(chatService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	statsHandler := handler.NewStatsHandler(sessionService, cfg.StatsPasswordHash)

	corsMiddleware := middleware.NewCORSMiddleware(cfg.Origins())
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)
	initRateLimiter := middleware.NewInitRateLimiter(config.InitRateLimitMax, config.InitRateLimitWindow)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(corsMiddleware.Handler)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.With(initRateLimiter.Handler).Post("/api/session/init", sessionHandler.Init)
	r.Post("/api/chat", chatHandler.Chat)
	r.Get("/api/stats/{token}", statsHandler.Stats)

	cleanupJob := jobs.NewCleanupJob(sessions, usageRepo, config.UsageRetention, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
