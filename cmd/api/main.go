package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartwallet-gateway/config"
	httpHandler "smartwallet-gateway/internal/adapter/http/handler"
	"smartwallet-gateway/internal/adapter/http/middleware"
	"smartwallet-gateway/internal/adapter/metrics"
	"smartwallet-gateway/internal/adapter/openpayments"
	memStorage "smartwallet-gateway/internal/adapter/storage/memory"
	pgStorage "smartwallet-gateway/internal/adapter/storage/postgres"
	redisStorage "smartwallet-gateway/internal/adapter/storage/redis"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/internal/service"
	"smartwallet-gateway/pkg/logger"

	"github.com/rs/cors"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("client_wallet", cfg.OpenPayments.WalletAddressURL).
		Msg("Starting SmartWallet Gateway")

	ctx := context.Background()

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.New()
	}

	// Open Payments client, built once from the signing identity
	keyPEM, err := cfg.OpenPayments.PrivateKeyPEM()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load signing key")
	}
	client, err := openpayments.New(openpayments.Options{
		WalletAddressURL: cfg.OpenPayments.WalletAddressURL,
		KeyID:            cfg.OpenPayments.KeyID,
		PrivateKeyPEM:    keyPEM,
		FinishURI:        cfg.OpenPayments.FinishURI,
		HTTPClient:       &http.Client{Timeout: cfg.OpenPayments.RequestTimeout},
		Metrics:          rec,
		Logger:           log.With().Str("component", "openpayments").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Open Payments client")
	}

	var healthCheckers []ports.HealthChecker

	// Transfer attempt store: PostgreSQL when enabled, memory otherwise
	var (
		transferRepo ports.TransferRepository
		auditRepo    ports.AuditRepository
		encSvc       *service.AESEncryptionService
	)
	if cfg.Database.Enabled {
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		if err := pgStorage.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}

		transferRepo = pgStorage.NewTransferRepo(pool)
		auditRepo = pgStorage.NewAuditRepository(pool)
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	} else {
		transferRepo = memStorage.NewTransferRepo()
		log.Warn().Msg("database disabled, pending transfers are lost on restart")
	}

	if cfg.AES.Key != "" {
		encSvc, err = service.NewAESEncryptionService(cfg.AES.Key)
	} else {
		encSvc, err = service.NewEphemeralAESEncryptionService()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Redis: attempt cache and rate limiting
	var (
		transferCache  ports.TransferCache
		rateLimitStore *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		if cfg.TransferCacheEnabled() {
			transferCache = redisStorage.NewTransferCache(rdb)
		} else {
			log.Info().Msg("transfer cache disabled without a database store")
		}
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	transferSvc := service.NewTransferService(
		client,
		transferRepo,
		transferCache,
		cfg.Redis.CacheTTL,
		encSvc,
		rec,
		log.With().Str("component", "transfer").Logger(),
	)
	auditSvc := service.NewAuditService(auditRepo, log)

	var tokenSvc ports.TokenService
	if cfg.JWT.Secret != "" {
		tokenSvc = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	} else {
		log.Warn().Msg("jwt.secret not set, REST API is open")
	}

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	window := cfg.RateLimit.Window
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    transferSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		RateLimitRules: map[string]middleware.RateLimitRule{
			middleware.GroupWallet:   {Limit: cfg.RateLimit.Wallet, Window: window},
			middleware.GroupPayments: {Limit: cfg.RateLimit.Payments, Window: window},
			middleware.GroupTransfer: {Limit: cfg.RateLimit.Transfer, Window: window},
		},
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Metrics:        rec,
		MetricsPath:    cfg.Metrics.Path,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           cors.New(middleware.CORSOptions(cfg.CORS)).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
