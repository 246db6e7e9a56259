package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/paystack"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// Local development convenience; missing .env is not an error
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Ledger Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Apply schema migrations
	if cfg.Database.Migrate {
		if err := pgStorage.RunMigrations(cfg.Database.DSN(), &log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	keyRepo := pgStorage.NewAPIKeyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService(cfg.Paystack.SecretKey)
	hashSvc := service.NewBlake2bHashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize payment processor client
	processor := paystack.NewClient(cfg.Paystack, &http.Client{Timeout: cfg.Paystack.Timeout}, log)

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, walletRepo, tokenSvc, transactor, log)
	walletSvc := service.NewWalletService(
		walletRepo,
		txRepo,
		userRepo,
		processor,
		sigSvc,
		idempotencyCache,
		transactor,
		cfg.Ledger.MinAmount,
		cfg.Ledger.PendingDepositTTL,
		log,
	)
	keysSvc := service.NewKeysService(keyRepo, hashSvc, transactor, log)

	// Periodic sweep of stale pending deposits
	sweeper := cron.New()
	_, err = sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.Ledger.SweepInterval), func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := walletSvc.SweepStalePendingDeposits(sweepCtx); err != nil {
			log.Error().Err(err).Msg("pending deposit sweep failed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule deposit sweep")
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		KeysSvc:        keysSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
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
