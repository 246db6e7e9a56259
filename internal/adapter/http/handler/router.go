package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	KeysSvc        ports.KeysService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// Helper: access gate for a given permission scope.
	gate := func(scope string) gin.HandlerFunc {
		return middleware.Authenticate(deps.KeysSvc, deps.TokenSvc, scope, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/federated/callback", rl("auth"), authHandler.FederatedCallback)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)

	// Webhook is unauthenticated; the HMAC signature over the raw body
	// is the credential.
	v1.POST("/wallet/deposit/webhook", rl("webhooks"), walletHandler.Webhook)

	// --- Gated routes (bearer token or scoped API key) ---
	wallet := v1.Group("/wallet")
	{
		wallet.GET("/balance", rl("wallet"), gate(domain.ScopeRead), walletHandler.GetBalance)
		wallet.GET("/history", rl("wallet"), gate(domain.ScopeRead), walletHandler.GetHistory)
		wallet.POST("/deposit", rl("deposits"), gate(domain.ScopeDeposit), walletHandler.InitiateDeposit)
		wallet.GET("/deposit/status/:reference", rl("wallet"), gate(""), walletHandler.GetDepositStatus)
		wallet.POST("/transfer", rl("transfers"), gate(domain.ScopeTransfer), walletHandler.Transfer)
	}

	// --- Key management (any authenticated principal, no scope) ---
	keysHandler := NewKeysHandler(deps.KeysSvc)
	keys := v1.Group("/keys", gate(""))
	{
		keys.POST("", rl("keys"), keysHandler.Create)
		keys.POST("/:id/rollover", rl("keys"), keysHandler.Rollover)
		keys.DELETE("/:id", rl("keys"), keysHandler.Revoke)
	}

	return r
}
