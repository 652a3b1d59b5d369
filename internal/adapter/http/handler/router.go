package handler

import (
	"net/http"

	"smartwallet-gateway/internal/adapter/http/middleware"
	"smartwallet-gateway/internal/adapter/metrics"
	redisStore "smartwallet-gateway/internal/adapter/storage/redis"
	"smartwallet-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransferSvc    ports.TransferService
	TokenSvc       ports.TokenService                  // nil = API open, no bearer token required
	RateLimitStore *redisStore.RateLimitStore          // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule // nil = DefaultRateLimitRules
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        *metrics.Recorder  // nil = no /metrics endpoint
	MetricsPath    string
	Mode           string // gin mode; empty = release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	// Health check (deep when Postgres or Redis are configured)
	health := HealthCheck(deps.HealthCheckers...)
	r.GET("/health", health)
	r.GET("/api/health", health)

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok || rule.Limit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	api := r.Group("/api")
	if deps.TokenSvc != nil {
		api.Use(middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	}

	// Audit logging (after response, after auth so the subject is known)
	if deps.AuditSvc != nil {
		api.Use(middleware.AuditLog(deps.AuditSvc))
	}

	h := NewTransferHandler(deps.TransferSvc)

	api.GET("/wallet/*walletUrl", rl(middleware.GroupWallet), h.GetWallet)

	payments := api.Group("", rl(middleware.GroupPayments))
	{
		payments.POST("/incoming-payment", h.CreateIncomingPayment)
		payments.POST("/quote", h.CreateQuote)
		payments.POST("/outgoing-payment/initiate", h.InitiateOutgoingPayment)
		payments.POST("/outgoing-payment/complete", h.CompleteOutgoingPayment)
	}

	transfers := api.Group("/transfer", rl(middleware.GroupTransfer))
	{
		transfers.POST("/simple", h.PrepareTransfer)
		transfers.GET("/:id", h.GetTransfer)
		transfers.POST("/:id/complete", h.CompleteTransfer)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success":    false,
			"error":      "route not found",
			"error_code": "NOT_FOUND",
		})
	})

	return r
}
