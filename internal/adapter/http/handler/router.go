package handler

import (
	"rubi-trail/internal/adapter/http/middleware"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; initData is the largest payload.
const maxBodyBytes = 64 << 10

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IdentitySvc    ports.IdentityService
	LedgerSvc      ports.LedgerService
	VoucherSvc     ports.VoucherService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Metrics        *metrics.Metrics // nil = /metrics returns 404
	ScanReward     int64
	PublicBaseURL  string
	CORSOrigins    []string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.GET("/", Banner)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	authHandler := NewAuthHandler(deps.IdentitySvc, deps.TokenSvc)
	loyaltyHandler := NewLoyaltyHandler(deps.LedgerSvc, deps.ScanReward)
	voucherHandler := NewVoucherHandler(deps.VoucherSvc, deps.PublicBaseURL)

	// --- Public routes ---
	r.POST("/auth/telegram", rl("auth"), authHandler.Telegram)
	r.GET("/voucher/:token", voucherHandler.Page)
	r.GET("/api/rewards", voucherHandler.ListRewards)
	r.GET("/api/vouchers/:token", voucherHandler.Get)
	r.POST("/api/vouchers/:token/redeem", rl("redeem"), voucherHandler.Redeem)

	// --- Session-authenticated routes ---
	session := middleware.SessionAuth(deps.TokenSvc, deps.IdentitySvc, deps.Logger)
	api := r.Group("/api", session)
	{
		api.GET("/me", loyaltyHandler.Me)
		api.POST("/attractions/scan", rl("scan"), loyaltyHandler.Scan)
		api.POST("/rewards/:id/buy", rl("purchase"), voucherHandler.Buy)
		api.GET("/vouchers", voucherHandler.ListMine)
	}

	return r
}
