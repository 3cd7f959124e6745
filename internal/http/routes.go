package http

import (
	"credit_engine/internal/config"
	"credit_engine/internal/http/handlers"
	"credit_engine/internal/http/middleware"
	"credit_engine/internal/service"
	"credit_engine/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the credit API, the balance feed and the
// operational endpoints on r.
func RegisterRoutes(r *gin.Engine, eng *service.Engine, hub *ws.Hub, cfg *config.Config) {
	h := handlers.NewHandler(eng, handlers.HandlerConfig{
		SignupBonusCredits: cfg.SignupBonusCredits,
	})
	healthHandler := handlers.NewHealthHandler(eng.Store.Ping, cfg.Version, map[string]handlers.Pinger{
		"redis": middleware.RedisReady,
	})

	r.Use(middleware.RequestID(), middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	// Balance feed authenticates with ?token= since browsers can't set headers on upgrade
	v1.GET("/ws", ws.HandleWS(hub, cfg.AllowedOrigin))

	registerUserRoutes(v1.Group("", middleware.JWT()), h, cfg)
	registerAdminRoutes(v1.Group("/admin", middleware.JWT(), middleware.Admin(cfg.IsAdmin)), h)
}

func registerUserRoutes(api *gin.RouterGroup, h *handlers.Handler, cfg *config.Config) {
	// per user, not per IP
	chargeRL := middleware.UserRateLimit("charge", cfg.ChargeRateLimit, cfg.ChargeRateWindow)

	api.GET("/balance", h.GetBalance)
	api.GET("/history", h.GetHistory)
	api.POST("/consume", chargeRL, h.Consume)

	api.POST("/tools/quote", h.Quote)
	api.POST("/tools/charge", chargeRL, h.Charge)
	api.POST("/ledger/:id/reverse", h.Reverse)

	api.POST("/promo/redeem", middleware.UserRateLimit("redeem", cfg.ChargeRateLimit, cfg.ChargeRateWindow), h.RedeemPromo)

	api.GET("/subscription", h.SubscriptionStatus)
	api.POST("/subscription/cancel", h.CancelSubscription)
}

func registerAdminRoutes(admin *gin.RouterGroup, h *handlers.Handler) {
	admin.POST("/balance/adjust", h.AdjustBalance)
	admin.GET("/ledger/:userId/verify", h.VerifyLedger)
	admin.POST("/entries/:id/reverse", h.AdminReverse)
	admin.POST("/promo", h.CreatePromo)
	admin.POST("/subscriptions/expire", h.ExpireSubscriptions)
	admin.GET("/audit/:userId", h.UserAudit)
}
