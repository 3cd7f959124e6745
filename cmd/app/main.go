package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit_engine/internal/config"
	"credit_engine/internal/db"
	"credit_engine/internal/domain"
	httpServer "credit_engine/internal/http"
	"credit_engine/internal/http/middleware"
	"credit_engine/internal/logger"
	"credit_engine/internal/service"
	"credit_engine/internal/store"
	"credit_engine/internal/store/memory"
	"credit_engine/internal/store/postgres"
	"credit_engine/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.MustLoad()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	service.InitJWT(cfg.JWTSecret)

	st := openStore(cfg)
	defer st.Close()

	eng := service.NewEngine(st, service.Options{
		Retry: service.RetryPolicy{
			Attempts: cfg.StorageRetryAttempts,
			Backoff:  cfg.StorageRetryBackoff,
		},
		ReversalPolicy: domain.ReversalPolicy(cfg.ReversalPolicy),
	})

	hub := ws.NewHub()
	eng.Wallet.SetNotifier(hub)

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.RequestIDHeader)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, eng, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreDriver, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

func openStore(cfg *config.Config) store.Store {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store, balances are lost on restart")
		return memory.New()
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	err = db.Migrate(ctx, pool, func(name string) {
		logger.Debug("migration applied", "file", name)
	})
	if err != nil {
		logger.Fatal("migrations failed", "error", err)
	}
	return postgres.New(pool)
}
