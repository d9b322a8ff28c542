// Package http serves the operator API, health and metrics endpoints and the Telegram
// webhook.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	"github.com/channelgate/channelgate/internal/infrastructure/ratelimit"
	"github.com/channelgate/channelgate/internal/interfaces/http/handlers"
	"github.com/channelgate/channelgate/internal/interfaces/http/middleware"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// RouterConfig wires the handlers behind the engine. WebhookHandler is nil in polling
// mode and RateLimiter is nil when throttling is off.
type RouterConfig struct {
	HealthHandler       *handlers.HealthHandler
	PaymentErrorHandler *handlers.PaymentErrorHandler
	WebhookHandler      *handlers.TelegramWebhookHandler
	AdminAPIToken       string
	RateLimiter         ratelimit.RateLimiter
	RateLimitPerMinute  int
}

type Router struct {
	engine *gin.Engine
	logger logger.Interface
}

func NewRouter(cfg RouterConfig, log logger.Interface) *Router {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.Recovery(log))

	engine.GET("/healthz", cfg.HealthHandler.Check)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.WebhookHandler != nil {
		engine.POST("/telegram/webhook", cfg.WebhookHandler.Handle)
	}

	admin := engine.Group("/api/admin")
	if cfg.RateLimiter != nil && cfg.RateLimitPerMinute > 0 {
		admin.Use(middleware.RateLimit(cfg.RateLimiter, ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}, "admin", log))
	}
	admin.Use(middleware.RequireAdminToken(cfg.AdminAPIToken, log))
	{
		admin.GET("/payment-errors", cfg.PaymentErrorHandler.List)
		admin.POST("/payment-errors/:id/resolve", cfg.PaymentErrorHandler.Resolve)
	}

	return &Router{engine: engine, logger: log}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

// Serve listens on addr until ctx is cancelled, then drains in-flight requests within
// shutdownTimeout.
func (r *Router) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Infow("HTTP server starting", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Infow("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	r.logger.Infow("HTTP server exited gracefully")
	return nil
}
