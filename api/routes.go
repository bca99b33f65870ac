package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/vaulty/mailvault/api/handlers"
	"github.com/vaulty/mailvault/api/middleware"
	"github.com/vaulty/mailvault/config"
	"github.com/vaulty/mailvault/internal/tracing"
	"github.com/vaulty/mailvault/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, cfg *config.AppConfig) {
	if s == nil {
		panic("Services cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// setup handlers
	apiHandlers := handlers.InitHandlers(s)

	// Health check endpoint (no auth)
	r.GET("/health", handlers.HealthCheck)

	basicAuth := middleware.BasicAuthMiddleware(middleware.BasicAuthConfig{
		User:     cfg.IngressUser,
		Password: cfg.IngressPassword,
	})

	// Push-model source: the relay filter posts the parsed email, then each
	// attachment body
	postfix := r.Group("/postfix")
	postfix.Use(basicAuth)
	{
		postfix.POST("/email",
			tracing.TracingEnhancer(ctx, "POST /postfix/email"),
			middleware.BodyLimitMiddleware(cfg.MaxEmailBodySize),
			apiHandlers.Postfix.Email())
		postfix.POST("/attachment",
			tracing.TracingEnhancer(ctx, "POST /postfix/attachment"),
			middleware.BodyLimitMiddleware(cfg.MaxAttachmentBodySize),
			apiHandlers.Postfix.Attachment())
	}

	// Pull-model source: provider webhooks
	mailgun := r.Group("/mailgun")
	mailgun.Use(basicAuth)
	{
		mailgun.POST("",
			tracing.TracingEnhancer(ctx, "POST /mailgun"),
			middleware.BodyLimitMiddleware(cfg.MaxEmailBodySize),
			apiHandlers.Mailgun.Receive())
		mailgun.POST("/mime",
			tracing.TracingEnhancer(ctx, "POST /mailgun/mime"),
			middleware.BodyLimitMiddleware(cfg.MaxAttachmentBodySize),
			apiHandlers.Mailgun.ReceiveMIME())
	}
}
