// Package http assembles the Gin engine: middleware chain, route groups,
// and the HTTP server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/montrose/hnwi-gateway/internal/config"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/handlers"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// Handlers bundles every route handler the router mounts.
type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Assessment   *handlers.AssessmentHandler
	CrownVault   *handlers.CrownVaultHandler
	Intelligence *handlers.IntelligenceHandler
	Notification *handlers.NotificationHandler
	Webhook      *handlers.WebhookHandler
	Report       *handlers.ReportHandler
	Profile      *handlers.ProfileHandler
}

// AuthServices bundles the middleware-level dependencies.
type AuthServices struct {
	Tokens    domainService.SessionTokenService
	Blacklist domainService.SessionBlacklist
	Limiter   domainService.RateLimitService
}

// Router owns the Gin engine and the HTTP server.
type Router struct {
	engine   *gin.Engine
	config   *config.Config
	logger   logger.Logger
	metrics  *monitoring.Metrics
	handlers *Handlers
	auth     *AuthServices
	server   *http.Server
}

// NewRouter creates the router.
func NewRouter(cfg *config.Config, log logger.Logger, metrics *monitoring.Metrics, h *Handlers, auth *AuthServices) *Router {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Router{
		engine:   gin.New(),
		config:   cfg,
		logger:   log.WithComponent("Router"),
		metrics:  metrics,
		handlers: h,
		auth:     auth,
	}
}

// SetupRoutes wires the middleware chain and all route groups.
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.AccessLog(r.logger))
	r.engine.Use(middleware.Observability(monitoring.Tracer(), r.metrics))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     r.config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", constants.HeaderRequestID},
		ExposeHeaders:    []string{constants.HeaderRequestID, "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Probes and metrics sit outside the API groups.
	r.engine.GET("/health/live", r.handlers.Health.Live)
	r.engine.GET("/health/ready", r.handlers.Health.Ready)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.Environment != "production" {
		pprof.Register(r.engine)
	}

	sessionAuth := middleware.SessionAuth(r.auth.Tokens, r.auth.Blacklist, r.logger)
	ipLimit := middleware.RateLimit(r.auth.Limiter, constants.RateLimitScopeIP, r.metrics, r.logger)
	userLimit := middleware.RateLimit(r.auth.Limiter, constants.RateLimitScopeUser, r.metrics, r.logger)

	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(ipLimit)
		{
			auth.POST("/login", r.handlers.Auth.Login)
			auth.POST("/mfa/verify", r.handlers.Auth.VerifyMFA)
			auth.POST("/refresh", r.handlers.Auth.Refresh)
			auth.POST("/logout", sessionAuth, r.handlers.Auth.Logout)
			auth.GET("/session", sessionAuth, r.handlers.Auth.Session)
		}

		// Signed by HMAC, not by session; rate limited by IP only.
		webhooks := v1.Group("/webhooks")
		webhooks.Use(ipLimit)
		{
			webhooks.POST("/razorpay", r.handlers.Webhook.Razorpay)
		}

		authed := v1.Group("")
		authed.Use(sessionAuth, userLimit)
		{
			assessment := authed.Group("/assessment")
			{
				assessment.POST("/sessions", r.handlers.Assessment.Start)
				assessment.GET("/sessions/:id", r.handlers.Assessment.Status)
				assessment.POST("/sessions/:id/advance", r.handlers.Assessment.Advance)
				assessment.POST("/sessions/:id/answers", r.handlers.Assessment.Answer)
				assessment.POST("/sessions/:id/complete", r.handlers.Assessment.Complete)
				assessment.GET("/sessions/:id/stream", r.handlers.Assessment.Stream)
			}

			intel := authed.Group("/intelligence")
			intel.Use(middleware.ETagCache())
			{
				intel.GET("/dashboard", r.handlers.Intelligence.Dashboard)
				intel.GET("/opportunities", r.handlers.Intelligence.Opportunities)
				intel.GET("/map", r.handlers.Intelligence.MapClusters)
			}

			vault := authed.Group("/crown-vault")
			vault.Use(middleware.RequireTier(constants.TierCrown))
			{
				vault.GET("/assets", r.handlers.CrownVault.ListAssets)
				vault.POST("/assets", r.handlers.CrownVault.CreateAsset)
				vault.GET("/assets/:id", r.handlers.CrownVault.GetAsset)
				vault.PUT("/assets/:id", r.handlers.CrownVault.UpdateAsset)
				vault.DELETE("/assets/:id", r.handlers.CrownVault.DeleteAsset)
				vault.GET("/assets/:id/heirs", r.handlers.CrownVault.ListHeirs)
				vault.POST("/assets/:id/heirs", r.handlers.CrownVault.AddHeir)
			}

			notifications := authed.Group("/notifications")
			{
				notifications.GET("", r.handlers.Notification.List)
				notifications.GET("/counts", r.handlers.Notification.Counts)
				notifications.POST("/read", r.handlers.Notification.MarkRead)
			}

			reports := authed.Group("/reports")
			reports.Use(middleware.RequireTier(constants.TierPremium))
			{
				reports.GET("/portfolio", r.handlers.Report.Download)
			}

			profile := authed.Group("/profile")
			{
				profile.GET("", r.handlers.Profile.Profile)
				profile.PUT("", r.handlers.Profile.Profile)
				profile.GET("/preferences", r.handlers.Profile.Preferences)
				profile.PUT("/preferences", r.handlers.Profile.Preferences)
			}
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "the requested resource was not found",
		})
	})
}

// Engine exposes the underlying engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start runs the HTTP server until Stop or a listen failure.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "starting http server", logger.String("address", addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "stopping http server")
	return r.server.Shutdown(ctx)
}
