package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appservice "github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/config"
	domainservice "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/crypto"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/events"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/gormdb"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/ratelimit"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/secrets"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/sse"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	httpiface "github.com/montrose/hnwi-gateway/internal/interfaces/http"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/handlers"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

func main() {
	startupLogger, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})

	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	ctx := context.Background()

	cleanup, err := monitoring.InitTracer(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to initialize tracer", err)
	}
	defer cleanup()

	db, err := gormdb.NewDBConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to connect to database", err)
	}
	defer db.Close()

	redisConn, err := redis.NewRedisConnection(&cfg.Redis, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to connect to redis", err)
	}
	defer redisConn.Close()

	secretProvider, err := secrets.NewProvider(cfg, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to initialize secret provider", err)
	}

	metrics := monitoring.NewMetrics()

	backend, err := upstream.NewClient(&cfg.Upstream, metrics, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to create backend client", err)
	}
	forwarder := upstream.NewForwarder(backend, appLogger)
	relay := sse.NewRelay(metrics, appLogger)

	tokenManager, err := crypto.NewSessionTokenManager(ctx, &cfg.Auth, secretProvider, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to create session token manager", err)
	}

	blacklist := redis.NewSessionBlacklist(redisConn, appLogger)
	cacheManager := redis.NewCacheManager(redisConn, appLogger)
	flowStore := redis.NewFlowStore(redisConn, appLogger)
	var limiter domainservice.RateLimitService
	if cfg.RateLimit.Enabled {
		redisLimiter := ratelimit.NewRedisRateLimiter(redisConn.Client, ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.DefaultRPM,
			Burst:             cfg.RateLimit.BurstSize,
		}, appLogger)
		config.WatchConfig(appLogger, func(next *config.Config) {
			redisLimiter.SetLimits(next.RateLimit.DefaultRPM, next.RateLimit.BurstSize)
			appLogger.Info(ctx, "configuration reloaded",
				logger.Int("rate_limit_rpm", next.RateLimit.DefaultRPM),
				logger.Int("rate_limit_burst", next.RateLimit.BurstSize),
			)
		})
		limiter = redisLimiter
	} else {
		appLogger.Warn(ctx, "rate limiting disabled by configuration")
		limiter = ratelimit.NewNoopLimiter()
	}

	var producer domainservice.EventProducer
	if cfg.Kafka.Enabled {
		producer = events.NewKafkaProducer(&cfg.Kafka, appLogger)
	} else {
		producer = events.NewNoopProducer()
	}
	defer producer.Close()

	webhookRepo := gormdb.NewWebhookEventRepository(db, appLogger)
	auditRepo := gormdb.NewAuditRepository(db, appLogger)

	authSvc := appservice.NewAuthAppService(backend, tokenManager, blacklist, producer, auditRepo, cfg.Auth.RefreshTTLDuration(), appLogger)
	assessmentSvc := appservice.NewAssessmentAppService(backend, flowStore, producer, appLogger)
	vaultSvc := appservice.NewCrownVaultAppService(backend, cacheManager, &cfg.Cache, metrics, appLogger)
	intelSvc := appservice.NewIntelligenceAppService(backend, cacheManager, &cfg.Cache, metrics, appLogger)
	notificationSvc := appservice.NewNotificationAppService(backend, producer, metrics, appLogger)
	webhookSvc := appservice.NewWebhookAppService(backend, secretProvider, cacheManager, webhookRepo, producer, metrics, appLogger)
	reportSvc := appservice.NewReportAppService(intelSvc, vaultSvc, producer, appLogger)

	router := httpiface.NewRouter(cfg, appLogger, metrics, &httpiface.Handlers{
		Health:       handlers.NewHealthHandler(redisConn, db),
		Auth:         handlers.NewAuthHandler(authSvc, &cfg.Auth),
		Assessment:   handlers.NewAssessmentHandler(assessmentSvc, relay),
		CrownVault:   handlers.NewCrownVaultHandler(vaultSvc),
		Intelligence: handlers.NewIntelligenceHandler(intelSvc),
		Notification: handlers.NewNotificationHandler(notificationSvc),
		Webhook:      handlers.NewWebhookHandler(webhookSvc),
		Report:       handlers.NewReportHandler(reportSvc),
		Profile:      handlers.NewProfileHandler(forwarder),
	}, &httpiface.AuthServices{
		Tokens:    tokenManager,
		Blacklist: blacklist,
		Limiter:   limiter,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := router.Stop(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "server forced to shut down", err)
		}
	}()

	if err := router.Start(); err != nil {
		appLogger.Fatal(ctx, "http server failed", err)
	}
	appLogger.Info(ctx, "server stopped")
}
