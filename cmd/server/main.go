package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mvlbulankin/yamdb-final/internal/broker"
	"github.com/mvlbulankin/yamdb-final/internal/config"
	"github.com/mvlbulankin/yamdb-final/internal/database"
	"github.com/mvlbulankin/yamdb-final/internal/handler"
	"github.com/mvlbulankin/yamdb-final/internal/mailer"
	"github.com/mvlbulankin/yamdb-final/internal/metrics"
	"github.com/mvlbulankin/yamdb-final/internal/middleware"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/internal/service"
	"github.com/mvlbulankin/yamdb-final/internal/utils"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Init()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mail, err := mailer.New(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	codes, err := utils.NewCodeGenerator(cfg.JWTSecret, cfg.ConfirmationCodeTTL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize confirmation codes", zap.Error(err))
	}
	signer := utils.NewJWTSigner(cfg.JWTSecret, cfg.JWTExpiry)

	// Redis is optional: without it there is no rate limiting and no activity feed.
	var (
		publisher   broker.Publisher = broker.NopPublisher{}
		subscriber  broker.Subscriber
		rateLimiter *middleware.RateLimiter
	)
	if cfg.RedisURL != "" {
		redisClient, err := broker.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("Failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()

		activity := broker.NewRedisBroker(redisClient)
		publisher, subscriber = activity, activity
		rateLimiter = middleware.NewRateLimiter(redisClient, middleware.RateLimiterConfig{
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
			BlockTime:   cfg.RateLimitBlockTime,
		})
		logger.Log.Info("Redis connected")
	} else {
		logger.Log.Warn("REDIS_URL not set: rate limiting and activity feed disabled")
	}

	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	router := handler.NewRouter(handler.Dependencies{
		Auth:         service.NewAuthService(userRepo, codes, signer, mail),
		Users:        service.NewUserService(userRepo),
		Catalog:      service.NewCatalogService(catalogRepo),
		Reviews:      service.NewReviewService(reviewRepo, publisher),
		Verifier:     signer,
		Lookup:       userRepo,
		RateLimiter:  rateLimiter,
		Activity:     subscriber,
		CORSOrigins:  cfg.CORSOrigins,
		IsProduction: cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}

	if closer, ok := mail.(io.Closer); ok {
		closer.Close()
	}
}
