package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/triage-api/internal/config"
	"github.com/jwalitptl/triage-api/internal/handler"
	auditHandler "github.com/jwalitptl/triage-api/internal/handler/audit"
	caseworkHandler "github.com/jwalitptl/triage-api/internal/handler/casework"
	sessionHandler "github.com/jwalitptl/triage-api/internal/handler/session"
	"github.com/jwalitptl/triage-api/internal/middleware"
	"github.com/jwalitptl/triage-api/internal/repository/postgres"
	"github.com/jwalitptl/triage-api/internal/router"
	"github.com/jwalitptl/triage-api/internal/service/accumulator"
	auditService "github.com/jwalitptl/triage-api/internal/service/audit"
	caseworkService "github.com/jwalitptl/triage-api/internal/service/casework"
	"github.com/jwalitptl/triage-api/internal/service/intake"
	notificationService "github.com/jwalitptl/triage-api/internal/service/notification"
	"github.com/jwalitptl/triage-api/internal/service/triage"
	"github.com/jwalitptl/triage-api/pkg/auth"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/messaging/redis"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &l.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("triage")

	// Repositories
	sessionRepo := postgres.NewSessionRepository(db)
	caseRepo := postgres.NewCaseRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Services
	auditSvc := auditService.NewService(auditRepo, l)
	accumulatorSvc := accumulator.NewService(
		sessionRepo,
		accumulator.NewKeywordExtractor(),
		cfg.Triage.SessionTimeout,
		cfg.Triage.ExtractionBudget,
		l,
	)
	classifier := triage.NewClassifier(triage.NewWeightedScorer(), cfg.Triage.ConfidenceThreshold)
	caseworkSvc := caseworkService.NewService(caseRepo, auditSvc, m, cfg.Triage.ConflictRetryAttempts)
	notifierSvc := notificationService.NewService(
		notificationRepo,
		broker,
		m,
		l,
		cfg.Notification.MaxRetries,
		cfg.Notification.RetryBackoff,
	)

	pipeline := intake.NewPipeline(
		classifier,
		caseworkSvc,
		notifierSvc,
		m,
		l,
		cfg.Triage.IntakeCapacity,
		cfg.Triage.IntakeWorkers,
		cfg.Triage.AssessmentBudget,
	)

	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	pipeline.Start(pipelineCtx)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(
		auth.NewVerifier(cfg.Auth.JWTSecret),
		cfg.Auth.ChannelKeyHash,
	)

	r := router.NewRouter(
		authMiddleware,
		sessionHandler.NewHandler(accumulatorSvc, pipeline),
		caseworkHandler.NewHandler(caseworkSvc),
		auditHandler.NewHandler(auditSvc),
		handler.NewHealthHandler(db),
		auditSvc,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:     cfg.Server.RateLimitBurst,
			Timeout:       cfg.Triage.AcknowledgmentBudget,
			CacheTTL:      5 * time.Second,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "triage_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	stopPipeline()
	pipeline.Wait()

	log.Info().Msg("server exited properly")
}
