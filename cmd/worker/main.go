package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/triage-api/internal/config"
	"github.com/jwalitptl/triage-api/internal/email"
	"github.com/jwalitptl/triage-api/internal/repository/postgres"
	"github.com/jwalitptl/triage-api/internal/service/accumulator"
	auditService "github.com/jwalitptl/triage-api/internal/service/audit"
	caseworkService "github.com/jwalitptl/triage-api/internal/service/casework"
	notificationService "github.com/jwalitptl/triage-api/internal/service/notification"
	"github.com/jwalitptl/triage-api/internal/worker"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/messaging/redis"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

// workerSettings tunes the background loops. Everything else comes from the
// shared config file; these knobs are deployment-specific and read from the
// environment.
type workerSettings struct {
	HealthPort       int           `envconfig:"HEALTH_PORT" default:"8081"`
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"1m"`
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	RetentionTick    time.Duration `envconfig:"RETENTION_TICK" default:"1h"`
}

func setupHealthCheck(l *logger.Logger, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			l.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var settings workerSettings
	if err := envconfig.Process("triage_worker", &settings); err != nil {
		log.Fatal().Err(err).Msg("Failed to load worker settings")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	l := &logger.Logger{ZL: log.Logger}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	m := metrics.NewMetrics("triage_worker")

	sessionRepo := postgres.NewSessionRepository(db)
	caseRepo := postgres.NewCaseRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	auditSvc := auditService.NewService(auditRepo, l)
	accumulatorSvc := accumulator.NewService(
		sessionRepo,
		accumulator.NewKeywordExtractor(),
		cfg.Triage.SessionTimeout,
		cfg.Triage.ExtractionBudget,
		l,
	)
	caseworkSvc := caseworkService.NewService(caseRepo, auditSvc, m, cfg.Triage.ConflictRetryAttempts)
	notifierSvc := notificationService.NewService(
		notificationRepo,
		broker,
		m,
		l,
		cfg.Notification.MaxRetries,
		cfg.Notification.RetryBackoff,
	)
	mailer := email.NewService(cfg.Notification)

	setupHealthCheck(l, settings.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	run(worker.NewReminderWorker(caseworkSvc, notifierSvc, m, l, settings.ReminderInterval).Run)
	run(worker.NewSessionSweeper(accumulatorSvc, caseworkSvc, l, settings.SweepInterval).Run)
	run(worker.NewRetentionWorker(auditSvc, notifierSvc, l, cfg.Retention.AuditRetention, settings.RetentionTick).Run)
	run(worker.NewDigestWorker(broker, mailer, l, cfg.Notification.DigestAddress, cfg.Notification.DigestInterval).Run)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	l.Info("shutting down workers")
	cancel()
	wg.Wait()
	l.Info("workers exited")
}
