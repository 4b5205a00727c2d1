// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms-checkout-gateway/internal/config"
	"lms-checkout-gateway/internal/infra/api"
	backendapi "lms-checkout-gateway/internal/infra/backend"
	pg "lms-checkout-gateway/internal/infra/db/postgres"
	"lms-checkout-gateway/internal/infra/logging"
	"lms-checkout-gateway/internal/infra/metrics"
	"lms-checkout-gateway/internal/infra/notify"
	red "lms-checkout-gateway/internal/infra/redis"
	"lms-checkout-gateway/internal/infra/sched"
	"lms-checkout-gateway/internal/infra/webhook"
	"lms-checkout-gateway/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	resultCache := red.NewResultCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	journalRepo := pg.NewWebhookEventRepo(pool)
	notifLogRepo := pg.NewNotificationLogRepo(pool)

	// ---- Backend API client ----
	backend := backendapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)

	// ---- Notification service (owned here, lifecycle tied to ctx) ----
	notifier := notify.NewService(cfg.Notify.QueueSize, logger)
	go func() { _ = notifier.Run(ctx) }()

	// ---- Use cases ----
	notifUC := usecase.NewNotificationUseCase(backend, notifier, cfg.Notify.ToastTTL, logger)
	reconcileUC := usecase.NewReconcileUseCase(backend, resultCache, notifUC, usecase.ReconcileConfig{
		PollInterval: cfg.Reconcile.PollInterval,
		PollAttempts: cfg.Reconcile.PollAttempts,
		NotifyDelay:  cfg.Reconcile.NotifyDelay,
	}, logger)
	webhookUC := usecase.NewWebhookUseCase(backend, journalRepo, notifLogRepo, locker, cfg.Notify.RenewalSoonDays, logger)

	// ---- HTTP ----
	webhookSrv := webhook.NewServer(webhookUC, cfg.Stripe.WebhookSecret, logger)
	apiSrv := api.NewServer(reconcileUC, backend, notifier, webhookSrv, cfg.Auth.JWTSecret, cfg.Server.RequestTimeout, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: apiSrv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Pending sweeper ----
	sweeper := sched.NewPendingSweeper(backend, journalRepo, cfg.Sweeper.Interval, cfg.Sweeper.StaleAfter, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
