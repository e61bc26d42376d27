// Package main provides the newsletter subscription HTTP service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/email"
	"github.com/lettermill/lettermill/internal/logger"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/internal/server"
	"github.com/lettermill/lettermill/internal/service"
	"github.com/lettermill/lettermill/internal/token"
)

const (
	shutdownTimeout = 10 * time.Second
	exitCode        = 1
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	dbPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer dbPool.Close()

	subscriptionRepo := repository.NewSubscriptionRepositoryImpl(dbPool)
	outboxRepo := repository.NewOutboxRepositoryImpl(dbPool)
	transactionMgr := repository.NewTransactionManagerImpl(dbPool)
	emailClient := email.NewClient(*cfg)
	tokens := token.NewGenerator()

	subscriptionService := service.NewSubscriptionServiceImpl(
		subscriptionRepo, outboxRepo, transactionMgr, tokens, emailClient, cfg.BaseURL, log,
	)
	newsletterService := service.NewNewsletterServiceImpl(
		subscriptionRepo, outboxRepo, emailClient, cfg.NewsletterBatchSize, log,
	)

	router := server.NewRouter(log, server.Dependencies{
		Subscriptions: subscriptionService,
		Newsletters:   newsletterService,
		Health:        dbPool,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	})
	srv := server.New(log, cfg.Port, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", slog.String("error", err.Error()))
			os.Exit(exitCode)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down cleanly", slog.String("error", err.Error()))
			os.Exit(exitCode)
		}
	}
}
