package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpAdapter "github.com/iho/loanex/internal/adapter/http"
	"github.com/iho/loanex/internal/adapter/http/handler"
	"github.com/iho/loanex/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/loanex/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/loanex/internal/adapter/repository/redis"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/infrastructure/auth"
	"github.com/iho/loanex/internal/infrastructure/config"
	"github.com/iho/loanex/internal/infrastructure/logger"
	"github.com/iho/loanex/internal/infrastructure/metrics"
	"github.com/iho/loanex/internal/infrastructure/notifier"
	"github.com/iho/loanex/internal/infrastructure/postgres"
	"github.com/iho/loanex/internal/infrastructure/redis"
	"github.com/iho/loanex/internal/infrastructure/scheduler"
	"github.com/iho/loanex/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	dealRepo := postgresRepo.NewDealRepository(pool)
	logRepo := postgresRepo.NewBalanceLogRepository(pool)
	notifRepo := postgresRepo.NewNotificationRepository(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	retrier := postgresRepo.NewRetrier()
	idGen := postgresRepo.NewULIDGenerator()

	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	runLocker := redisRepo.NewRunLocker(redisClient)

	appMetrics := metrics.New()

	// Use cases
	ledgerUC := usecase.NewLedgerUseCase(txManager, logRepo, dealRepo, retrier, idGen, cache)
	dealUC := usecase.NewDealUseCase(txManager, dealRepo, logRepo, notifRepo, ledgerUC, retrier, idGen, appMetrics)
	notificationUC := usecase.NewNotificationUseCase(notifRepo)
	settlementUC := usecase.NewSettlementUseCase(
		txManager,
		dealRepo,
		notifRepo,
		ledgerUC,
		postgresRepo.NewRetrierWithMaxRetries(1),
		runLocker,
		idGen,
		log,
		cfg.Location(),
		appMetrics,
	)

	// Handlers
	dealHandler := handler.NewDealHandler(dealUC)
	ledgerHandler := handler.NewLedgerHandler(ledgerUC)
	notificationHandler := handler.NewNotificationHandler(notificationUC)
	settlementHandler := handler.NewSettlementHandler(settlementUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	authMiddleware := middleware.StaticUser(&domain.User{
		ID:     "dev-admin",
		Email:  "dev@localhost",
		Role:   domain.RoleAdmin,
		Active: true,
	})
	if cfg.AuthEnabled {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		authMiddleware = middleware.AuthMiddleware(jwtManager, userRepo)
	} else {
		log.Warn().Msg("authentication disabled, all requests run as dev-admin")
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		DealHandler:         dealHandler,
		LedgerHandler:       ledgerHandler,
		NotificationHandler: notificationHandler,
		SettlementHandler:   settlementHandler,
		HealthHandler:       healthHandler,
		IdempotencyStore:    idempotencyStore,
		AuthMiddleware:      authMiddleware,
		RequestLogger:       middleware.NewLoggingMiddleware(log),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	deliveryWorker := notifier.NewNotifier(notifier.Config{
		NotificationRepo: notifRepo,
		Deliverer:        notifier.NewLogDeliverer(slogger),
		Logger:           slogger,
		BatchSize:        cfg.NotifierBatchSize,
		Interval:         cfg.NotifierInterval,
	})
	go func() {
		if err := deliveryWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("notification delivery worker stopped")
		}
	}()

	if cfg.SchedulerEnabled {
		settlementScheduler := scheduler.New(scheduler.Config{
			Runner:   settlementUC,
			Logger:   slogger,
			Location: cfg.Location(),
		})
		go func() {
			if err := settlementScheduler.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("settlement scheduler stopped")
			}
		}()
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
