package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/postingledger/internal/adapter/gateway"
	httpAdapter "github.com/iho/postingledger/internal/adapter/http"
	"github.com/iho/postingledger/internal/adapter/http/handler"
	"github.com/iho/postingledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/postingledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/postingledger/internal/adapter/repository/redis"
	"github.com/iho/postingledger/internal/infrastructure/config"
	"github.com/iho/postingledger/internal/infrastructure/eventpublisher"
	"github.com/iho/postingledger/internal/infrastructure/logger"
	"github.com/iho/postingledger/internal/infrastructure/metrics"
	"github.com/iho/postingledger/internal/infrastructure/postgres"
	"github.com/iho/postingledger/internal/infrastructure/redis"
	"github.com/iho/postingledger/internal/usecase"
)

const (
	serviceName          = "postingledger"
	limiterCleanupPeriod = time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		stop()
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool, postgresRepo.WithLockTimeout(cfg.DatabaseLockTimeout))
	accountRepo := postgresRepo.NewAccountRepository(pool)
	balanceRepo := postgresRepo.NewBalanceRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log, postgresRepo.WithRetryMetrics(m))
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	locker := redisRepo.NewLocker(redisClient)
	systemAccounts := cfg.SystemAccounts()

	// Use cases
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen, log)
	postingUC := usecase.NewPostingUseCase(txManager, accountRepo, balanceRepo, transactionRepo, entryRepo, outboxRepo, idGen, retrier, m, log)
	lifecycleUC := usecase.NewLifecycleUseCase(txManager, transactionRepo, outboxRepo, idGen, m, log)
	queryUC := usecase.NewQueryUseCase(balanceRepo, transactionRepo, entryRepo)
	settlementUC := usecase.NewSettlementUseCase(postingUC, lifecycleUC, queryUC, locker, systemAccounts, cfg.DepositFees(), m, log)
	walletUC := usecase.NewWalletUseCase(postingUC, lifecycleUC, gateway.NewStaticGateway(), systemAccounts, cfg.DepositFees(), cfg.P2PFees(), log)
	reconciliationUC := usecase.NewReconciliationUseCase(ledgerRepo, m, log)

	if err := accountUC.EnsureSystemAccounts(ctx, systemAccounts); err != nil {
		return fmt.Errorf("ensure system accounts: %w", err)
	}

	webhookLimiter := middleware.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookRateBurst)
	healthHandler := handler.NewHealthHandler(
		handler.PingFunc(pool.Ping),
		handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(postingUC, lifecycleUC, queryUC),
		AccountHandler:     handler.NewAccountHandler(accountUC, queryUC),
		WalletHandler:      handler.NewWalletHandler(walletUC),
		WebhookHandler:     handler.NewWebhookHandler(settlementUC, lifecycleUC, queryUC),
		LedgerHandler:      handler.NewLedgerHandler(reconciliationUC),
		HealthHandler:      healthHandler,
		IdempotencyStore:   idempotencyStore,
		WebhookLimiter:     webhookLimiter,
		Metrics:            m,
		Logger:             log,
		IdempotencyTTL:     cfg.IdempotencyTTL,
	})

	server := newHTTPServer(cfg, router)

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(log),
		Metrics:    m,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := publisher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox publisher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		webhookLimiter.RunCleanup(gctx, limiterCleanupPeriod, limiterMaxIdle)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTPShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         listenAddr(cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

// listenAddr accepts either a bare port or a host:port pair.
func listenAddr(port string) string {
	if _, _, err := net.SplitHostPort(port); err == nil {
		return port
	}
	return ":" + port
}
