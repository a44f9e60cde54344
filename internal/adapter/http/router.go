package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/adapter/http/handler"
	"github.com/iho/postingledger/internal/adapter/http/middleware"
	"github.com/iho/postingledger/internal/infrastructure/metrics"
	"github.com/iho/postingledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	AccountHandler     *handler.AccountHandler
	WalletHandler      *handler.WalletHandler
	WebhookHandler     *handler.WebhookHandler
	LedgerHandler      *handler.LedgerHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	// WebhookLimiter throttles payment callbacks when set.
	WebhookLimiter *middleware.RateLimiter
	Metrics        *metrics.Metrics
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler
	Logger         zerolog.Logger
	IdempotencyTTL time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Idempotency middleware for mutating requests
			if cfg.IdempotencyStore != nil {
				idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
				r.Use(idempotencyMiddleware.Wrap)
			}

			// Transactions
			r.Route("/transactions", func(r chi.Router) {
				r.Post("/", cfg.TransactionHandler.Create)
				r.Post("/pending", cfg.TransactionHandler.CreatePending)
				r.Get("/by-ref/{ref}", cfg.TransactionHandler.GetByRef)
				r.Get("/{id}", cfg.TransactionHandler.Get)
				r.Get("/{id}/entries", cfg.TransactionHandler.ListEntries)
				r.Patch("/{id}/status", cfg.TransactionHandler.UpdateStatus)
			})

			// Accounts
			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", cfg.AccountHandler.Create)
				r.Get("/{id}", cfg.AccountHandler.Get)
				r.Put("/{id}/frozen", cfg.AccountHandler.SetFrozen)
				r.Get("/{id}/balance", cfg.AccountHandler.GetBalance)
				r.Get("/{id}/transactions", cfg.AccountHandler.ListTransactions)
			})

			// Wallet
			r.Route("/wallet", func(r chi.Router) {
				r.Post("/deposits", cfg.WalletHandler.Deposit)
				r.Post("/withdrawals", cfg.WalletHandler.Withdraw)
				r.Post("/transfers", cfg.WalletHandler.Transfer)
				r.Post("/escrow/fund", cfg.WalletHandler.FundEscrow)
				r.Post("/escrow/release", cfg.WalletHandler.ReleaseEscrow)
			})
		})

		// Webhooks
		r.Route("/webhooks", func(r chi.Router) {
			if cfg.WebhookLimiter != nil {
				r.Use(cfg.WebhookLimiter.Limit)
			}
			r.Post("/payments", cfg.WebhookHandler.Payment)
		})

		r.Get("/ledger/verify", cfg.LedgerHandler.Verify)
	})

	return r
}
