package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/postingledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Posting metrics
	PostingsTotal     *prometheus.CounterVec
	PostingReplays    prometheus.Counter
	PostingRejections *prometheus.CounterVec
	PostingRetries    *prometheus.CounterVec
	PostingDuration   prometheus.Histogram
	PostingAmount     prometheus.Histogram
	PendingCreated    prometheus.Counter

	// Lifecycle metrics
	StatusTransitions *prometheus.CounterVec
	Finalizations     *prometheus.CounterVec

	// Ledger metrics
	BalanceMismatches prometheus.Gauge

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter
	OutboxBacklog   prometheus.Gauge

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

// New creates and registers all Prometheus metrics on the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Posting metrics
		PostingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postingledger_postings_total",
				Help: "Total number of committed postings by type and status",
			},
			[]string{"type", "status"},
		),
		PostingReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "postingledger_posting_replays_total",
			Help: "Total number of postings answered from an existing idempotency key",
		}),
		PostingRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postingledger_posting_rejections_total",
				Help: "Total number of rejected postings by reason",
			},
			[]string{"reason"},
		),
		PostingRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postingledger_posting_retries_total",
				Help: "Total posting attempts retried after a transient database error, by reason",
			},
			[]string{"reason"},
		),
		PostingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "postingledger_posting_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostingAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "postingledger_posting_amount_minor",
			Help:    "Posted transaction amounts in minor units",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000},
		}),
		PendingCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "postingledger_pending_created_total",
			Help: "Total number of pending transactions created",
		}),

		// Lifecycle metrics
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postingledger_status_transitions_total",
				Help: "Total lifecycle transitions by source and target status",
			},
			[]string{"from", "to"},
		),
		Finalizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postingledger_finalizations_total",
				Help: "Total deposit finalizations by result",
			},
			[]string{"result"},
		),

		// Ledger metrics
		BalanceMismatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "postingledger_balance_mismatches",
			Help: "Balances that differ from their replayed entries at the last verification",
		}),

		// Outbox metrics
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "postingledger_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "postingledger_outbox_errors_total",
			Help: "Total outbox publish failures",
		}),
		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "postingledger_outbox_backlog",
			Help: "Outbox events waiting to be published after the last poll",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postingledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postingledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "postingledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}
}

// RejectionReason maps a posting error to a low-cardinality label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnbalancedEntries):
		return "unbalanced"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrAccountFrozen):
		return "account_frozen"
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrMetadataTooLarge):
		return "invalid_request"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}
