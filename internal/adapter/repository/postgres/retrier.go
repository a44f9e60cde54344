package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/infrastructure/metrics"
)

// PostgreSQL error codes for retryable errors.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
)

// RetryPolicy bounds the exponential backoff of a Retrier.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy retries a posting up to three times within ten seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithRetryPolicy replaces the default policy.
func WithRetryPolicy(p RetryPolicy) RetrierOption {
	return func(r *Retrier) {
		r.policy = p
	}
}

// WithRetryMetrics counts retries by reason.
func WithRetryMetrics(m *metrics.Metrics) RetrierOption {
	return func(r *Retrier) {
		r.metrics = m
	}
}

// Retrier implements usecase.Retrier with exponential backoff.
type Retrier struct {
	policy  RetryPolicy
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewRetrier creates a new PostgreSQL retrier.
func NewRetrier(logger zerolog.Logger, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		policy: DefaultRetryPolicy(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Retry runs operation until it succeeds, fails permanently or the policy is
// exhausted. The operation must open its own transaction on every call.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = r.policy.MaxElapsedTime

	attempt := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		reason, ok := retryReason(err)
		if !ok {
			return backoff.Permanent(err)
		}

		attempt++
		if attempt > r.policy.MaxRetries {
			return backoff.Permanent(err)
		}

		if r.metrics != nil {
			r.metrics.PostingRetries.WithLabelValues(reason).Inc()
		}

		r.logger.Warn().
			Err(err).
			Str("reason", reason).
			Int("retry", attempt).
			Msg("retryable database error, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}

// retryReason classifies a PostgreSQL error that is worth retrying.
// Two postings creating the same first balance row race on its unique key;
// the loser succeeds on retry because the row then exists.
func retryReason(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	switch pgErr.Code {
	case pgErrDeadlock:
		return "deadlock", true
	case pgErrSerializationFailure:
		return "serialization_failure", true
	case pgErrLockNotAvailable:
		return "lock_timeout", true
	case pgErrUniqueViolation:
		if pgErr.ConstraintName == constraintBalanceAccountCurr {
			return "balance_insert_race", true
		}
	}

	return "", false
}
