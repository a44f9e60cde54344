package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/postingledger/internal/infrastructure/postgres/generated"
	"github.com/iho/postingledger/internal/usecase"
)

const (
	pgErrUniqueViolation = "23505"

	constraintAccountsPK           = "accounts_pkey"
	constraintBalanceAccountCurr   = "balances_account_currency_key"
	constraintTenantIdempotencyKey = "transactions_tenant_idempotency_key"
)

// queriesFor binds queries to the open transaction, or to db when tx is nil.
func queriesFor(db generated.DBTX, tx usecase.Transaction) *generated.Queries {
	if tx == nil {
		return generated.New(db)
	}

	if t, ok := tx.(*Tx); ok {
		return generated.New(t.PgxTx())
	}

	return generated.New(db)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == pgErrUniqueViolation && pgErr.ConstraintName == constraint
}

func textFromPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}

	return pgtype.Text{String: *s, Valid: true}
}

func ptrFromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}

	s := t.String
	return &s
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func ptrFromTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time
	return &v
}
