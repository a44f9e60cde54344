package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/postingledger/internal/domain"
)

func TestEntryRepositoryCreateBatch(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"entries"}, []string{
		"id", "tenant_id", "transaction_id", "account_id", "direction", "currency", "amount_minor", "description", "created_at",
	}).WillReturnResult(2)
	mock.ExpectCommit()

	tx, err := newTxManagerWithPool(mock, WithLockTimeout(0)).Begin(context.Background())
	require.NoError(t, err)

	now := time.Now()
	err = NewEntryRepository(mock).CreateBatch(context.Background(), tx, []*domain.Entry{
		{ID: "e1", TransactionID: "tx-1", AccountID: "a", Direction: domain.DirectionDebit, Currency: "USD", AmountMinor: 5, CreatedAt: now},
		{ID: "e2", TransactionID: "tx-1", AccountID: "b", Direction: domain.DirectionCredit, Currency: "USD", AmountMinor: 5, CreatedAt: now},
	})
	require.NoError(t, err)

	require.NoError(t, tx.Commit(context.Background()))
	assertExpectations(t, mock)
}

func TestEntryRepositoryCreateBatchEmpty(t *testing.T) {
	mock := newMockPool(t)

	require.NoError(t, NewEntryRepository(mock).CreateBatch(context.Background(), nil, nil))
	assertExpectations(t, mock)
}

func TestEntryRepositoryListByTransaction(t *testing.T) {
	mock := newMockPool(t)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM entries").
		WithArgs("tx-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "transaction_id", "account_id", "direction", "currency", "amount_minor", "description", "created_at",
		}).
			AddRow("e1", nil, "tx-1", "a", "DEBIT", "USD", int64(5), "", now).
			AddRow("e2", nil, "tx-1", "b", "CREDIT", "USD", int64(5), "rent", now))

	entries, err := NewEntryRepository(mock).ListByTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.DirectionDebit, entries[0].Direction)
	assert.Equal(t, "rent", entries[1].Description)
	assertExpectations(t, mock)
}
