package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepositoryFindBalanceMismatches(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("FULL OUTER JOIN replayed").
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "currency", "stored_minor", "replayed_minor"}).
			AddRow("acc-1", "USD", int64(10), int64(0)))

	mismatches, err := NewLedgerRepository(mock).FindBalanceMismatches(context.Background())
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, int64(10), mismatches[0].StoredMinor)
	assertExpectations(t, mock)
}

func TestLedgerRepositoryTotalsByCurrency(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("GROUP BY currency").
		WillReturnRows(pgxmock.NewRows([]string{"currency", "total_debit", "total_credit"}).
			AddRow("EUR", int64(7), int64(7)).
			AddRow("USD", int64(100), int64(100)))

	totals, err := NewLedgerRepository(mock).TotalsByCurrency(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "USD", totals[1].Currency)
	assertExpectations(t, mock)
}
