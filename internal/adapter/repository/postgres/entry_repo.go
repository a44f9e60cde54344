package postgres

import (
	"context"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/postgres/generated"
	"github.com/iho/postingledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// CreateBatch copies all legs of a transaction in one round trip.
func (r *EntryRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, entries []*domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	params := make([]generated.CreateEntriesParams, 0, len(entries))
	for _, e := range entries {
		params = append(params, generated.CreateEntriesParams{
			ID:            e.ID,
			TenantID:      textFromPtr(e.TenantID),
			TransactionID: e.TransactionID,
			AccountID:     e.AccountID,
			Direction:     string(e.Direction),
			Currency:      e.Currency,
			AmountMinor:   e.AmountMinor,
			Description:   e.Description,
			CreatedAt:     timeToPgTimestamptz(e.CreatedAt),
		})
	}

	_, err := queriesFor(r.db, tx).CreateEntries(ctx, params)

	return err
}

// ListByTransaction returns the entries of a transaction.
func (r *EntryRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.Entry, error) {
	rows, err := r.queries.ListEntriesByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.Entry{
			ID:            row.ID,
			TenantID:      ptrFromText(row.TenantID),
			TransactionID: row.TransactionID,
			AccountID:     row.AccountID,
			Direction:     domain.Direction(row.Direction),
			Currency:      row.Currency,
			AmountMinor:   row.AmountMinor,
			Description:   row.Description,
			CreatedAt:     row.CreatedAt.Time,
		})
	}

	return entries, nil
}
