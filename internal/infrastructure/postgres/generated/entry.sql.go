package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type CreateEntriesParams struct {
	ID            string             `json:"id"`
	TenantID      pgtype.Text        `json:"tenant_id"`
	TransactionID string             `json:"transaction_id"`
	AccountID     string             `json:"account_id"`
	Direction     string             `json:"direction"`
	Currency      string             `json:"currency"`
	AmountMinor   int64              `json:"amount_minor"`
	Description   string             `json:"description"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

const listEntriesByTransaction = `-- name: ListEntriesByTransaction :many
SELECT id, tenant_id, transaction_id, account_id, direction, currency, amount_minor, description, created_at FROM entries
WHERE transaction_id = $1
ORDER BY id
`

func (q *Queries) ListEntriesByTransaction(ctx context.Context, transactionID string) ([]Entry, error) {
	rows, err := q.db.Query(ctx, listEntriesByTransaction, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entry
	for rows.Next() {
		var i Entry
		if err := rows.Scan(
			&i.ID,
			&i.TenantID,
			&i.TransactionID,
			&i.AccountID,
			&i.Direction,
			&i.Currency,
			&i.AmountMinor,
			&i.Description,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
