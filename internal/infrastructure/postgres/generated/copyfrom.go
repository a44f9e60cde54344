package generated

import (
	"context"
)

// iteratorForCreateEntries implements pgx.CopyFromSource.
type iteratorForCreateEntries struct {
	rows                 []CreateEntriesParams
	skippedFirstNextCall bool
}

func (r *iteratorForCreateEntries) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForCreateEntries) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].ID,
		r.rows[0].TenantID,
		r.rows[0].TransactionID,
		r.rows[0].AccountID,
		r.rows[0].Direction,
		r.rows[0].Currency,
		r.rows[0].AmountMinor,
		r.rows[0].Description,
		r.rows[0].CreatedAt,
	}, nil
}

func (r iteratorForCreateEntries) Err() error {
	return nil
}

func (q *Queries) CreateEntries(ctx context.Context, arg []CreateEntriesParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"entries"}, []string{"id", "tenant_id", "transaction_id", "account_id", "direction", "currency", "amount_minor", "description", "created_at"}, &iteratorForCreateEntries{rows: arg})
}
