package generated

import (
	"context"
)

const findBalanceMismatches = `-- name: FindBalanceMismatches :many
WITH replayed AS (
    SELECT account_id, currency,
           SUM(CASE WHEN direction = 'CREDIT' THEN amount_minor ELSE -amount_minor END)::bigint AS replayed_minor
    FROM entries
    GROUP BY account_id, currency
)
SELECT COALESCE(b.account_id, r.account_id)::varchar AS account_id,
       COALESCE(b.currency, r.currency)::varchar AS currency,
       COALESCE(b.amount_minor, 0)::bigint AS stored_minor,
       COALESCE(r.replayed_minor, 0)::bigint AS replayed_minor
FROM balances b
FULL OUTER JOIN replayed r ON r.account_id = b.account_id AND r.currency = b.currency
WHERE COALESCE(b.amount_minor, 0) <> COALESCE(r.replayed_minor, 0)
ORDER BY 1, 2
`

type FindBalanceMismatchesRow struct {
	AccountID     string `json:"account_id"`
	Currency      string `json:"currency"`
	StoredMinor   int64  `json:"stored_minor"`
	ReplayedMinor int64  `json:"replayed_minor"`
}

func (q *Queries) FindBalanceMismatches(ctx context.Context) ([]FindBalanceMismatchesRow, error) {
	rows, err := q.db.Query(ctx, findBalanceMismatches)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FindBalanceMismatchesRow
	for rows.Next() {
		var i FindBalanceMismatchesRow
		if err := rows.Scan(
			&i.AccountID,
			&i.Currency,
			&i.StoredMinor,
			&i.ReplayedMinor,
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

const totalsByCurrency = `-- name: TotalsByCurrency :many
SELECT currency,
       COALESCE(SUM(amount_minor) FILTER (WHERE direction = 'DEBIT'), 0)::bigint AS total_debit,
       COALESCE(SUM(amount_minor) FILTER (WHERE direction = 'CREDIT'), 0)::bigint AS total_credit
FROM entries
GROUP BY currency
ORDER BY currency
`

type TotalsByCurrencyRow struct {
	Currency    string `json:"currency"`
	TotalDebit  int64  `json:"total_debit"`
	TotalCredit int64  `json:"total_credit"`
}

func (q *Queries) TotalsByCurrency(ctx context.Context) ([]TotalsByCurrencyRow, error) {
	rows, err := q.db.Query(ctx, totalsByCurrency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TotalsByCurrencyRow
	for rows.Next() {
		var i TotalsByCurrencyRow
		if err := rows.Scan(&i.Currency, &i.TotalDebit, &i.TotalCredit); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
