package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createBalance = `-- name: CreateBalance :exec
INSERT INTO balances (id, tenant_id, account_id, currency, amount_minor, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type CreateBalanceParams struct {
	ID          string             `json:"id"`
	TenantID    pgtype.Text        `json:"tenant_id"`
	AccountID   string             `json:"account_id"`
	Currency    string             `json:"currency"`
	AmountMinor int64              `json:"amount_minor"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateBalance(ctx context.Context, arg CreateBalanceParams) error {
	_, err := q.db.Exec(ctx, createBalance,
		arg.ID,
		arg.TenantID,
		arg.AccountID,
		arg.Currency,
		arg.AmountMinor,
		arg.UpdatedAt,
	)
	return err
}

const getBalance = `-- name: GetBalance :one
SELECT id, tenant_id, account_id, currency, amount_minor, updated_at FROM balances
WHERE account_id = $1 AND currency = $2
`

type GetBalanceParams struct {
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
}

func (q *Queries) GetBalance(ctx context.Context, arg GetBalanceParams) (Balance, error) {
	row := q.db.QueryRow(ctx, getBalance, arg.AccountID, arg.Currency)
	var i Balance
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.AccountID,
		&i.Currency,
		&i.AmountMinor,
		&i.UpdatedAt,
	)
	return i, err
}

const getBalanceForUpdate = `-- name: GetBalanceForUpdate :one
SELECT id, tenant_id, account_id, currency, amount_minor, updated_at FROM balances
WHERE account_id = $1 AND currency = $2
FOR UPDATE
`

type GetBalanceForUpdateParams struct {
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
}

func (q *Queries) GetBalanceForUpdate(ctx context.Context, arg GetBalanceForUpdateParams) (Balance, error) {
	row := q.db.QueryRow(ctx, getBalanceForUpdate, arg.AccountID, arg.Currency)
	var i Balance
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.AccountID,
		&i.Currency,
		&i.AmountMinor,
		&i.UpdatedAt,
	)
	return i, err
}

const getLatestBalance = `-- name: GetLatestBalance :one
SELECT id, tenant_id, account_id, currency, amount_minor, updated_at FROM balances
WHERE account_id = $1
ORDER BY updated_at DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLatestBalance(ctx context.Context, accountID string) (Balance, error) {
	row := q.db.QueryRow(ctx, getLatestBalance, accountID)
	var i Balance
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.AccountID,
		&i.Currency,
		&i.AmountMinor,
		&i.UpdatedAt,
	)
	return i, err
}

const updateBalanceAmount = `-- name: UpdateBalanceAmount :exec
UPDATE balances SET amount_minor = $2, updated_at = $3 WHERE id = $1
`

type UpdateBalanceAmountParams struct {
	ID          string             `json:"id"`
	AmountMinor int64              `json:"amount_minor"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateBalanceAmount(ctx context.Context, arg UpdateBalanceAmountParams) error {
	_, err := q.db.Exec(ctx, updateBalanceAmount, arg.ID, arg.AmountMinor, arg.UpdatedAt)
	return err
}
