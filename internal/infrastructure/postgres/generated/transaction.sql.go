package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, tenant_id, owner_account_id, gateway_ref_id, idempotency_key, type, currency, status, amount_minor, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type CreateTransactionParams struct {
	ID             string             `json:"id"`
	TenantID       pgtype.Text        `json:"tenant_id"`
	OwnerAccountID pgtype.Text        `json:"owner_account_id"`
	GatewayRefID   pgtype.Text        `json:"gateway_ref_id"`
	IdempotencyKey pgtype.Text        `json:"idempotency_key"`
	Type           string             `json:"type"`
	Currency       string             `json:"currency"`
	Status         string             `json:"status"`
	AmountMinor    int64              `json:"amount_minor"`
	Metadata       []byte             `json:"metadata"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.TenantID,
		arg.OwnerAccountID,
		arg.GatewayRefID,
		arg.IdempotencyKey,
		arg.Type,
		arg.Currency,
		arg.Status,
		arg.AmountMinor,
		arg.Metadata,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getPendingTransactionByID = `-- name: GetPendingTransactionByID :one
SELECT id, tenant_id, owner_account_id, gateway_ref_id, idempotency_key, type, currency, status, amount_minor, metadata, created_at, updated_at FROM transactions
WHERE id = $1 AND status = 'PENDING'
`

func (q *Queries) GetPendingTransactionByID(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getPendingTransactionByID, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.OwnerAccountID,
		&i.GatewayRefID,
		&i.IdempotencyKey,
		&i.Type,
		&i.Currency,
		&i.Status,
		&i.AmountMinor,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTransactionByGatewayRef = `-- name: GetTransactionByGatewayRef :one
SELECT id, tenant_id, owner_account_id, gateway_ref_id, idempotency_key, type, currency, status, amount_minor, metadata, created_at, updated_at FROM transactions
WHERE gateway_ref_id = $1::varchar
  AND ($2::varchar IS NULL OR status = $2::varchar)
ORDER BY created_at, id
LIMIT 1
`

type GetTransactionByGatewayRefParams struct {
	GatewayRefID string      `json:"gateway_ref_id"`
	Status       pgtype.Text `json:"status"`
}

func (q *Queries) GetTransactionByGatewayRef(ctx context.Context, arg GetTransactionByGatewayRefParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByGatewayRef, arg.GatewayRefID, arg.Status)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.OwnerAccountID,
		&i.GatewayRefID,
		&i.IdempotencyKey,
		&i.Type,
		&i.Currency,
		&i.Status,
		&i.AmountMinor,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTransactionByID = `-- name: GetTransactionByID :one
SELECT id, tenant_id, owner_account_id, gateway_ref_id, idempotency_key, type, currency, status, amount_minor, metadata, created_at, updated_at FROM transactions
WHERE id = $1
`

func (q *Queries) GetTransactionByID(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByID, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.OwnerAccountID,
		&i.GatewayRefID,
		&i.IdempotencyKey,
		&i.Type,
		&i.Currency,
		&i.Status,
		&i.AmountMinor,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTransactionByIdempotencyKey = `-- name: GetTransactionByIdempotencyKey :one
SELECT id, tenant_id, owner_account_id, gateway_ref_id, idempotency_key, type, currency, status, amount_minor, metadata, created_at, updated_at FROM transactions
WHERE COALESCE(tenant_id, '') = COALESCE($1::varchar, '')
  AND idempotency_key = $2::varchar
`

type GetTransactionByIdempotencyKeyParams struct {
	TenantID       pgtype.Text `json:"tenant_id"`
	IdempotencyKey string      `json:"idempotency_key"`
}

func (q *Queries) GetTransactionByIdempotencyKey(ctx context.Context, arg GetTransactionByIdempotencyKeyParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByIdempotencyKey, arg.TenantID, arg.IdempotencyKey)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.OwnerAccountID,
		&i.GatewayRefID,
		&i.IdempotencyKey,
		&i.Type,
		&i.Currency,
		&i.Status,
		&i.AmountMinor,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTransactionForUpdate = `-- name: GetTransactionForUpdate :one
SELECT id, tenant_id, owner_account_id, gateway_ref_id, idempotency_key, type, currency, status, amount_minor, metadata, created_at, updated_at FROM transactions
WHERE id = $1
  AND ($2::varchar IS NULL OR tenant_id = $2::varchar)
FOR UPDATE
`

type GetTransactionForUpdateParams struct {
	ID       string      `json:"id"`
	TenantID pgtype.Text `json:"tenant_id"`
}

func (q *Queries) GetTransactionForUpdate(ctx context.Context, arg GetTransactionForUpdateParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionForUpdate, arg.ID, arg.TenantID)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.OwnerAccountID,
		&i.GatewayRefID,
		&i.IdempotencyKey,
		&i.Type,
		&i.Currency,
		&i.Status,
		&i.AmountMinor,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listTransactionsByOwner = `-- name: ListTransactionsByOwner :many
SELECT id, tenant_id, owner_account_id, gateway_ref_id, idempotency_key, type, currency, status, amount_minor, metadata, created_at, updated_at FROM transactions
WHERE owner_account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type ListTransactionsByOwnerParams struct {
	OwnerAccountID pgtype.Text `json:"owner_account_id"`
	Limit          int32       `json:"limit"`
	Offset         int32       `json:"offset"`
}

func (q *Queries) ListTransactionsByOwner(ctx context.Context, arg ListTransactionsByOwnerParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByOwner, arg.OwnerAccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.TenantID,
			&i.OwnerAccountID,
			&i.GatewayRefID,
			&i.IdempotencyKey,
			&i.Type,
			&i.Currency,
			&i.Status,
			&i.AmountMinor,
			&i.Metadata,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const lockIdempotencyKey = `-- name: LockIdempotencyKey :exec
SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))
`

func (q *Queries) LockIdempotencyKey(ctx context.Context, lockKey string) error {
	_, err := q.db.Exec(ctx, lockIdempotencyKey, lockKey)
	return err
}

const updateTransactionStatus = `-- name: UpdateTransactionStatus :exec
UPDATE transactions SET status = $2, gateway_ref_id = $3, updated_at = $4 WHERE id = $1
`

type UpdateTransactionStatusParams struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	GatewayRefID pgtype.Text        `json:"gateway_ref_id"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) error {
	_, err := q.db.Exec(ctx, updateTransactionStatus,
		arg.ID,
		arg.Status,
		arg.GatewayRefID,
		arg.UpdatedAt,
	)
	return err
}
