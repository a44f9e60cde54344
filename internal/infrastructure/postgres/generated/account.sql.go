package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (id, tenant_id, owner_id, type, frozen, allow_negative_balance, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateAccountParams struct {
	ID                   string             `json:"id"`
	TenantID             pgtype.Text        `json:"tenant_id"`
	OwnerID              pgtype.Text        `json:"owner_id"`
	Type                 string             `json:"type"`
	Frozen               bool               `json:"frozen"`
	AllowNegativeBalance bool               `json:"allow_negative_balance"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.Exec(ctx, createAccount,
		arg.ID,
		arg.TenantID,
		arg.OwnerID,
		arg.Type,
		arg.Frozen,
		arg.AllowNegativeBalance,
		arg.CreatedAt,
	)
	return err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT id, tenant_id, owner_id, type, frozen, allow_negative_balance, created_at FROM accounts WHERE id = $1
`

func (q *Queries) GetAccountByID(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.OwnerID,
		&i.Type,
		&i.Frozen,
		&i.AllowNegativeBalance,
		&i.CreatedAt,
	)
	return i, err
}

const getAccountsByIDs = `-- name: GetAccountsByIDs :many
SELECT id, tenant_id, owner_id, type, frozen, allow_negative_balance, created_at FROM accounts
WHERE id = ANY($1::varchar[])
ORDER BY id
`

func (q *Queries) GetAccountsByIDs(ctx context.Context, ids []string) ([]Account, error) {
	rows, err := q.db.Query(ctx, getAccountsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.TenantID,
			&i.OwnerID,
			&i.Type,
			&i.Frozen,
			&i.AllowNegativeBalance,
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

const setAccountFrozen = `-- name: SetAccountFrozen :execrows
UPDATE accounts SET frozen = $2 WHERE id = $1
`

type SetAccountFrozenParams struct {
	ID     string `json:"id"`
	Frozen bool   `json:"frozen"`
}

func (q *Queries) SetAccountFrozen(ctx context.Context, arg SetAccountFrozenParams) (int64, error) {
	result, err := q.db.Exec(ctx, setAccountFrozen, arg.ID, arg.Frozen)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
