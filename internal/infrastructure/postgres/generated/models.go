package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID                   string             `json:"id"`
	TenantID             pgtype.Text        `json:"tenant_id"`
	OwnerID              pgtype.Text        `json:"owner_id"`
	Type                 string             `json:"type"`
	Frozen               bool               `json:"frozen"`
	AllowNegativeBalance bool               `json:"allow_negative_balance"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
}

type Balance struct {
	ID          string             `json:"id"`
	TenantID    pgtype.Text        `json:"tenant_id"`
	AccountID   string             `json:"account_id"`
	Currency    string             `json:"currency"`
	AmountMinor int64              `json:"amount_minor"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Entry struct {
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

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	Published     bool               `json:"published"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
}

type Transaction struct {
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
