package domain

import "time"

// Event types
const (
	EventTypeTransactionPosted        = "transaction.posted"
	EventTypeTransactionPending       = "transaction.pending_created"
	EventTypeTransactionStatusChanged = "transaction.status_changed"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
)

// Metadata event markers written by the wallet and settlement flows.
const (
	EventDepositPending       = "DEPOSIT_PENDING"
	EventDepositPostedWebhook = "DEPOSIT_POSTED_WEBHOOK"
	EventWithdrawal           = "WITHDRAWAL"
	EventWithdrawalReversal   = "WITHDRAWAL_REVERSAL"
	EventP2PTransfer          = "P2P_TRANSFER"
	EventEscrowLock           = "ESCROW_LOCK"
	EventEscrowRelease        = "ESCROW_RELEASE"
	MetaEvent                 = "event"
	MetaPendingTransactionID  = "pendingTransactionId"
	MetaReversedTransactionID = "reversedTransactionId"
	MetaEscrowRefID           = "escrowRefId"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Payload       map[string]any
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Published     bool
}

// TransactionPostedEvent payload
type TransactionPostedEvent struct {
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Currency      string `json:"currency"`
	AmountMinor   string `json:"amount_minor"`
	Entries       int    `json:"entries"`
}

// TransactionStatusChangedEvent payload
type TransactionStatusChangedEvent struct {
	TransactionID string `json:"transaction_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	GatewayRefID  string `json:"gateway_ref_id,omitempty"`
}
