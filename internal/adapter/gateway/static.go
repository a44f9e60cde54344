// Package gateway holds payment gateway connectors.
package gateway

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/iho/postingledger/internal/usecase"
)

// StaticGateway simulates a provider that approves every request and
// answers with a synthetic reference id. Settlement of charges still arrives
// through the payments webhook.
type StaticGateway struct{}

// NewStaticGateway creates a new StaticGateway.
func NewStaticGateway() StaticGateway {
	return StaticGateway{}
}

// Charge approves a card charge.
func (StaticGateway) Charge(_ context.Context, req usecase.PaymentRequest) (string, error) {
	if req.AmountMinor <= 0 {
		return "", fmt.Errorf("charge amount must be positive, got %d", req.AmountMinor)
	}

	return "ch_" + ulid.Make().String(), nil
}

// Payout approves a bank payout.
func (StaticGateway) Payout(_ context.Context, req usecase.PaymentRequest) (string, error) {
	if req.AmountMinor <= 0 {
		return "", fmt.Errorf("payout amount must be positive, got %d", req.AmountMinor)
	}

	return "po_" + ulid.Make().String(), nil
}
