package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

// SettlementService finalizes confirmed deposits.
type SettlementService interface {
	FinalizeDeposit(ctx context.Context, input usecase.FinalizeDepositInput) (*domain.Transaction, error)
}

// PendingLookup finds a pending transaction by its gateway reference.
type PendingLookup interface {
	FindPendingTransactionByRefID(ctx context.Context, gatewayRefID string) (*domain.Transaction, error)
}

// WebhookHandler handles payment gateway callbacks.
type WebhookHandler struct {
	settlementUC SettlementService
	statusUC     StatusService
	pending      PendingLookup
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(settlementUC SettlementService, statusUC StatusService, pending PendingLookup) *WebhookHandler {
	return &WebhookHandler{
		settlementUC: settlementUC,
		statusUC:     statusUC,
		pending:      pending,
	}
}

// Payment finalizes a deposit the gateway confirmed, or marks it FAILED
// when the gateway reports a failed payment.
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentWebhookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	switch req.Status {
	case "", dto.PaymentSucceeded:
		transaction, err := h.settlementUC.FinalizeDeposit(r.Context(), req.ToUseCaseInput())
		if err != nil {
			writeDomainError(w, "failed to finalize deposit", err)
			return
		}

		writeJSON(w, http.StatusOK, dto.TransactionFromDomain(transaction))
	case dto.PaymentFailed:
		transaction, err := h.fail(r.Context(), req)
		if err != nil {
			writeDomainError(w, "failed to record payment failure", err)
			return
		}

		writeJSON(w, http.StatusOK, dto.TransactionFromDomain(transaction))
	default:
		writeError(w, http.StatusBadRequest, "unknown payment status", req.Status)
	}
}

func (h *WebhookHandler) fail(ctx context.Context, req dto.PaymentWebhookRequest) (*domain.Transaction, error) {
	id := req.TransactionID
	if id == "" {
		if req.ExternalRefID == "" {
			return nil, fmt.Errorf("%w: transaction id or external reference is required", domain.ErrInvalidRequest)
		}

		pending, err := h.pending.FindPendingTransactionByRefID(ctx, req.ExternalRefID)
		if err != nil {
			return nil, err
		}

		id = pending.ID
	}

	input := usecase.UpdateStatusInput{TransactionID: id, Status: domain.StatusFailed}
	if req.ExternalRefID != "" {
		input.GatewayRefID = &req.ExternalRefID
	}

	return h.statusUC.UpdateTransactionStatus(ctx, input)
}
