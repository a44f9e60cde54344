package handler

import (
	"context"
	"net/http"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

// WalletService runs the user-facing money movements.
type WalletService interface {
	Deposit(ctx context.Context, input usecase.DepositInput) (*domain.Transaction, error)
	Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.Transaction, error)
	TransferP2P(ctx context.Context, input usecase.TransferInput) (*domain.Transaction, error)
	FundEscrow(ctx context.Context, input usecase.EscrowInput) (*domain.Transaction, error)
	ReleaseEscrow(ctx context.Context, input usecase.EscrowInput) (*domain.Transaction, error)
}

// WalletHandler handles wallet HTTP requests.
type WalletHandler struct {
	walletUC WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService) *WalletHandler {
	return &WalletHandler{walletUC: walletUC}
}

// Deposit charges a payment method and records a pending deposit.
// The deposit is credited once the payment webhook confirms it.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	transaction, err := h.walletUC.Deposit(r.Context(), req.ToUseCaseInput(tenantID(r)))
	if err != nil {
		writeDomainError(w, "failed to start deposit", err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.TransactionFromDomain(transaction))
}

// Withdraw pays out to a bank account.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	transaction, err := h.walletUC.Withdraw(r.Context(), req.ToUseCaseInput(tenantID(r)))
	if err != nil {
		writeDomainError(w, "failed to withdraw", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(transaction))
}

// Transfer moves funds between two users.
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	transaction, err := h.walletUC.TransferP2P(r.Context(), req.ToUseCaseInput(tenantID(r)))
	if err != nil {
		writeDomainError(w, "failed to transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(transaction))
}

// FundEscrow moves funds into escrow.
func (h *WalletHandler) FundEscrow(w http.ResponseWriter, r *http.Request) {
	h.escrow(w, r, h.walletUC.FundEscrow, "failed to fund escrow")
}

// ReleaseEscrow pays escrowed funds to the account.
func (h *WalletHandler) ReleaseEscrow(w http.ResponseWriter, r *http.Request) {
	h.escrow(w, r, h.walletUC.ReleaseEscrow, "failed to release escrow")
}

func (h *WalletHandler) escrow(
	w http.ResponseWriter,
	r *http.Request,
	run func(context.Context, usecase.EscrowInput) (*domain.Transaction, error),
	message string,
) {
	var req dto.EscrowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	transaction, err := run(r.Context(), req.ToUseCaseInput(tenantID(r)))
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(transaction))
}
