package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

// PostingService posts balanced and pending transactions.
type PostingService interface {
	Post(ctx context.Context, input usecase.CreateTransactionInput) (*usecase.PostingResult, error)
	CreatePending(ctx context.Context, input usecase.CreatePendingInput) (*usecase.PostingResult, error)
}

// StatusService moves transactions through their lifecycle.
type StatusService interface {
	UpdateTransactionStatus(ctx context.Context, input usecase.UpdateStatusInput) (*domain.Transaction, error)
}

// TransactionQueryService reads transactions and their entries.
type TransactionQueryService interface {
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	GetTransactionEntries(ctx context.Context, transactionID string) ([]*domain.Entry, error)
	FindTransactionByRefID(ctx context.Context, gatewayRefID string) (*domain.Transaction, error)
	FindPendingTransactionByRefID(ctx context.Context, gatewayRefID string) (*domain.Transaction, error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	postingUC PostingService
	statusUC  StatusService
	queryUC   TransactionQueryService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(postingUC PostingService, statusUC StatusService, queryUC TransactionQueryService) *TransactionHandler {
	return &TransactionHandler{
		postingUC: postingUC,
		statusUC:  statusUC,
		queryUC:   queryUC,
	}
}

// Create posts a balanced transaction.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.postingUC.Post(r.Context(), req.ToUseCaseInput(tenantID(r)))
	if err != nil {
		writeDomainError(w, "failed to post transaction", err)
		return
	}

	writePostingResult(w, result)
}

// CreatePending opens a pending transaction without entries.
func (h *TransactionHandler) CreatePending(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePendingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.postingUC.CreatePending(r.Context(), req.ToUseCaseInput(tenantID(r)))
	if err != nil {
		writeDomainError(w, "failed to create pending transaction", err)
		return
	}

	writePostingResult(w, result)
}

// Get retrieves a transaction with its entries.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	transaction, err := h.queryUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get transaction", err)
		return
	}

	entries, err := h.queryUC.GetTransactionEntries(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get transaction entries", err)
		return
	}

	resp := dto.TransactionFromDomain(transaction)
	resp.Entries = dto.EntriesFromDomain(entries)

	writeJSON(w, http.StatusOK, resp)
}

// ListEntries lists the entries of a transaction.
func (h *TransactionHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queryUC.GetTransactionEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// GetByRef finds a transaction by gateway reference. With ?pending=true
// only a PENDING transaction matches.
func (h *TransactionHandler) GetByRef(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	var (
		transaction *domain.Transaction
		err         error
	)

	if r.URL.Query().Get("pending") == "true" {
		transaction, err = h.queryUC.FindPendingTransactionByRefID(r.Context(), ref)
	} else {
		transaction, err = h.queryUC.FindTransactionByRefID(r.Context(), ref)
	}

	if err != nil {
		writeDomainError(w, "failed to find transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(transaction))
}

// UpdateStatus applies a lifecycle move.
func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	transaction, err := h.statusUC.UpdateTransactionStatus(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id"), tenantID(r)))
	if err != nil {
		writeDomainError(w, "failed to update transaction status", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(transaction))
}

func writePostingResult(w http.ResponseWriter, result *usecase.PostingResult) {
	if result.Replayed {
		w.Header().Set(ReplayHeader, "true")
		writeJSON(w, http.StatusOK, dto.TransactionFromDomain(result.Transaction))

		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(result.Transaction))
}
