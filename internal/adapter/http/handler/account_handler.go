package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	SetFrozen(ctx context.Context, id string, frozen bool) (*domain.Account, error)
}

// AccountQueryService reads balances and owned transactions.
type AccountQueryService interface {
	GetAccountBalance(ctx context.Context, accountID, currency string) (string, error)
	GetAccountTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	queryUC   AccountQueryService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, queryUC AccountQueryService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, queryUC: queryUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput(tenantID(r)))
	if err != nil {
		writeDomainError(w, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// SetFrozen freezes or unfreezes an account.
func (h *AccountHandler) SetFrozen(w http.ResponseWriter, r *http.Request) {
	var req dto.SetFrozenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.SetFrozen(r.Context(), chi.URLParam(r, "id"), req.Frozen)
	if err != nil {
		writeDomainError(w, "failed to update account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// GetBalance returns the account balance, optionally for one currency.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	currency := r.URL.Query().Get("currency")

	balance, err := h.queryUC.GetAccountBalance(r.Context(), id, currency)
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		AccountID: id,
		Currency:  currency,
		Balance:   balance,
	})
}

// ListTransactions lists transactions owned by the account, newest first.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.queryUC.GetAccountTransactions(r.Context(), usecase.ListTransactionsInput{
		OwnerAccountID: chi.URLParam(r, "id"),
		Limit:          parseIntQuery(r, "limit", 20),
		Offset:         parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(transactions))
}
