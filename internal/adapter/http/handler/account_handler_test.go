package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

type accountServiceStub struct {
	createFn    func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	getFn       func(ctx context.Context, id string) (*domain.Account, error)
	setFrozenFn func(ctx context.Context, id string, frozen bool) (*domain.Account, error)
}

func (s *accountServiceStub) CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
	return s.createFn(ctx, input)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *accountServiceStub) SetFrozen(ctx context.Context, id string, frozen bool) (*domain.Account, error) {
	return s.setFrozenFn(ctx, id, frozen)
}

type accountQueryStub struct {
	balanceFn      func(ctx context.Context, accountID, currency string) (string, error)
	transactionsFn func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

func (s *accountQueryStub) GetAccountBalance(ctx context.Context, accountID, currency string) (string, error) {
	return s.balanceFn(ctx, accountID, currency)
}

func (s *accountQueryStub) GetAccountTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
	return s.transactionsFn(ctx, input)
}

func TestAccountHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateAccountInput
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			captured = input
			return &domain.Account{ID: "wallet-1", Type: input.Type, TenantID: input.TenantID}, nil
		},
	}, &accountQueryStub{})

	body, _ := json.Marshal(dto.CreateAccountRequest{ID: "wallet-1", Type: "LIABILITY"})

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	req.Header.Set(TenantHeader, "tenant-a")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.ID != "wallet-1" || captured.Type != domain.AccountTypeLiability {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	if captured.TenantID == nil || *captured.TenantID != "tenant-a" {
		t.Fatalf("expected tenant from header, got %v", captured.TenantID)
	}

	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "wallet-1" || resp.Type != "LIABILITY" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAccountHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "invalid json", body: "{", status: http.StatusBadRequest},
		{name: "duplicate", body: `{"id":"a","type":"ASSET"}`, err: domain.ErrAccountExists, status: http.StatusConflict},
		{name: "bad type", body: `{"type":"WALLET"}`, err: domain.ErrInvalidRequest, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAccountHandler(&accountServiceStub{
				createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
					return nil, tt.err
				},
			}, &accountQueryStub{})

			rec := httptest.NewRecorder()
			handler.Create(rec, httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Account, error) {
			return nil, domain.ErrAccountNotFound
		},
	}, &accountQueryStub{})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountHandler_Get_MissingID(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{}, &accountQueryStub{})

	rec := httptest.NewRecorder()
	handler.Get(rec, httptest.NewRequest(http.MethodGet, "/accounts/", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_SetFrozen(t *testing.T) {
	var gotFrozen bool
	handler := NewAccountHandler(&accountServiceStub{
		setFrozenFn: func(ctx context.Context, id string, frozen bool) (*domain.Account, error) {
			gotFrozen = frozen
			return &domain.Account{ID: id, Frozen: frozen}, nil
		},
	}, &accountQueryStub{})

	req := httptest.NewRequest(http.MethodPut, "/accounts/acc-1/frozen", strings.NewReader(`{"frozen":true}`))
	req = setChiURLParam(req, "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.SetFrozen(rec, req)

	if rec.Code != http.StatusOK || !gotFrozen {
		t.Fatalf("expected 200 with frozen account, got %d (frozen=%v)", rec.Code, gotFrozen)
	}
}

func TestAccountHandler_GetBalance(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{}, &accountQueryStub{
		balanceFn: func(ctx context.Context, accountID, currency string) (string, error) {
			if accountID != "acc-1" || currency != "USD" {
				t.Fatalf("unexpected args %s %s", accountID, currency)
			}
			return "1500", nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/balance?currency=USD", nil), "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.GetBalance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Balance != "1500" || resp.Currency != "USD" {
		t.Fatalf("unexpected balance %+v", resp)
	}
}

func TestAccountHandler_ListTransactions(t *testing.T) {
	var captured usecase.ListTransactionsInput
	handler := NewAccountHandler(&accountServiceStub{}, &accountQueryStub{
		transactionsFn: func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
			captured = input
			return []*domain.Transaction{{ID: "tx-2"}, {ID: "tx-1"}}, nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/transactions?limit=5&offset=10", nil), "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.ListTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if captured.OwnerAccountID != "acc-1" || captured.Limit != 5 || captured.Offset != 10 {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp []dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != "tx-2" {
		t.Fatalf("unexpected transactions %+v", resp)
	}
}

func setChiURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{
			Keys:   []string{key},
			Values: []string{value},
		},
	}))
}
