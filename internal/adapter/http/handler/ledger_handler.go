package handler

import (
	"context"
	"net/http"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/usecase"
)

// VerificationService replays entries against stored balances.
type VerificationService interface {
	VerifyBalances(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	reconUC VerificationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconUC VerificationService) *LedgerHandler {
	return &LedgerHandler{reconUC: reconUC}
}

// Verify reports whether balances match their entries. An inconsistent
// ledger answers 409 with the full report.
func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconUC.VerifyBalances(r.Context())
	if err != nil {
		writeDomainError(w, "failed to verify ledger", err)
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.VerificationFromReport(report))
}
