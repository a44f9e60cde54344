package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/domain"
)

const (
	// TenantHeader carries the caller's tenant id.
	TenantHeader = "X-Tenant-ID"
	// ReplayHeader is set when a response was served from an earlier request.
	ReplayHeader = "X-Idempotent-Replay"

	idempotencyKeyHeader = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status mapDomainError picks for it.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, mapDomainError(err), message, err.Error())
}

// decodeJSON reads a request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}

	return true
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	// Finalization failures are server errors whatever the wrapped cause.
	case errors.Is(err, domain.ErrFinalizationFailed):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnbalancedEntries),
		errors.Is(err, domain.ErrMetadataTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrAccountFrozen),
		errors.Is(err, domain.ErrAccountExists),
		errors.Is(err, domain.ErrFinalizationInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// tenantID returns the request tenant, or nil for the shared tenant.
func tenantID(r *http.Request) *string {
	tenant := strings.TrimSpace(r.Header.Get(TenantHeader))
	if tenant == "" {
		return nil
	}

	return &tenant
}

// idempotencyKey prefers the key in the body and falls back to the header.
func idempotencyKey(r *http.Request, fromBody *string) *string {
	if fromBody != nil && *fromBody != "" {
		return fromBody
	}

	key := r.Header.Get(idempotencyKeyHeader)
	if key == "" {
		return nil
	}

	return &key
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
