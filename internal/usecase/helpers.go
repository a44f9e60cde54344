package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iho/postingledger/internal/domain"
)

func validateType(txType string) error {
	if strings.TrimSpace(txType) == "" {
		return fmt.Errorf("%w: transaction type is required", domain.ErrInvalidRequest)
	}

	if len(txType) > domain.MaxTypeLen {
		return fmt.Errorf("%w: transaction type too long", domain.ErrInvalidRequest)
	}

	return nil
}

// normalizeKey treats an empty idempotency key as absent.
func normalizeKey(key *string) *string {
	if key == nil || *key == "" {
		return nil
	}

	return key
}

// resolveTenant prefers the explicit tenant, then the first entry's tenant.
func resolveTenant(tenantID *string, entries []domain.EntrySpec) *string {
	if tenantID != nil && *tenantID != "" {
		return tenantID
	}

	if len(entries) > 0 && entries[0].TenantID != nil && *entries[0].TenantID != "" {
		return entries[0].TenantID
	}

	return nil
}

// classifyError leaves business rejections untouched and marks everything
// else as a persistence failure that the caller may retry.
func classifyError(err error) error {
	if err == nil || domain.IsBusinessRejection(err) || errors.Is(err, domain.ErrPersistence) {
		return err
	}

	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

func newOutboxEvent(idGen IDGenerator, aggregateID, eventType string, payload any, now time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     eventType,
		Payload:       toPayload(payload),
		CreatedAt:     now,
	}
}

func toPayload(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return map[string]any{}
	}

	return payload
}

func copyMetadata(metadata map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+len(extra))
	for k, v := range metadata {
		out[k] = v
	}

	for k, v := range extra {
		out[k] = v
	}

	return out
}

func stringPtr(s string) *string {
	return &s
}
