package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Validation constants
const (
	MaxMetadataSize   = 10240 // 10KB
	MaxEntries        = 500
	MaxDescriptionLen = 255
	MaxTypeLen        = 64
	MaxRefLen         = 255
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks for an upper-case ISO 4217 style code.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("%w: %q is not a valid currency code", ErrInvalidRequest, currency)
	}

	return nil
}

// PostingTotals is the outcome of a successful entry validation.
type PostingTotals struct {
	Currency    string
	TotalDebit  int64
	TotalCredit int64
}

// ValidateEntries applies the posting preconditions in order: the list is
// non-empty, every entry shares one currency, and debits equal credits.
func ValidateEntries(entries []EntrySpec) (PostingTotals, error) {
	if len(entries) == 0 {
		return PostingTotals{}, fmt.Errorf("%w: entries must not be empty", ErrInvalidRequest)
	}

	if len(entries) > MaxEntries {
		return PostingTotals{}, fmt.Errorf("%w: at most %d entries per transaction", ErrInvalidRequest, MaxEntries)
	}

	currency := entries[0].Currency
	for _, e := range entries {
		if e.Currency != currency {
			return PostingTotals{}, fmt.Errorf("%w: entries must share currency", ErrInvalidRequest)
		}
	}

	if err := ValidateCurrency(currency); err != nil {
		return PostingTotals{}, err
	}

	totals := PostingTotals{Currency: currency}

	for i, e := range entries {
		if strings.TrimSpace(e.AccountID) == "" {
			return PostingTotals{}, fmt.Errorf("%w: entry %d has no account", ErrInvalidRequest, i)
		}

		if e.AmountMinor < 0 {
			return PostingTotals{}, fmt.Errorf("%w: entry %d has a negative amount", ErrInvalidRequest, i)
		}

		if len(e.Description) > MaxDescriptionLen {
			return PostingTotals{}, fmt.Errorf("%w: entry %d description exceeds %d characters", ErrInvalidRequest, i, MaxDescriptionLen)
		}

		var ok bool

		switch e.Direction {
		case DirectionDebit:
			totals.TotalDebit, ok = addInt64(totals.TotalDebit, e.AmountMinor)
		case DirectionCredit:
			totals.TotalCredit, ok = addInt64(totals.TotalCredit, e.AmountMinor)
		default:
			return PostingTotals{}, fmt.Errorf("%w: entry %d has unknown direction %q", ErrInvalidRequest, i, e.Direction)
		}

		if !ok {
			return PostingTotals{}, fmt.Errorf("%w: entry totals overflow", ErrInvalidRequest)
		}
	}

	if totals.TotalDebit != totals.TotalCredit {
		return PostingTotals{}, &UnbalancedError{TotalDebit: totals.TotalDebit, TotalCredit: totals.TotalCredit}
	}

	return totals, nil
}

// ValidateMetadata bounds the encoded metadata size.
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: metadata is not serializable: %v", ErrInvalidRequest, err)
	}

	if len(raw) > MaxMetadataSize {
		return fmt.Errorf("%w: metadata size %d bytes exceeds limit of %d bytes", ErrMetadataTooLarge, len(raw), MaxMetadataSize)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters.
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
