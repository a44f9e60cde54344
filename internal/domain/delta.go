package domain

import (
	"fmt"
	"math"
	"sort"
)

// BalanceDelta is the net signed change for one (account, currency) pair.
type BalanceDelta struct {
	AccountID     string
	Currency      string
	Delta         int64
	AllowNegative bool
}

type balanceKey struct {
	accountID string
	currency  string
}

// AggregateDeltas nets entries into one delta per (account, currency),
// CREDIT counting positive and DEBIT negative. The result is sorted by
// account id then currency so concurrent postings lock rows in the same order.
func AggregateDeltas(entries []EntrySpec) ([]BalanceDelta, error) {
	sums := make(map[balanceKey]int64, len(entries))

	for _, e := range entries {
		k := balanceKey{accountID: e.AccountID, currency: e.Currency}

		next, ok := addInt64(sums[k], e.Direction.Sign()*e.AmountMinor)
		if !ok {
			return nil, fmt.Errorf("%w: delta overflow for account %s", ErrInvalidRequest, e.AccountID)
		}

		sums[k] = next
	}

	deltas := make([]BalanceDelta, 0, len(sums))
	for k, v := range sums {
		deltas = append(deltas, BalanceDelta{AccountID: k.accountID, Currency: k.currency, Delta: v})
	}

	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].AccountID != deltas[j].AccountID {
			return deltas[i].AccountID < deltas[j].AccountID
		}

		return deltas[i].Currency < deltas[j].Currency
	})

	return deltas, nil
}

// addInt64 adds a and b and reports false on overflow.
func addInt64(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}

	return a + b, true
}
