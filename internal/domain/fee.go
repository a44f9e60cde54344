package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Metadata keys carrying the fee configuration of a pending deposit.
const (
	MetaDepositFeeRate = "depositFeeRate"
	MetaDepositVATRate = "depositVatRate"
)

// FeeSchedule is a service fee rate plus the VAT rate charged on that fee.
type FeeSchedule struct {
	FeeRate decimal.Decimal
	VATRate decimal.Decimal
}

// Validate rejects negative rates.
func (s FeeSchedule) Validate() error {
	if s.FeeRate.IsNegative() || s.VATRate.IsNegative() {
		return fmt.Errorf("%w: fee and vat rates must not be negative", ErrInvalidRequest)
	}

	return nil
}

// FeeSplit is the breakdown of an amount into principal, fee and VAT, in minor units.
type FeeSplit struct {
	Gross int64
	Net   int64
	Fee   int64
	VAT   int64
}

// ApplyRate returns amountMinor*rate rounded half away from zero.
func ApplyRate(amountMinor int64, rate decimal.Decimal) (int64, error) {
	v := decimal.NewFromInt(amountMinor).Mul(rate).Round(0)
	if v.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || v.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("%w: rate result out of range", ErrInvalidRequest)
	}

	return v.IntPart(), nil
}

// SplitInclusive deducts fee and VAT from a gross amount:
// fee = round(gross*feeRate), vat = round(fee*vatRate), net = gross - fee - vat.
func (s FeeSchedule) SplitInclusive(grossMinor int64) (FeeSplit, error) {
	if err := s.Validate(); err != nil {
		return FeeSplit{}, err
	}

	fee, err := ApplyRate(grossMinor, s.FeeRate)
	if err != nil {
		return FeeSplit{}, err
	}

	vat, err := ApplyRate(fee, s.VATRate)
	if err != nil {
		return FeeSplit{}, err
	}

	net := grossMinor - fee - vat
	if net < 0 {
		return FeeSplit{}, fmt.Errorf("%w: fee configuration produced a negative net amount", ErrInvalidRequest)
	}

	return FeeSplit{Gross: grossMinor, Net: net, Fee: fee, VAT: vat}, nil
}

// SplitOnTop charges fee and VAT on top of a principal amount: the payer
// is debited principal + fee + vat and the payee receives the principal.
func (s FeeSchedule) SplitOnTop(principalMinor int64) (FeeSplit, error) {
	if err := s.Validate(); err != nil {
		return FeeSplit{}, err
	}

	fee, err := ApplyRate(principalMinor, s.FeeRate)
	if err != nil {
		return FeeSplit{}, err
	}

	vat, err := ApplyRate(fee, s.VATRate)
	if err != nil {
		return FeeSplit{}, err
	}

	gross, ok := addInt64(principalMinor, fee)
	if ok {
		gross, ok = addInt64(gross, vat)
	}

	if !ok {
		return FeeSplit{}, fmt.Errorf("%w: amount overflow", ErrInvalidRequest)
	}

	return FeeSplit{Gross: gross, Net: principalMinor, Fee: fee, VAT: vat}, nil
}

// RateFromMetadata reads a rate stored in transaction metadata. Rates
// round-trip through JSONB, so numbers, json.Number and strings are accepted.
// The fallback is returned when the key is absent.
func RateFromMetadata(metadata map[string]any, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw, ok := metadata[key]
	if !ok || raw == nil {
		return fallback, nil
	}

	var (
		d   decimal.Decimal
		err error
	)

	switch v := raw.(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case float32:
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(v)
	case decimal.Decimal:
		d = v
	default:
		err = fmt.Errorf("unsupported type %T", raw)
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: metadata %s: %v", ErrInvalidRequest, key, err)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: metadata %s must not be negative", ErrInvalidRequest, key)
	}

	return d, nil
}
