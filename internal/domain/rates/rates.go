// Package rates holds the configurable fee table consumed by the pricing,
// installment, and order profit calculations.
package rates

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MaxInstallments is the highest installment count carried by a RateTable.
// The schedule always has one entry per count from 1 to MaxInstallments.
const MaxInstallments = 12

// ErrNotFound is returned when a named rate table does not exist.
var ErrNotFound = errors.New("rate table not found")

// ConfigError indicates an out-of-range value in a rate table configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid rate config %s: %s", e.Field, e.Reason)
}

// RateTable is an immutable snapshot of the fee configuration. The
// installment schedule is a fixed-size array, so the 1..MaxInstallments
// invariant holds by construction: index i carries the fee for i+1
// installments.
type RateTable struct {
	PixDiscountPercent    decimal.Decimal
	CardFeePercent        decimal.Decimal
	InstallmentFeePercent [MaxInstallments]decimal.Decimal
	OperationalCostFixed  decimal.Decimal
	ShippingMarkupPercent decimal.Decimal
}

// Default returns the rate table used before any configuration is loaded.
// The installment schedule matches the processor's published card pricing.
func Default() RateTable {
	t := RateTable{
		PixDiscountPercent:    decimal.RequireFromString("5"),
		CardFeePercent:        decimal.RequireFromString("3.99"),
		OperationalCostFixed:  decimal.Zero,
		ShippingMarkupPercent: decimal.Zero,
	}
	defaults := []string{
		"0", "2.99", "4.49", "5.99", "7.49", "8.99",
		"10.49", "11.99", "13.49", "14.99", "16.49", "17.99",
	}
	for i, v := range defaults {
		t.InstallmentFeePercent[i] = decimal.RequireFromString(v)
	}
	return t
}

// InstallmentFee returns the fee percentage for paying in count installments.
// Counts outside 1..MaxInstallments yield zero.
func (t RateTable) InstallmentFee(count int) decimal.Decimal {
	if count < 1 || count > MaxInstallments {
		return decimal.Zero
	}
	return t.InstallmentFeePercent[count-1]
}

// Config is a partial rate table update. Nil fields keep the current value;
// installment entries with counts outside 1..MaxInstallments are ignored.
type Config struct {
	PixDiscountPercent    *decimal.Decimal
	CardFeePercent        *decimal.Decimal
	InstallmentFeePercent map[int]decimal.Decimal
	OperationalCostFixed  *decimal.Decimal
	ShippingMarkupPercent *decimal.Decimal
}

// Apply merges cfg into the table and returns the resulting snapshot.
// Percentages must be non-negative, and the card fee must stay below 100
// because price gross-up divides by (1 - fee/100).
func (t RateTable) Apply(cfg Config) (RateTable, error) {
	out := t

	if v := cfg.PixDiscountPercent; v != nil {
		if v.IsNegative() {
			return RateTable{}, &ConfigError{Field: "pixDiscountPercent", Reason: "must be non-negative"}
		}
		out.PixDiscountPercent = *v
	}
	if v := cfg.CardFeePercent; v != nil {
		if v.IsNegative() {
			return RateTable{}, &ConfigError{Field: "cardFeePercent", Reason: "must be non-negative"}
		}
		if v.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return RateTable{}, &ConfigError{Field: "cardFeePercent", Reason: "must be below 100"}
		}
		out.CardFeePercent = *v
	}
	for count, fee := range cfg.InstallmentFeePercent {
		if count < 1 || count > MaxInstallments {
			continue
		}
		if fee.IsNegative() {
			return RateTable{}, &ConfigError{
				Field:  fmt.Sprintf("installmentFeePercent[%d]", count),
				Reason: "must be non-negative",
			}
		}
		out.InstallmentFeePercent[count-1] = fee
	}
	if v := cfg.OperationalCostFixed; v != nil {
		if v.IsNegative() {
			return RateTable{}, &ConfigError{Field: "operationalCostFixed", Reason: "must be non-negative"}
		}
		out.OperationalCostFixed = *v
	}
	if v := cfg.ShippingMarkupPercent; v != nil {
		if v.IsNegative() {
			return RateTable{}, &ConfigError{Field: "shippingMarkupPercent", Reason: "must be non-negative"}
		}
		out.ShippingMarkupPercent = *v
	}

	return out, nil
}

// Repository defines persistence for named rate tables. Load returns
// ErrNotFound when no table has been saved under the given name.
type Repository interface {
	Load(ctx context.Context, name string) (RateTable, error)
	Save(ctx context.Context, name string, t RateTable) error
}
