// Package installment produces the 1..12x payment schedule for a sale
// price using the rate table's per-count fee percentages.
package installment

import (
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/pricing"
	"github.com/voltstore/pricing-api/internal/domain/rates"
)

// Line is one row of the payment schedule.
type Line struct {
	Count          int
	FeePercent     decimal.Decimal
	PerInstallment decimal.Decimal
	Total          decimal.Decimal
}

// Plan returns one Line per installment count from 1 to
// rates.MaxInstallments, ordered by count ascending.
//
// Totals and per-installment values round up to the cent, so the sum of N
// displayed installments never under-recovers the total owed. A zero sale
// price yields an all-zero schedule; a negative one is rejected.
func Plan(salePrice decimal.Decimal, rt rates.RateTable) ([]Line, error) {
	if salePrice.IsNegative() {
		return nil, &pricing.InvalidInputError{Field: "salePrice", Reason: "must be non-negative"}
	}

	lines := make([]Line, rates.MaxInstallments)
	for i := range lines {
		count := i + 1
		fee := rt.InstallmentFee(count)

		total := pricing.CeilToCent(
			salePrice.Add(salePrice.Mul(fee).Div(decimal.NewFromInt(100))),
		)
		per := pricing.CeilToCent(total.Div(decimal.NewFromInt(int64(count))))

		lines[i] = Line{
			Count:          count,
			FeePercent:     fee,
			PerInstallment: per,
			Total:          total,
		}
	}
	return lines, nil
}
