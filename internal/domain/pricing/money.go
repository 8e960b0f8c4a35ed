package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CeilToCent rounds up to the nearest cent. Used for consumer-facing
// amounts on credit terms, so displayed values never under-recover the
// amount owed.
func CeilToCent(d decimal.Decimal) decimal.Decimal {
	return d.RoundCeil(2)
}

// RoundToCent rounds half-up to the nearest cent. Used for derived
// quote and profit figures.
func RoundToCent(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// percentOf returns value * pct / 100.
func percentOf(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(pct).Div(hundred)
}

// grossUp divides value by (1 - pct/100). The caller must guarantee
// pct < 100.
func grossUp(value, pct decimal.Decimal) decimal.Decimal {
	return value.Div(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
}
