// Package orderprofit aggregates per-item costs against an order's charged
// total into a profit breakdown.
package orderprofit

import (
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/pricing"
	"github.com/voltstore/pricing-api/internal/domain/rates"
)

// LineItem is one order line for profit calculation. A zero CostPrice
// means the cost is unknown and contributes nothing to total cost; callers
// needing cost-integrity checks must validate items before summarizing.
type LineItem struct {
	SKU       string
	CostPrice decimal.Decimal
	SalePrice decimal.Decimal
	Quantity  int
}

// Options carries the fee constants that are order-level policy rather
// than rate table state: the processor's fixed per-transaction fee and the
// jurisdiction-specific tax percentage.
type Options struct {
	TransactionFixedFee decimal.Decimal
	TaxPercent          decimal.Decimal
}

// DefaultOptions matches the observed processor pricing: a 0.39 fixed fee
// per transaction and a 7% tax rate.
func DefaultOptions() Options {
	return Options{
		TransactionFixedFee: decimal.RequireFromString("0.39"),
		TaxPercent:          decimal.RequireFromString("7"),
	}
}

// Summary is the order-level financial breakdown.
//
// Invariants: GrossProfit = GrossRevenue - TotalCost and
// NetProfit = GrossProfit - ProcessorFee - TaxFee - ShippingCost -
// OperationalCost. NetMarginPercent is zero when GrossRevenue is zero.
type Summary struct {
	TotalCost        decimal.Decimal
	GrossRevenue     decimal.Decimal
	GrossProfit      decimal.Decimal
	ProcessorFee     decimal.Decimal
	TaxFee           decimal.Decimal
	ShippingCost     decimal.Decimal
	OperationalCost  decimal.Decimal
	NetProfit        decimal.Decimal
	NetMarginPercent decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Summarize computes the profit breakdown for one order. grossRevenue is
// the amount actually charged (it may differ from the sum of item sale
// prices when the storefront applied its own adjustments). The rate
// table's fixed operational cost is charged once per order.
//
// An empty item list is a degenerate order, not an error; negative
// monetary inputs and non-positive quantities are rejected.
func Summarize(
	items []LineItem,
	grossRevenue, shippingCost decimal.Decimal,
	rt rates.RateTable,
	opts Options,
) (Summary, error) {
	if grossRevenue.IsNegative() {
		return Summary{}, &pricing.InvalidInputError{Field: "grossRevenue", Reason: "must be non-negative"}
	}
	if shippingCost.IsNegative() {
		return Summary{}, &pricing.InvalidInputError{Field: "shippingCost", Reason: "must be non-negative"}
	}

	totalCost := decimal.Zero
	for _, item := range items {
		if item.Quantity < 1 {
			return Summary{}, &pricing.InvalidInputError{Field: "quantity", Reason: "must be at least 1"}
		}
		if item.CostPrice.IsNegative() {
			return Summary{}, &pricing.InvalidInputError{Field: "costPrice", Reason: "must be non-negative"}
		}
		totalCost = totalCost.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	processorFee := grossRevenue.Mul(rt.CardFeePercent).Div(hundred).Add(opts.TransactionFixedFee)
	taxFee := grossRevenue.Mul(opts.TaxPercent).Div(hundred)

	grossProfit := grossRevenue.Sub(totalCost)
	netProfit := grossProfit.
		Sub(processorFee).
		Sub(taxFee).
		Sub(shippingCost).
		Sub(rt.OperationalCostFixed)

	netMargin := decimal.Zero
	if grossRevenue.IsPositive() {
		netMargin = netProfit.Div(grossRevenue).Mul(hundred)
	}

	return Summary{
		TotalCost:        pricing.RoundToCent(totalCost),
		GrossRevenue:     pricing.RoundToCent(grossRevenue),
		GrossProfit:      pricing.RoundToCent(grossProfit),
		ProcessorFee:     pricing.RoundToCent(processorFee),
		TaxFee:           pricing.RoundToCent(taxFee),
		ShippingCost:     pricing.RoundToCent(shippingCost),
		OperationalCost:  pricing.RoundToCent(rt.OperationalCostFixed),
		NetProfit:        pricing.RoundToCent(netProfit),
		NetMarginPercent: pricing.RoundToCent(netMargin),
	}, nil
}
