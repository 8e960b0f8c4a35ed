// Package pricing derives sale prices, margins, and markups from cost
// inputs and the configured rate table. All functions are pure: they take
// value inputs and return freshly computed value objects.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/rates"
)

// InvalidInputError indicates a calculation input that is outside its
// valid range. Zero values are never rejected; they produce the defined
// degenerate output instead.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func errNegative(field string) error {
	return &InvalidInputError{Field: field, Reason: "must be non-negative"}
}

// Quote is the derived price breakdown for a single product.
//
// Invariants when the respective denominators are positive:
//
//	ProfitValue   = FinalPrice - CostPrice
//	MarginPercent = ProfitValue / FinalPrice * 100
//	MarkupPercent = ProfitValue / CostPrice * 100
type Quote struct {
	CostPrice     decimal.Decimal
	BasePrice     decimal.Decimal
	DiscountPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	MarkupPercent decimal.Decimal
	MarginPercent decimal.Decimal
	ProfitValue   decimal.Decimal
}

// FromCostAndMargin prices a product from its cost and a target margin.
// The raw price (cost + desired profit) is grossed up by the card fee so
// the margin survives the processor's cut, then rounded up to the cent.
// DiscountPrice carries the instant-transfer (PIX) price: the final price
// less the configured PIX discount.
//
// A zero cost returns an all-zero quote; a negative cost is rejected.
func FromCostAndMargin(costPrice, marginPercent decimal.Decimal, rt rates.RateTable) (Quote, error) {
	if costPrice.IsNegative() {
		return Quote{}, errNegative("costPrice")
	}
	if rt.CardFeePercent.GreaterThanOrEqual(hundred) {
		return Quote{}, &InvalidInputError{Field: "cardFeePercent", Reason: "must be below 100"}
	}
	if costPrice.IsZero() {
		return Quote{}, nil
	}

	desiredProfit := percentOf(costPrice, marginPercent)
	rawPrice := costPrice.Add(desiredProfit)
	finalPrice := CeilToCent(grossUp(rawPrice, rt.CardFeePercent))

	q := Quote{
		CostPrice:     costPrice,
		BasePrice:     RoundToCent(rawPrice),
		DiscountPrice: RoundToCent(finalPrice.Sub(percentOf(finalPrice, rt.PixDiscountPercent))),
		FinalPrice:    finalPrice,
	}
	fillDerived(&q)
	return q, nil
}

// FromComponents derives a quote from explicit price components: a base
// price with up to two stacked percentage discounts. The final price is
// the last non-zero stage of the discount chain. Monetary outputs use
// half-up cent rounding, unlike the ceiling policy on credit schedules.
func FromComponents(costPrice, basePrice, discountPercent, secondaryDiscountPercent decimal.Decimal) (Quote, error) {
	if costPrice.IsNegative() {
		return Quote{}, errNegative("costPrice")
	}
	if basePrice.IsNegative() {
		return Quote{}, errNegative("basePrice")
	}

	discountPrice := decimal.Zero
	if discountPercent.IsPositive() {
		discountPrice = basePrice.Sub(percentOf(basePrice, discountPercent))
	}

	afterSecondary := decimal.Zero
	if secondaryDiscountPercent.IsPositive() {
		from := basePrice
		if discountPrice.IsPositive() {
			from = discountPrice
		}
		afterSecondary = from.Sub(percentOf(from, secondaryDiscountPercent))
	}

	finalPrice := basePrice
	if discountPrice.IsPositive() {
		finalPrice = discountPrice
	}
	if afterSecondary.IsPositive() {
		finalPrice = afterSecondary
	}

	q := Quote{
		CostPrice:     RoundToCent(costPrice),
		BasePrice:     RoundToCent(basePrice),
		DiscountPrice: RoundToCent(discountPrice),
		FinalPrice:    RoundToCent(finalPrice),
	}
	fillDerived(&q)
	return q, nil
}

// MarkupShipping returns the shipping price charged to the buyer: the
// carrier's base cost grossed up by the configured shipping markup.
func MarkupShipping(baseCost decimal.Decimal, rt rates.RateTable) (decimal.Decimal, error) {
	if baseCost.IsNegative() {
		return decimal.Zero, errNegative("shippingBaseCost")
	}
	return RoundToCent(baseCost.Add(percentOf(baseCost, rt.ShippingMarkupPercent))), nil
}

// fillDerived computes profit, margin, and markup from the price fields,
// guarding the zero-denominator cases.
func fillDerived(q *Quote) {
	q.ProfitValue = RoundToCent(q.FinalPrice.Sub(q.CostPrice))

	if q.FinalPrice.IsPositive() {
		q.MarginPercent = RoundToCent(q.ProfitValue.Div(q.FinalPrice).Mul(hundred))
	}
	if q.CostPrice.IsPositive() {
		q.MarkupPercent = RoundToCent(q.ProfitValue.Div(q.CostPrice).Mul(hundred))
	}
}
