package orderprofit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltstore/pricing-api/internal/domain/pricing"
	"github.com/voltstore/pricing-api/internal/domain/rates"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// plainTable returns a table with only the 3.99% card fee set, matching
// the reference scenario.
func plainTable(t *testing.T) rates.RateTable {
	t.Helper()
	zero := decimal.Zero
	table, err := rates.Default().Apply(rates.Config{
		OperationalCostFixed: &zero,
	})
	require.NoError(t, err)
	return table
}

func TestSummarize_ReferenceScenario(t *testing.T) {
	items := []LineItem{
		{SKU: "PHONE-X", CostPrice: dec("400"), SalePrice: dec("700"), Quantity: 2},
	}

	s, err := Summarize(items, dec("1400"), decimal.Zero, plainTable(t), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, dec("800.00").Equal(s.TotalCost), "totalCost %s", s.TotalCost)
	assert.True(t, dec("600.00").Equal(s.GrossProfit), "grossProfit %s", s.GrossProfit)
	// 1400 * 0.0399 + 0.39 = 56.25
	assert.True(t, dec("56.25").Equal(s.ProcessorFee), "processorFee %s", s.ProcessorFee)
	assert.True(t, dec("98.00").Equal(s.TaxFee), "taxFee %s", s.TaxFee)
	assert.True(t, dec("445.75").Equal(s.NetProfit), "netProfit %s", s.NetProfit)
	assert.True(t, dec("31.84").Equal(s.NetMarginPercent), "netMargin %s", s.NetMarginPercent)
}

func TestSummarize_OperationalCostSubtracted(t *testing.T) {
	opCost := dec("12.50")
	table, err := rates.Default().Apply(rates.Config{OperationalCostFixed: &opCost})
	require.NoError(t, err)

	items := []LineItem{
		{CostPrice: dec("400"), SalePrice: dec("700"), Quantity: 2},
	}
	s, err := Summarize(items, dec("1400"), decimal.Zero, table, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, dec("12.50").Equal(s.OperationalCost))
	assert.True(t, dec("433.25").Equal(s.NetProfit), "netProfit %s", s.NetProfit)
}

func TestSummarize_ShippingSubtracted(t *testing.T) {
	items := []LineItem{
		{CostPrice: dec("400"), SalePrice: dec("700"), Quantity: 2},
	}
	s, err := Summarize(items, dec("1400"), dec("30"), plainTable(t), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, dec("30.00").Equal(s.ShippingCost))
	assert.True(t, dec("415.75").Equal(s.NetProfit), "netProfit %s", s.NetProfit)
}

func TestSummarize_UnknownCostContributesZero(t *testing.T) {
	items := []LineItem{
		{CostPrice: dec("100"), SalePrice: dec("250"), Quantity: 1},
		{CostPrice: decimal.Zero, SalePrice: dec("50"), Quantity: 3},
	}
	s, err := Summarize(items, dec("400"), decimal.Zero, plainTable(t), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, dec("100.00").Equal(s.TotalCost))
	assert.True(t, dec("300.00").Equal(s.GrossProfit))
}

func TestSummarize_EmptyOrder(t *testing.T) {
	s, err := Summarize(nil, decimal.Zero, decimal.Zero, plainTable(t), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, s.TotalCost.IsZero())
	assert.True(t, s.GrossProfit.IsZero())
	assert.True(t, s.NetMarginPercent.IsZero())
	// Only the fixed transaction fee remains as a loss.
	assert.True(t, dec("-0.39").Equal(s.NetProfit), "netProfit %s", s.NetProfit)
}

func TestSummarize_ZeroRevenueHasZeroMargin(t *testing.T) {
	items := []LineItem{{CostPrice: dec("10"), SalePrice: dec("10"), Quantity: 1}}
	s, err := Summarize(items, decimal.Zero, decimal.Zero, plainTable(t), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, s.NetMarginPercent.IsZero())
	assert.True(t, s.NetProfit.IsNegative())
}

func TestSummarize_RejectsBadInputs(t *testing.T) {
	var inputErr *pricing.InvalidInputError

	_, err := Summarize(nil, dec("-1"), decimal.Zero, plainTable(t), DefaultOptions())
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "grossRevenue", inputErr.Field)

	_, err = Summarize(nil, decimal.Zero, dec("-1"), plainTable(t), DefaultOptions())
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "shippingCost", inputErr.Field)

	_, err = Summarize(
		[]LineItem{{CostPrice: dec("10"), Quantity: 0}},
		dec("10"), decimal.Zero, plainTable(t), DefaultOptions(),
	)
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "quantity", inputErr.Field)

	_, err = Summarize(
		[]LineItem{{CostPrice: dec("-10"), Quantity: 1}},
		dec("10"), decimal.Zero, plainTable(t), DefaultOptions(),
	)
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "costPrice", inputErr.Field)
}

func TestSummarize_Idempotent(t *testing.T) {
	items := []LineItem{{CostPrice: dec("123.45"), SalePrice: dec("199.99"), Quantity: 3}}

	a, err := Summarize(items, dec("599.97"), dec("15"), plainTable(t), DefaultOptions())
	require.NoError(t, err)
	b, err := Summarize(items, dec("599.97"), dec("15"), plainTable(t), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
