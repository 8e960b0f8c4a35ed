package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/catalog"
	"github.com/voltstore/pricing-api/internal/domain/orderprofit"
)

// UnknownSKUError indicates an order line referenced a SKU that is not in
// the catalog.
type UnknownSKUError struct {
	SKU string
}

func (e *UnknownSKUError) Error() string {
	return fmt.Sprintf("unknown sku %s", e.SKU)
}

type summaryItem struct {
	SKU       string
	CostPrice decimal.Decimal
	HasCost   bool
	SalePrice decimal.Decimal
	Quantity  int
}

type summaryRequest struct {
	Items               []summaryItem
	GrossRevenue        decimal.Decimal
	ShippingCost        decimal.Decimal
	TaxPercent          decimal.Decimal
	HasTaxPercent       bool
	TransactionFixedFee decimal.Decimal
	HasTransactionFee   bool
}

func decodeSummaryRequest(data []byte) (summaryRequest, error) {
	var req summaryRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var item summaryItem
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "sku":
						item.SKU, err = d.Str()
					case "costPrice":
						item.CostPrice, err = decDecimal(d)
						item.HasCost = true
					case "salePrice":
						item.SalePrice, err = decDecimal(d)
					case "quantity":
						item.Quantity, err = d.Int()
					default:
						return d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "grossRevenue":
			req.GrossRevenue, err = decDecimal(d)
		case "shippingCost":
			req.ShippingCost, err = decDecimal(d)
		case "taxPercent":
			req.TaxPercent, err = decDecimal(d)
			req.HasTaxPercent = true
		case "transactionFixedFee":
			req.TransactionFixedFee, err = decDecimal(d)
			req.HasTransactionFee = true
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

// SummarizeOrder computes the profit breakdown for an order. Items may
// carry explicit cost prices or reference catalog SKUs; referenced costs
// are resolved here in one batch so the calculation stays pure.
func (h *Handler) SummarizeOrder(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req, err := decodeSummaryRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	items, err := h.resolveItems(r, req.Items)
	if err != nil {
		respondError(w, r, err)
		return
	}

	table, err := h.loadRates(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	opts := h.cfg.Defaults
	if req.HasTaxPercent {
		opts.TaxPercent = req.TaxPercent
	}
	if req.HasTransactionFee {
		opts.TransactionFixedFee = req.TransactionFixedFee
	}

	summary, err := orderprofit.Summarize(items, req.GrossRevenue, req.ShippingCost, table, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("totalCost")
		encDecimal(e, summary.TotalCost)
		e.FieldStart("grossRevenue")
		encDecimal(e, summary.GrossRevenue)
		e.FieldStart("grossProfit")
		encDecimal(e, summary.GrossProfit)
		e.FieldStart("processorFee")
		encDecimal(e, summary.ProcessorFee)
		e.FieldStart("taxFee")
		encDecimal(e, summary.TaxFee)
		e.FieldStart("shippingCost")
		encDecimal(e, summary.ShippingCost)
		e.FieldStart("operationalCost")
		encDecimal(e, summary.OperationalCost)
		e.FieldStart("netProfit")
		encDecimal(e, summary.NetProfit)
		e.FieldStart("netMarginPercent")
		encDecimal(e, summary.NetMarginPercent)
		e.ObjEnd()
	})
}

// resolveItems normalizes request items into orderprofit line items,
// batch-fetching catalog costs for items that reference a SKU without an
// explicit cost price.
func (h *Handler) resolveItems(r *http.Request, items []summaryItem) ([]orderprofit.LineItem, error) {
	var lookup []string
	for _, item := range items {
		if item.SKU != "" && !item.HasCost {
			lookup = append(lookup, item.SKU)
		}
	}

	costs := make(map[string]catalog.Product, len(lookup))
	if len(lookup) > 0 {
		fetched, err := h.products.GetBySKUs(r.Context(), lookup)
		if err != nil {
			return nil, errors.Wrap(err, "get products")
		}
		for _, p := range fetched {
			costs[p.SKU] = p
		}
	}

	out := make([]orderprofit.LineItem, len(items))
	for i, item := range items {
		line := orderprofit.LineItem{
			SKU:       item.SKU,
			CostPrice: item.CostPrice,
			SalePrice: item.SalePrice,
			Quantity:  item.Quantity,
		}
		if item.SKU != "" && !item.HasCost {
			p, ok := costs[item.SKU]
			if !ok {
				return nil, &UnknownSKUError{SKU: item.SKU}
			}
			line.CostPrice = p.CostPrice
			if line.SalePrice.IsZero() {
				line.SalePrice = p.SalePrice
			}
		}
		out[i] = line
	}
	return out, nil
}
