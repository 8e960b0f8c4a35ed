package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/pricing"
)

type marginQuoteRequest struct {
	CostPrice        decimal.Decimal
	MarginPercent    decimal.Decimal
	ShippingBaseCost decimal.Decimal
	HasShipping      bool
}

func decodeMarginQuoteRequest(data []byte) (marginQuoteRequest, error) {
	var req marginQuoteRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "costPrice":
			req.CostPrice, err = decDecimal(d)
		case "marginPercent":
			req.MarginPercent, err = decDecimal(d)
		case "shippingBaseCost":
			req.ShippingBaseCost, err = decDecimal(d)
			req.HasShipping = true
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

// QuoteFromMargin prices a product from cost and target margin using the
// active rate table.
func (h *Handler) QuoteFromMargin(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req, err := decodeMarginQuoteRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	table, err := h.loadRates(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	quote, err := pricing.FromCostAndMargin(req.CostPrice, req.MarginPercent, table)
	if err != nil {
		respondError(w, r, err)
		return
	}

	shippingPrice := decimal.Zero
	if req.HasShipping {
		shippingPrice, err = pricing.MarkupShipping(req.ShippingBaseCost, table)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encQuoteFields(e, quote)
		if req.HasShipping {
			e.FieldStart("shippingPrice")
			encDecimal(e, shippingPrice)
		}
		e.ObjEnd()
	})
}

type componentsQuoteRequest struct {
	CostPrice                decimal.Decimal
	BasePrice                decimal.Decimal
	DiscountPercent          decimal.Decimal
	SecondaryDiscountPercent decimal.Decimal
}

func decodeComponentsQuoteRequest(data []byte) (componentsQuoteRequest, error) {
	var req componentsQuoteRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "costPrice":
			req.CostPrice, err = decDecimal(d)
		case "basePrice":
			req.BasePrice, err = decDecimal(d)
		case "discountPercent":
			req.DiscountPercent, err = decDecimal(d)
		case "secondaryDiscountPercent":
			req.SecondaryDiscountPercent, err = decDecimal(d)
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

// QuoteFromComponents derives a quote from explicit price components.
func (h *Handler) QuoteFromComponents(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req, err := decodeComponentsQuoteRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	quote, err := pricing.FromComponents(
		req.CostPrice, req.BasePrice,
		req.DiscountPercent, req.SecondaryDiscountPercent,
	)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encQuoteFields(e, quote)
		e.ObjEnd()
	})
}
