package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/catalog"
	"github.com/voltstore/pricing-api/internal/domain/pricing"
)

// ListProducts returns the catalog with derived profit figures for each
// item at its current sale price.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, errors.Wrap(err, "list products"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encProduct(e, p)
		}
		e.ArrEnd()
	})
}

// GetProduct returns a single catalog item by SKU.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")

	p, err := h.products.GetBySKU(r.Context(), sku)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		respondError(w, r, errors.Wrapf(err, "get product %q", sku))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encProduct(e, *p)
	})
}

// encProduct writes a product with its derived quote. The quote treats
// the stored sale price as the base with no discounts applied.
func encProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("sku")
	e.Str(p.SKU)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("costPrice")
	encDecimal(e, p.CostPrice)
	e.FieldStart("salePrice")
	encDecimal(e, p.SalePrice)

	// Cost and sale prices come from the catalog, so the only failure mode
	// is negative stored values; fall back to zeroes in that case.
	quote, err := pricing.FromComponents(p.CostPrice, p.SalePrice, decimal.Zero, decimal.Zero)
	if err == nil {
		e.FieldStart("profitValue")
		encDecimal(e, quote.ProfitValue)
		e.FieldStart("marginPercent")
		encDecimal(e, quote.MarginPercent)
		e.FieldStart("markupPercent")
		encDecimal(e, quote.MarkupPercent)
	}
	e.ObjEnd()
}
