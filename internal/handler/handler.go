// Package handler exposes the pricing calculations over HTTP. Requests
// are decoded at the boundary into well-typed domain values; the
// calculation packages never see raw payloads.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/voltstore/pricing-api/internal/domain/catalog"
	"github.com/voltstore/pricing-api/internal/domain/orderprofit"
	"github.com/voltstore/pricing-api/internal/domain/rates"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// RateTableName selects which stored rate table backs the calculations.
	RateTableName string
	// Defaults supplies the fee constants used when a request does not
	// override them.
	Defaults orderprofit.Options
}

// Handler serves the pricing API, delegating to the calculation packages
// and the injected repositories.
type Handler struct {
	rates    rates.Repository
	products catalog.Repository
	cfg      Config
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg Config, ratesRepo rates.Repository, products catalog.Repository) *Handler {
	if cfg.RateTableName == "" {
		cfg.RateTableName = "default"
	}
	return &Handler{
		rates:    ratesRepo,
		products: products,
		cfg:      cfg,
	}
}

// Routes registers all API routes on mux. Endpoints that expose cost data
// or mutate configuration are wrapped with the security handler.
func (h *Handler) Routes(mux *http.ServeMux, sec *SecurityHandler) {
	mux.HandleFunc("GET /api/rates", h.GetRates)
	mux.Handle("PUT /api/rates", sec.Require(http.HandlerFunc(h.UpdateRates)))
	mux.HandleFunc("POST /api/quotes/margin", h.QuoteFromMargin)
	mux.HandleFunc("POST /api/quotes/components", h.QuoteFromComponents)
	mux.HandleFunc("POST /api/installments", h.PlanInstallments)
	mux.Handle("POST /api/orders/summary", sec.Require(http.HandlerFunc(h.SummarizeOrder)))
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{sku}", h.GetProduct)
}

// loadRates fetches the configured rate table snapshot, falling back to
// the built-in defaults when nothing has been saved yet. Each request
// reads its own copy, so concurrent configuration updates never tear a
// calculation.
func (h *Handler) loadRates(r *http.Request) (rates.RateTable, error) {
	table, err := h.rates.Load(r.Context(), h.cfg.RateTableName)
	if err != nil {
		if errors.Is(err, rates.ErrNotFound) {
			return rates.Default(), nil
		}
		return rates.RateTable{}, err
	}
	return table, nil
}
