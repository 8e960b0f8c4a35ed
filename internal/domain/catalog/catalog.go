// Package catalog defines the product catalog: every item carries both
// its supplier cost and current sale price. Storage adapters normalize
// external payloads into this shape before anything reaches the
// calculation packages.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item with its financial attributes.
type Product struct {
	SKU       string
	Name      string
	Category  string
	CostPrice decimal.Decimal
	SalePrice decimal.Decimal
}

// Repository defines catalog persistence operations.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	GetBySKUs(ctx context.Context, skus []string) ([]Product, error)
	UpsertCosts(ctx context.Context, costs []CostUpdate) error
}

// CostUpdate sets the supplier cost for one SKU. Products unknown to the
// catalog are created with the SKU as a placeholder name so the cost is
// not lost.
type CostUpdate struct {
	SKU       string
	CostPrice decimal.Decimal
}
