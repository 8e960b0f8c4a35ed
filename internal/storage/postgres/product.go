package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltstore/pricing-api/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT sku, name, category, cost_price, sale_price
		FROM products ORDER BY sku`

	getProductSQL = `SELECT sku, name, category, cost_price, sale_price
		FROM products WHERE sku = $1`

	getProductsSQL = `SELECT sku, name, category, cost_price, sale_price
		FROM products WHERE sku = ANY($1)`

	upsertCostSQL = `INSERT INTO products (sku, name, category, cost_price, sale_price)
		VALUES ($1, $1, 'uncategorized', $2, 0)
		ON CONFLICT (sku) DO UPDATE SET cost_price = EXCLUDED.cost_price`

	upsertProductSQL = `INSERT INTO products (sku, name, category, cost_price, sale_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			cost_price = EXCLUDED.cost_price,
			sale_price = EXCLUDED.sale_price`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by SKU.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// GetBySKU returns a single product. Returns catalog.ErrNotFound when the
// SKU is unknown.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, sku)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", sku, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", sku, err)
	}
	return &p, nil
}

// GetBySKUs batch-fetches products by SKU in a single query. Missing SKUs
// are simply absent from the result; callers decide whether that is an
// error.
func (r *ProductRepository) GetBySKUs(ctx context.Context, skus []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsSQL, skus)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	return products, nil
}

// UpsertCosts applies supplier cost updates in one batch. Unknown SKUs are
// created as placeholder rows so the imported cost is kept.
func (r *ProductRepository) UpsertCosts(ctx context.Context, costs []catalog.CostUpdate) error {
	batch := &pgx.Batch{}
	for _, c := range costs {
		batch.Queue(upsertCostSQL, c.SKU, c.CostPrice)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, c := range costs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting cost for %q: %w", c.SKU, err)
		}
	}
	return nil
}

// Upsert inserts or fully replaces a catalog product. Used by seeding
// tooling rather than the API.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL,
		p.SKU, p.Name, p.Category, p.CostPrice, p.SalePrice,
	); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.SKU, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.SKU, &p.Name, &p.Category, &p.CostPrice, &p.SalePrice)
	return p, err
}
