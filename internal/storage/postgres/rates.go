package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/rates"
)

const (
	loadRateTableSQL = `SELECT pix_discount_percent, card_fee_percent, installment_fees,
		operational_cost_fixed, shipping_markup_percent
		FROM rate_tables WHERE name = $1`

	saveRateTableSQL = `INSERT INTO rate_tables
		(name, pix_discount_percent, card_fee_percent, installment_fees,
		 operational_cost_fixed, shipping_markup_percent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (name) DO UPDATE SET
			pix_discount_percent = EXCLUDED.pix_discount_percent,
			card_fee_percent = EXCLUDED.card_fee_percent,
			installment_fees = EXCLUDED.installment_fees,
			operational_cost_fixed = EXCLUDED.operational_cost_fixed,
			shipping_markup_percent = EXCLUDED.shipping_markup_percent,
			updated_at = NOW()`
)

var _ rates.Repository = (*RateRepository)(nil)

// RateRepository implements rates.Repository backed by PostgreSQL. The
// installment schedule is stored as a JSONB object keyed by count.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository returns a RateRepository that uses the given pool.
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// Load fetches the named rate table. Returns rates.ErrNotFound when no
// table has been saved under the name.
func (r *RateRepository) Load(ctx context.Context, name string) (rates.RateTable, error) {
	rows, err := r.pool.Query(ctx, loadRateTableSQL, name)
	if err != nil {
		return rates.RateTable{}, fmt.Errorf("loading rate table %q: %w", name, err)
	}

	table, err := pgx.CollectExactlyOneRow(rows, scanRateTable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rates.RateTable{}, rates.ErrNotFound
		}
		return rates.RateTable{}, fmt.Errorf("loading rate table %q: %w", name, err)
	}
	return table, nil
}

// Save stores the table wholesale under the given name, replacing any
// previous version.
func (r *RateRepository) Save(ctx context.Context, name string, t rates.RateTable) error {
	fees := make(map[string]decimal.Decimal, rates.MaxInstallments)
	for count := 1; count <= rates.MaxInstallments; count++ {
		fees[strconv.Itoa(count)] = t.InstallmentFee(count)
	}
	feesJSON, err := json.Marshal(fees)
	if err != nil {
		return fmt.Errorf("marshaling installment fees: %w", err)
	}

	_, err = r.pool.Exec(ctx, saveRateTableSQL,
		name, t.PixDiscountPercent, t.CardFeePercent, feesJSON,
		t.OperationalCostFixed, t.ShippingMarkupPercent,
	)
	if err != nil {
		return fmt.Errorf("saving rate table %q: %w", name, err)
	}
	return nil
}

func scanRateTable(row pgx.CollectableRow) (rates.RateTable, error) {
	var (
		table    rates.RateTable
		feesJSON []byte
	)
	err := row.Scan(
		&table.PixDiscountPercent, &table.CardFeePercent, &feesJSON,
		&table.OperationalCostFixed, &table.ShippingMarkupPercent,
	)
	if err != nil {
		return rates.RateTable{}, err
	}

	fees := make(map[string]decimal.Decimal)
	if err := json.Unmarshal(feesJSON, &fees); err != nil {
		return rates.RateTable{}, fmt.Errorf("unmarshaling installment fees: %w", err)
	}
	for key, fee := range fees {
		count, err := strconv.Atoi(key)
		if err != nil || count < 1 || count > rates.MaxInstallments {
			continue
		}
		table.InstallmentFeePercent[count-1] = fee
	}
	return table, nil
}
