package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkravets/storefront/internal/catalog/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const variantCols = `id, product_id, name, price_cents, compare_at_cents, cost_cents, stock, image_url`

func scanVariant(row pgx.Row) (domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.PriceCents, &v.CompareAtCents, &v.CostCents, &v.Stock, &v.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Variant{}, domain.ErrVariantNotFound
	}
	if err != nil {
		return domain.Variant{}, err
	}
	return v, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Variant, error) {
	return scanVariant(r.pool.QueryRow(ctx, `SELECT `+variantCols+` FROM variants WHERE id=$1`, id))
}

// GetTx reads a variant inside the caller's transaction, so the price fixed
// into a cart line is the price at mutation time.
func GetTx(ctx context.Context, tx pgx.Tx, id string) (domain.Variant, error) {
	return scanVariant(tx.QueryRow(ctx, `SELECT `+variantCols+` FROM variants WHERE id=$1`, id))
}

func (r *Repository) Variants(ctx context.Context, ids []string) (map[string]domain.Variant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+variantCols+` FROM variants WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.Variant, len(ids))
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out[v.ID] = v
	}
	return out, rows.Err()
}
