package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	catalogpg "github.com/mkravets/storefront/internal/catalog/postgres"
	"github.com/mkravets/storefront/internal/cart/domain"
	"github.com/mkravets/storefront/internal/identity"
	invpg "github.com/mkravets/storefront/internal/inventory/postgres"
)

// Repository runs every cart mutation as one transaction that also drives
// the inventory ledger, so a stock decrement without its cart line (or the
// reverse) is never observable.
type Repository struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	ledger *invpg.Ledger
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, ledger *invpg.Ledger) *Repository {
	return &Repository{log: log, pool: pool, ledger: ledger}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) Get(ctx context.Context, id identity.Identity) (domain.Cart, error) {
	if err := r.ensure(ctx, r.pool, id); err != nil {
		return domain.Cart{}, err
	}
	return r.load(ctx, r.pool, id.Key(), false)
}

func (r *Repository) AddItem(ctx context.Context, id identity.Identity, variantID string, qty int) (domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Cart{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := r.ensure(ctx, tx, id); err != nil {
		return domain.Cart{}, err
	}
	// cart row first, then the variant row, same as UpdateItem/RemoveItem;
	// mixed lock order across mutations of the same cart can deadlock
	cart, err := r.load(ctx, tx, id.Key(), true)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := r.ledger.Reserve(ctx, tx, variantID, qty); err != nil {
		return domain.Cart{}, err
	}
	variant, err := catalogpg.GetTx(ctx, tx, variantID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.AddItem(variantID, qty, variant.PriceCents)
	line, _ := cart.Line(variantID)

	_, err = tx.Exec(ctx, `INSERT INTO cart_items (cart_identity, variant_id, quantity, subtotal_cents)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (cart_identity, variant_id) DO UPDATE SET quantity=$3, subtotal_cents=$4`,
		cart.Identity, variantID, line.Quantity, line.SubTotalCents)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := r.saveTotal(ctx, tx, cart); err != nil {
		return domain.Cart{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r *Repository) UpdateItem(ctx context.Context, id identity.Identity, variantID string, qty int) (domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Cart{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	cart, err := r.load(ctx, tx, id.Key(), true)
	if err != nil {
		return domain.Cart{}, err
	}
	line, ok := cart.Line(variantID)
	if !ok {
		return domain.Cart{}, domain.ErrItemNotFound
	}

	diff := qty - line.Quantity
	if diff > 0 {
		if err := r.ledger.Reserve(ctx, tx, variantID, diff); err != nil {
			return domain.Cart{}, err
		}
	} else if diff < 0 {
		if err := r.ledger.Release(ctx, tx, variantID, -diff); err != nil {
			return domain.Cart{}, err
		}
	}

	variant, err := catalogpg.GetTx(ctx, tx, variantID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := cart.SetQuantity(variantID, qty, variant.PriceCents); err != nil {
		return domain.Cart{}, err
	}
	line, _ = cart.Line(variantID)

	_, err = tx.Exec(ctx, `UPDATE cart_items SET quantity=$3, subtotal_cents=$4 WHERE cart_identity=$1 AND variant_id=$2`,
		cart.Identity, variantID, line.Quantity, line.SubTotalCents)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := r.saveTotal(ctx, tx, cart); err != nil {
		return domain.Cart{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r *Repository) RemoveItem(ctx context.Context, id identity.Identity, variantID string) (domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Cart{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	cart, err := r.load(ctx, tx, id.Key(), true)
	if err != nil {
		return domain.Cart{}, err
	}
	removed, err := cart.RemoveItem(variantID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := r.ledger.Release(ctx, tx, variantID, removed.Quantity); err != nil {
		return domain.Cart{}, err
	}

	_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_identity=$1 AND variant_id=$2`, cart.Identity, variantID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := r.saveTotal(ctx, tx, cart); err != nil {
		return domain.Cart{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

// ClearTx empties the cart inside the caller's transaction without touching
// stock. Used by order finalization, where the reservation was consumed
// permanently by the purchase.
func ClearTx(ctx context.Context, tx pgx.Tx, identityKey string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_identity=$1`, identityKey); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `UPDATE carts SET total_cents=0, updated_at=$2 WHERE identity=$1`,
		identityKey, time.Now().UTC())
	return err
}

// LoadTx reads the cart rows inside the caller's transaction.
func LoadTx(ctx context.Context, tx pgx.Tx, identityKey string) (domain.Cart, error) {
	r := &Repository{}
	return r.load(ctx, tx, identityKey, true)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *Repository) ensure(ctx context.Context, q execer, id identity.Identity) error {
	now := time.Now().UTC()
	_, err := q.Exec(ctx, `INSERT INTO carts (identity, guest, total_cents, created_at, updated_at)
		VALUES ($1,$2,0,$3,$3) ON CONFLICT (identity) DO NOTHING`, id.Key(), id.Guest, now)
	return err
}

func (r *Repository) saveTotal(ctx context.Context, tx pgx.Tx, cart domain.Cart) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET total_cents=$2, updated_at=$3 WHERE identity=$1`,
		cart.Identity, cart.TotalCents, time.Now().UTC())
	return err
}

func (r *Repository) load(ctx context.Context, q querier, identityKey string, forUpdate bool) (domain.Cart, error) {
	sel := `SELECT identity, guest, total_cents, created_at, updated_at FROM carts WHERE identity=$1`
	if forUpdate {
		sel += ` FOR UPDATE`
	}

	var cart domain.Cart
	err := q.QueryRow(ctx, sel, identityKey).
		Scan(&cart.Identity, &cart.Guest, &cart.TotalCents, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return domain.Cart{}, err
	}

	rows, err := q.Query(ctx, `SELECT variant_id, quantity, subtotal_cents FROM cart_items
		WHERE cart_identity=$1 ORDER BY position`, identityKey)
	if err != nil {
		return domain.Cart{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.VariantID, &l.Quantity, &l.SubTotalCents); err != nil {
			return domain.Cart{}, err
		}
		cart.Items = append(cart.Items, l)
	}
	return cart, rows.Err()
}
