package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	catalogdomain "github.com/mkravets/storefront/internal/catalog/domain"
	"github.com/mkravets/storefront/internal/inventory/domain"
)

// Ledger adjusts per-variant stock. Both operations run on the caller's
// transaction so a stock change always commits or rolls back together with
// the cart or order mutation that caused it.
type Ledger struct{}

func NewLedger() *Ledger { return &Ledger{} }

// Reserve decrements stock by qty as a single conditional update. The
// condition lives in the WHERE clause, not in application code, so
// concurrent reservations for the same variant cannot oversell.
func (l *Ledger) Reserve(ctx context.Context, tx pgx.Tx, variantID string, qty int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE variants SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		variantID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM variants WHERE id=$1)`, variantID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return catalogdomain.ErrVariantNotFound
	}
	return domain.ErrInsufficientStock
}

// Release gives qty units back. It is unconditional; releasing the same
// reservation twice is a caller bug the ledger cannot detect.
func (l *Ledger) Release(ctx context.Context, tx pgx.Tx, variantID string, qty int) error {
	_, err := tx.Exec(ctx,
		`UPDATE variants SET stock = stock + $2 WHERE id = $1`,
		variantID, qty)
	return err
}
