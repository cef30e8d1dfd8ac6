package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	cartpg "github.com/mkravets/storefront/internal/cart/infrastructure/postgres"
	"github.com/mkravets/storefront/internal/checkout/application"
	loyaltypg "github.com/mkravets/storefront/internal/loyalty/postgres"
	"github.com/mkravets/storefront/internal/order/domain"
	"github.com/mkravets/storefront/pkg/tracing"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindByTransactionID(ctx context.Context, transactionID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id FROM orders WHERE transaction_id=$1`, transactionID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// Finalize performs the whole fulfillment in one transaction: the order and
// its line snapshot are written, the point balance moves, the cart empties
// (the reservation is consumed, never released) and the finalized event is
// queued. The unique transaction id turns a concurrent duplicate into
// ErrDuplicateTransaction instead of a second order.
func (r *Repository) Finalize(ctx context.Context, p application.FinalizeParams) (string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	cart, err := cartpg.LoadTx(ctx, tx, p.CartKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", application.ErrEmptyCart
	}
	if err != nil {
		return "", err
	}
	if cart.Empty() {
		return "", application.ErrEmptyCart
	}

	// guests have no account to credit
	earned := p.EarnedPoints
	if p.Guest {
		earned = 0
	}

	orderID := uuid.NewString()
	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, guest, status, amount_cents, discount_cents,
			transaction_id, refund_id, card_brand, card_last4, earned_points, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'',$8,$9,$10,$11,$11)
	`, orderID, p.UserID, p.Guest, domain.StatusPending, p.AmountCents, p.DiscountCents,
		p.TransactionID, p.CardBrand, p.CardLast4, earned, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", application.ErrDuplicateTransaction
		}
		return "", err
	}

	for _, line := range cart.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, variant_id, quantity, subtotal_cents)
			VALUES ($1,$2,$3,$4)
		`, orderID, line.VariantID, line.Quantity, line.SubTotalCents)
		if err != nil {
			return "", err
		}
	}

	if !p.Guest {
		if err := loyaltypg.CreditTx(ctx, tx, p.UserID, p.EarnedPoints-p.PointsConsumed); err != nil {
			return "", err
		}
	}

	if err := cartpg.ClearTx(ctx, tx, p.CartKey); err != nil {
		return "", err
	}

	payload, err := json.Marshal(domain.OrderFinalized{
		OrderID:      orderID,
		UserID:       p.UserID,
		Guest:        p.Guest,
		AmountCents:  p.AmountCents,
		EarnedPoints: earned,
	})
	if err != nil {
		return "", err
	}
	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`, "order", orderID, "OrderFinalized", payload, tracing.Traceparent(ctx))
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return orderID, nil
}
