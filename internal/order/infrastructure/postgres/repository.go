package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invpg "github.com/mkravets/storefront/internal/inventory/postgres"
	"github.com/mkravets/storefront/internal/order/application"
	"github.com/mkravets/storefront/internal/order/domain"
	"github.com/mkravets/storefront/pkg/tracing"
)

type Repository struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	ledger *invpg.Ledger
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, ledger *invpg.Ledger) *Repository {
	return &Repository{log: log, pool: pool, ledger: ledger}
}

const orderCols = `id, user_id, guest, status, amount_cents, discount_cents, transaction_id,
	refund_id, card_brand, card_last4, earned_points, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Guest, &o.Status, &o.Payment.AmountCents,
		&o.Payment.DiscountCents, &o.Payment.TransactionID, &o.Payment.RefundID,
		&o.Payment.CardBrand, &o.Payment.CardLast4, &o.EarnedPoints, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := r.pool.Query(ctx,
		`SELECT variant_id, quantity, subtotal_cents FROM order_items WHERE order_id=$1`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.VariantID, &item.Quantity, &item.SubTotalCents); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (r *Repository) List(ctx context.Context, f application.Filter) ([]domain.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders WHERE 1=1`
	args := []any{}

	if f.OwnerSet {
		args = append(args, f.OwnerID, f.Guest)
		query += fmt.Sprintf(` AND user_id=$%d AND guest=$%d`, len(args)-1, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2`,
		id, from, to, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		// the order moved concurrently; the caller re-reads and retries
		return domain.ErrInvalidTransition
	}
	return nil
}

// CancelWithRestock is the compensating transaction for a pending order:
// every reserved unit goes back to the ledger, the refund reference lands on
// the order, and the cancellation event is queued, atomically.
func (r *Repository) CancelWithRestock(ctx context.Context, o domain.Order, refundID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, refund_id=$3, updated_at=$4 WHERE id=$1 AND status=$5`,
		o.ID, domain.StatusCancelled, refundID, time.Now().UTC(), domain.StatusPending)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotCancellable
	}

	for _, item := range o.Items {
		if err := r.ledger.Release(ctx, tx, item.VariantID, item.Quantity); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(domain.OrderCancelled{OrderID: o.ID, RefundID: refundID})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`, "order", o.ID, "OrderCancelled", payload, tracing.Traceparent(ctx))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
