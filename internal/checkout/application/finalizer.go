package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mkravets/storefront/internal/loyalty"
	orderdomain "github.com/mkravets/storefront/internal/order/domain"
	"github.com/mkravets/storefront/internal/payment/processor"
	"github.com/mkravets/storefront/pkg/metrics"
)

// Finalizer turns a verified payment event into an order. Redeliveries are
// absorbed twice over: a redis fast path on the event id, and the unique
// payment transaction id on the orders table as the authoritative check.
type Finalizer struct {
	log      *slog.Logger
	provider Provider
	repo     Repository
	carts    Carts
	idem     EventDedup
	metrics  *metrics.FulfillmentMetrics
}

func NewFinalizer(log *slog.Logger, provider Provider, repo Repository, carts Carts,
	idem EventDedup, m *metrics.FulfillmentMetrics) *Finalizer {
	return &Finalizer{log: log, provider: provider, repo: repo, carts: carts, idem: idem, metrics: m}
}

// HandleEvent processes one delivery. A nil return acknowledges the event to
// the processor; any error makes it redeliver.
func (f *Finalizer) HandleEvent(ctx context.Context, ev processor.Event) error {
	if ev.Type != processor.EventCheckoutCompleted {
		f.log.Debug("ignoring event", "event_id", ev.ID, "type", ev.Type)
		return nil
	}

	key := f.idem.Key(ev.ID)
	seen, err := f.idem.Seen(ctx, key)
	if err != nil {
		f.log.Warn("idempotency check unavailable, falling through to db", "err", err)
	}
	if seen {
		f.duplicate(ev.ID, "redis")
		return nil
	}

	// Never trust the pushed payload financially: re-fetch the session.
	sess, err := f.provider.GetCheckoutSession(ctx, ev.Data.SessionID)
	if err != nil {
		return fmt.Errorf("refetch session: %w", err)
	}
	if sess.PaymentStatus != processor.PaymentStatusPaid {
		return fmt.Errorf("%w: session %s is %q", processor.ErrPaymentNotConfirmed, sess.ID, sess.PaymentStatus)
	}

	txnID := sess.Payment.TransactionID
	if _, err := f.repo.FindByTransactionID(ctx, txnID); err == nil {
		f.duplicate(ev.ID, "db")
		f.mark(ctx, key)
		return nil
	} else if !errors.Is(err, orderdomain.ErrOrderNotFound) {
		return err
	}

	params, err := paramsFromSession(sess)
	if err != nil {
		return fmt.Errorf("session %s metadata: %w", sess.ID, err)
	}

	orderID, err := f.repo.Finalize(ctx, params)
	if errors.Is(err, ErrDuplicateTransaction) {
		// lost the race against a concurrent delivery; same outcome
		f.duplicate(ev.ID, "race")
		f.mark(ctx, key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}

	f.carts.Invalidate(ctx, params.CartKey)
	f.mark(ctx, key)
	if f.metrics != nil {
		f.metrics.OrdersFinalized.Inc()
	}
	f.log.Info("order finalized",
		"order_id", orderID, "transaction_id", txnID,
		"amount_cents", params.AmountCents, "earned_points", params.EarnedPoints)
	return nil
}

func (f *Finalizer) duplicate(eventID, via string) {
	if f.metrics != nil {
		f.metrics.DuplicateEvents.Inc()
	}
	f.log.Info("duplicate event acknowledged", "event_id", eventID, "via", via)
}

func (f *Finalizer) mark(ctx context.Context, key string) {
	if err := f.idem.Mark(ctx, key); err != nil {
		f.log.Warn("idempotency mark failed", "key", key, "err", err)
	}
}

func paramsFromSession(sess processor.Session) (FinalizeParams, error) {
	meta := sess.Metadata
	cartKey := meta[processor.MetaCartKey]
	if cartKey == "" {
		return FinalizeParams{}, errors.New("missing cart_key")
	}
	guest, err := strconv.ParseBool(meta[processor.MetaGuest])
	if err != nil {
		return FinalizeParams{}, fmt.Errorf("guest flag: %w", err)
	}
	consumed, err := strconv.Atoi(meta[processor.MetaPointsConsumed])
	if err != nil {
		return FinalizeParams{}, fmt.Errorf("points_consumed: %w", err)
	}
	discount, err := strconv.ParseInt(meta[processor.MetaDiscountCents], 10, 64)
	if err != nil {
		return FinalizeParams{}, fmt.Errorf("discount_cents: %w", err)
	}

	return FinalizeParams{
		CartKey:        cartKey,
		UserID:         meta[processor.MetaUserID],
		Guest:          guest,
		TransactionID:  sess.Payment.TransactionID,
		AmountCents:    sess.Payment.AmountCents,
		DiscountCents:  discount,
		CardBrand:      sess.Payment.Card.Brand,
		CardLast4:      sess.Payment.Card.Last4,
		PointsConsumed: consumed,
		EarnedPoints:   loyalty.EarnedPoints(sess.Payment.AmountCents),
	}, nil
}
