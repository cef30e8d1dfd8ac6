package application

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/mkravets/storefront/internal/identity"
	"github.com/mkravets/storefront/internal/loyalty"
	"github.com/mkravets/storefront/internal/payment/processor"
)

// Broker opens checkout sessions with the payment processor. Everything the
// asynchronous callback will need to finalize the order travels in the
// session metadata.
type Broker struct {
	log        *slog.Logger
	provider   Provider
	carts      Carts
	accounts   Accounts
	successURL string
	cancelURL  string
}

func NewBroker(log *slog.Logger, provider Provider, carts Carts, accounts Accounts, successURL, cancelURL string) *Broker {
	return &Broker{
		log:        log,
		provider:   provider,
		carts:      carts,
		accounts:   accounts,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (b *Broker) StartCheckout(ctx context.Context, id identity.Identity) (CheckoutSession, error) {
	view, err := b.carts.Get(ctx, id)
	if err != nil {
		return CheckoutSession{}, err
	}
	if len(view.Items) == 0 {
		return CheckoutSession{}, ErrEmptyCart
	}

	lines := make([]processor.LineItem, 0, len(view.Items))
	for _, item := range view.Items {
		lines = append(lines, processor.LineItem{
			Name: item.Name,
			// the price fixed at mutation time, not the current one
			UnitAmountCents: item.SubTotalCents / int64(item.Quantity),
			Quantity:        item.Quantity,
		})
	}

	var discountCents int64
	var pointsConsumed int
	if !id.Guest {
		points, err := b.accounts.Points(ctx, id.ID)
		if err != nil {
			return CheckoutSession{}, err
		}
		if tier, ok := loyalty.MatchTier(points, view.TotalCents); ok {
			discountCents = tier.DiscountCents(view.TotalCents)
			pointsConsumed = tier.RedeemPoints
		}
	}

	sess, err := b.provider.CreateCheckoutSession(ctx, processor.SessionParams{
		AmountCents: view.TotalCents - discountCents,
		Currency:    "usd",
		LineItems:   lines,
		Metadata: map[string]string{
			processor.MetaCartKey:        id.Key(),
			processor.MetaUserID:         id.ID,
			processor.MetaGuest:          strconv.FormatBool(id.Guest),
			processor.MetaPointsConsumed: strconv.Itoa(pointsConsumed),
			processor.MetaDiscountCents:  strconv.FormatInt(discountCents, 10),
		},
		SuccessURL: b.successURL,
		CancelURL:  b.cancelURL,
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	b.log.Info("checkout session created",
		"session_id", sess.ID, "amount_cents", view.TotalCents-discountCents,
		"discount_cents", discountCents, "guest", id.Guest)
	return CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}
