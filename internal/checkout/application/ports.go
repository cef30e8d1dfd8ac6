package application

import (
	"context"
	"errors"

	cartapp "github.com/mkravets/storefront/internal/cart/application"
	"github.com/mkravets/storefront/internal/identity"
	"github.com/mkravets/storefront/internal/payment/processor"
)

var (
	ErrEmptyCart = errors.New("cart is empty")

	// ErrDuplicateTransaction reports that an order for this payment
	// transaction already exists. It is a success signal for the webhook,
	// not a failure.
	ErrDuplicateTransaction = errors.New("transaction already fulfilled")
)

// Provider is the payment processor surface checkout needs.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params processor.SessionParams) (processor.Session, error)
	GetCheckoutSession(ctx context.Context, id string) (processor.Session, error)
}

type Carts interface {
	Get(ctx context.Context, id identity.Identity) (cartapp.CartView, error)
	Invalidate(ctx context.Context, key string)
}

type Accounts interface {
	Points(ctx context.Context, userID string) (int, error)
}

// EventDedup is the redis fast path for already-processed event ids.
type EventDedup interface {
	Key(eventID string) string
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type FinalizeParams struct {
	CartKey        string
	UserID         string
	Guest          bool
	TransactionID  string
	AmountCents    int64
	DiscountCents  int64
	CardBrand      string
	CardLast4      string
	PointsConsumed int
	EarnedPoints   int
}

type Repository interface {
	// FindByTransactionID returns the id of the order already created for
	// the transaction, or order's not-found error.
	FindByTransactionID(ctx context.Context, transactionID string) (string, error)
	// Finalize creates the order, adjusts the point balance, clears the
	// cart and queues the finalized event in one transaction.
	Finalize(ctx context.Context, p FinalizeParams) (string, error)
}
