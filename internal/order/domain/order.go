package domain

import (
	"errors"
	"time"

	"github.com/mkravets/storefront/internal/identity"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotCancellable   = errors.New("order can only be cancelled while pending")
	ErrOrderAlreadyCancelled = errors.New("order already cancelled")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrRefundFailed          = errors.New("refund request failed")
)

// Item is an immutable snapshot of a cart line at confirmation time.
type Item struct {
	VariantID     string
	Quantity      int
	SubTotalCents int64
}

type PaymentDetails struct {
	TransactionID string
	AmountCents   int64
	DiscountCents int64
	RefundID      string
	CardBrand     string
	CardLast4     string
}

type Order struct {
	ID           string
	UserID       string
	Guest        bool
	Items        []Item
	Payment      PaymentDetails
	Status       Status
	EarnedPoints int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (o *Order) OwnedBy(id identity.Identity) bool {
	return o.UserID == id.ID && o.Guest == id.Guest
}
