package application

import (
	"context"
	"time"

	"github.com/mkravets/storefront/internal/order/domain"
)

type Filter struct {
	OwnerID string
	Guest   bool
	// OwnerSet narrows to one shopper; admins list across owners.
	OwnerSet bool
	Status   domain.Status
	From     time.Time
	To       time.Time
}

type Repository interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, f Filter) ([]domain.Order, error)
	// UpdateStatus is optimistic: it only applies when the stored status
	// still equals from.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status) error
	// CancelWithRestock releases every line's stock, records the refund and
	// sets the cancelled status in one transaction.
	CancelWithRestock(ctx context.Context, o domain.Order, refundID string) error
}

type RefundProvider interface {
	CreateRefund(ctx context.Context, transactionID string, amountCents int64) (string, error)
}
