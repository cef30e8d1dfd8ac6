package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkravets/storefront/internal/identity"
	"github.com/mkravets/storefront/internal/order/domain"
	"github.com/mkravets/storefront/pkg/metrics"
)

type Service struct {
	log     *slog.Logger
	repo    Repository
	refunds RefundProvider
	metrics *metrics.FulfillmentMetrics
}

func NewService(log *slog.Logger, repo Repository, refunds RefundProvider, m *metrics.FulfillmentMetrics) *Service {
	return &Service{log: log, repo: repo, refunds: refunds, metrics: m}
}

// Get returns the order if the caller owns it or is an admin. Foreign orders
// read as not found rather than forbidden.
func (s *Service) Get(ctx context.Context, orderID string, id identity.Identity, admin bool) (domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !admin && !o.OwnedBy(id) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, id identity.Identity, admin bool, f Filter) ([]domain.Order, error) {
	if !admin {
		f.OwnerID = id.ID
		f.Guest = id.Guest
		f.OwnerSet = true
	}
	return s.repo.List(ctx, f)
}

// UpdateStatus moves an order through the state machine. Admin only;
// cancellation goes through Cancel so it cannot skip the refund.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to domain.Status) (domain.Order, error) {
	if to == domain.StatusCancelled {
		return domain.Order{}, domain.ErrOrderNotCancellable
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := domain.Transition(o.Status, to); err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.UpdateStatus(ctx, orderID, o.Status, to); err != nil {
		return domain.Order{}, err
	}
	o.Status = to
	s.log.Info("order status updated", "order_id", orderID, "status", to)
	return o, nil
}

// Cancel refunds the payment and compensates the reservation. The refund
// call comes first: if it fails nothing changes, so a cancelled order always
// carries a refund id.
func (s *Service) Cancel(ctx context.Context, orderID string, id identity.Identity, admin bool) (domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !admin && !o.OwnedBy(id) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if o.Status == domain.StatusCancelled {
		return domain.Order{}, domain.ErrOrderAlreadyCancelled
	}
	if o.Status != domain.StatusPending {
		return domain.Order{}, domain.ErrOrderNotCancellable
	}

	refundID, err := s.refunds.CreateRefund(ctx, o.Payment.TransactionID, o.Payment.AmountCents)
	if err != nil {
		s.log.Error("refund request failed", "order_id", orderID, "err", err)
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrRefundFailed, err)
	}

	if err := s.repo.CancelWithRestock(ctx, o, refundID); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.StatusCancelled
	o.Payment.RefundID = refundID
	if s.metrics != nil {
		s.metrics.OrdersCancelled.Inc()
	}
	s.log.Info("order cancelled", "order_id", orderID, "refund_id", refundID)
	return o, nil
}
