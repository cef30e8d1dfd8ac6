package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mkravets/storefront/internal/cart/domain"
	"github.com/mkravets/storefront/internal/identity"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type Service struct {
	log     *slog.Logger
	repo    Repository
	cache   Cache
	catalog CatalogReader
	sfg     singleflight.Group
}

func NewService(log *slog.Logger, repo Repository, cache Cache, catalog CatalogReader) *Service {
	return &Service{log: log, repo: repo, cache: cache, catalog: catalog}
}

// Get finds or creates the shopper's cart, with lines resolved for display.
// Singleflight collapses concurrent cache misses for the same shopper.
func (s *Service) Get(ctx context.Context, id identity.Identity) (CartView, error) {
	v, err, _ := s.sfg.Do(id.Key(), func() (interface{}, error) {
		view, err := s.cache.Get(ctx, id.Key())
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cart cache get failed", "err", err)
		}

		cart, err := s.repo.Get(ctx, id)
		if err != nil {
			return CartView{}, err
		}
		view, err = s.resolve(ctx, cart)
		if err != nil {
			return CartView{}, err
		}

		// The fill must complete before Get returns; a detached fill can
		// land after a later mutation's invalidation and pin a stale view
		// for the whole TTL.
		if err := s.cache.Set(ctx, id.Key(), view); err != nil {
			s.log.Warn("cart cache set failed", "err", err)
		}
		return view, nil
	})
	if err != nil {
		return CartView{}, err
	}
	return v.(CartView), nil
}

func (s *Service) AddItem(ctx context.Context, id identity.Identity, variantID string, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, ErrInvalidQuantity
	}
	cart, err := s.repo.AddItem(ctx, id, variantID, qty)
	if err != nil {
		return CartView{}, err
	}
	s.Invalidate(ctx, id.Key())
	return s.resolve(ctx, cart)
}

func (s *Service) UpdateItem(ctx context.Context, id identity.Identity, variantID string, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, ErrInvalidQuantity
	}
	cart, err := s.repo.UpdateItem(ctx, id, variantID, qty)
	if err != nil {
		return CartView{}, err
	}
	s.Invalidate(ctx, id.Key())
	return s.resolve(ctx, cart)
}

func (s *Service) RemoveItem(ctx context.Context, id identity.Identity, variantID string) (CartView, error) {
	cart, err := s.repo.RemoveItem(ctx, id, variantID)
	if err != nil {
		return CartView{}, err
	}
	s.Invalidate(ctx, id.Key())
	return s.resolve(ctx, cart)
}

// Invalidate drops the cached view. Cache failures are logged, never
// surfaced; the repository stays authoritative.
func (s *Service) Invalidate(_ context.Context, key string) {
	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(cctx, key); err != nil {
		s.log.Warn("cart cache invalidate failed", "key", key, "err", err)
	}
}

func (s *Service) resolve(ctx context.Context, cart domain.Cart) (CartView, error) {
	if len(cart.Items) == 0 {
		return newView(cart, nil), nil
	}
	ids := make([]string, 0, len(cart.Items))
	for _, l := range cart.Items {
		ids = append(ids, l.VariantID)
	}
	variants, err := s.catalog.Variants(ctx, ids)
	if err != nil {
		return CartView{}, err
	}
	return newView(cart, variants), nil
}
