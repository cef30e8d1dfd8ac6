package application

import (
	"context"
	"errors"

	catalogdomain "github.com/mkravets/storefront/internal/catalog/domain"
	"github.com/mkravets/storefront/internal/cart/domain"
	"github.com/mkravets/storefront/internal/identity"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cart not in cache")

// Repository operations are transactional end to end: the stock reservation
// and the cart mutation commit or roll back together.
type Repository interface {
	Get(ctx context.Context, id identity.Identity) (domain.Cart, error)
	AddItem(ctx context.Context, id identity.Identity, variantID string, qty int) (domain.Cart, error)
	UpdateItem(ctx context.Context, id identity.Identity, variantID string, qty int) (domain.Cart, error)
	RemoveItem(ctx context.Context, id identity.Identity, variantID string) (domain.Cart, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (CartView, error)
	Set(ctx context.Context, key string, view CartView) error
	Delete(ctx context.Context, key string) error
}

type CatalogReader interface {
	Variants(ctx context.Context, ids []string) (map[string]catalogdomain.Variant, error)
}
