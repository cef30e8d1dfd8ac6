package application

import (
	catalogdomain "github.com/mkravets/storefront/internal/catalog/domain"
	"github.com/mkravets/storefront/internal/cart/domain"
)

// LineView is a cart line resolved with display data. SubTotalCents stays
// the value fixed at the last mutation; UnitPriceCents is the variant's
// current price for display.
type LineView struct {
	VariantID      string `json:"variant_id"`
	Name           string `json:"name"`
	ImageURL       string `json:"image_url"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	SubTotalCents  int64  `json:"subtotal_cents"`
}

type CartView struct {
	Identity   string     `json:"identity"`
	Guest      bool       `json:"guest"`
	Items      []LineView `json:"items"`
	TotalCents int64      `json:"total_cents"`
}

func newView(cart domain.Cart, variants map[string]catalogdomain.Variant) CartView {
	view := CartView{
		Identity:   cart.Identity,
		Guest:      cart.Guest,
		Items:      make([]LineView, 0, len(cart.Items)),
		TotalCents: cart.TotalCents,
	}
	for _, l := range cart.Items {
		v := variants[l.VariantID]
		view.Items = append(view.Items, LineView{
			VariantID:      l.VariantID,
			Name:           v.Name,
			ImageURL:       v.ImageURL,
			UnitPriceCents: v.PriceCents,
			Quantity:       l.Quantity,
			SubTotalCents:  l.SubTotalCents,
		})
	}
	return view
}
