package domain

import (
	"errors"
	"time"
)

var ErrItemNotFound = errors.New("cart item not found")

// Line fixes its subtotal at the variant price current at the time of the
// last mutation; prices are never re-derived lazily.
type Line struct {
	VariantID     string
	Quantity      int
	SubTotalCents int64
}

type Cart struct {
	Identity   string
	Guest      bool
	Items      []Line
	TotalCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(identityKey string, guest bool) Cart {
	now := time.Now().UTC()
	return Cart{Identity: identityKey, Guest: guest, CreatedAt: now, UpdatedAt: now}
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }

func (c *Cart) Line(variantID string) (Line, bool) {
	for _, l := range c.Items {
		if l.VariantID == variantID {
			return l, true
		}
	}
	return Line{}, false
}

// AddItem merges qty into an existing line or appends a new one. The whole
// line's subtotal is refixed at unitPriceCents.
func (c *Cart) AddItem(variantID string, qty int, unitPriceCents int64) {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			c.Items[i].Quantity += qty
			c.Items[i].SubTotalCents = int64(c.Items[i].Quantity) * unitPriceCents
			c.recalc()
			return
		}
	}
	c.Items = append(c.Items, Line{
		VariantID:     variantID,
		Quantity:      qty,
		SubTotalCents: int64(qty) * unitPriceCents,
	})
	c.recalc()
}

func (c *Cart) SetQuantity(variantID string, qty int, unitPriceCents int64) error {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			c.Items[i].Quantity = qty
			c.Items[i].SubTotalCents = int64(qty) * unitPriceCents
			c.recalc()
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem drops the line and returns it so the caller can release the
// reserved stock.
func (c *Cart) RemoveItem(variantID string) (Line, error) {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			removed := c.Items[i]
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.recalc()
			return removed, nil
		}
	}
	return Line{}, ErrItemNotFound
}

// Clear empties the cart without touching stock; the purchase consumed the
// reservation permanently.
func (c *Cart) Clear() {
	c.Items = nil
	c.TotalCents = 0
	c.UpdatedAt = time.Now().UTC()
}

func (c *Cart) recalc() {
	var total int64
	for _, l := range c.Items {
		total += l.SubTotalCents
	}
	c.TotalCents = total
	c.UpdatedAt = time.Now().UTC()
}
