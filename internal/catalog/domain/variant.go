package domain

import "errors"

var ErrVariantNotFound = errors.New("variant not found")

// Variant is the sellable unit of a product. CostCents is internal and must
// never be serialized to shoppers.
type Variant struct {
	ID             string
	ProductID      string
	Name           string
	PriceCents     int64
	CompareAtCents int64
	CostCents      int64
	Stock          int
	ImageURL       string
}
