// Package memory implements the stock ledger contract in memory. It backs
// unit tests and local runs without Postgres; the conditional check and the
// decrement happen under one lock, mirroring the single-statement guarantee
// of the SQL ledger.
package memory

import (
	"sync"

	catalogdomain "github.com/mkravets/storefront/internal/catalog/domain"
	"github.com/mkravets/storefront/internal/inventory/domain"
)

type Ledger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{stock: make(map[string]int)}
}

func (l *Ledger) SetStock(variantID string, qty int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[variantID] = qty
}

func (l *Ledger) Stock(variantID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[variantID]
}

func (l *Ledger) Reserve(variantID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	have, ok := l.stock[variantID]
	if !ok {
		return catalogdomain.ErrVariantNotFound
	}
	if have < qty {
		return domain.ErrInsufficientStock
	}
	l.stock[variantID] = have - qty
	return nil
}

func (l *Ledger) Release(variantID string, qty int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[variantID] += qty
}
