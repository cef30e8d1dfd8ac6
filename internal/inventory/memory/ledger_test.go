package memory

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/mkravets/storefront/internal/catalog/domain"
	"github.com/mkravets/storefront/internal/inventory/domain"
)

func TestLedger_ReserveAndRelease(t *testing.T) {
	l := NewLedger()
	l.SetStock("v1", 5)

	require.NoError(t, l.Reserve("v1", 3))
	assert.Equal(t, 2, l.Stock("v1"))

	err := l.Reserve("v1", 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 2, l.Stock("v1"), "failed reservation must not change stock")

	l.Release("v1", 3)
	assert.Equal(t, 5, l.Stock("v1"))
}

func TestLedger_UnknownVariant(t *testing.T) {
	l := NewLedger()
	assert.ErrorIs(t, l.Reserve("missing", 1), catalogdomain.ErrVariantNotFound)
}

// With stock K and N concurrent single-unit reservations, at most K may
// succeed and the successes must account exactly for the consumed stock.
func TestLedger_ConcurrentReservationsNeverOversell(t *testing.T) {
	const stock = 5
	const workers = 50

	l := NewLedger()
	l.SetStock("v1", stock)

	var wg sync.WaitGroup
	var reserved atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Reserve("v1", 1); err == nil {
				reserved.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(stock), reserved.Load())
	assert.Equal(t, 0, l.Stock("v1"))
}
