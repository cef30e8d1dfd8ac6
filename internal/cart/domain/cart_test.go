package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumOfLines(c Cart) int64 {
	var total int64
	for _, l := range c.Items {
		total += l.SubTotalCents
	}
	return total
}

func TestCart_AddUpdateRemoveTotals(t *testing.T) {
	c := New("user-1", false)

	c.AddItem("v1", 3, 1000)
	assert.Equal(t, int64(3000), c.TotalCents)

	require.NoError(t, c.SetQuantity("v1", 1, 1000))
	assert.Equal(t, int64(1000), c.TotalCents)

	_, err := c.RemoveItem("v1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.TotalCents)
	assert.True(t, c.Empty())
}

func TestCart_AddMergesExistingLine(t *testing.T) {
	c := New("user-1", false)

	c.AddItem("v1", 2, 1000)
	c.AddItem("v2", 1, 500)
	c.AddItem("v1", 1, 1200) // price changed since the first add

	require.Len(t, c.Items, 2)
	line, ok := c.Line("v1")
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity)
	// the whole line is refixed at the current price
	assert.Equal(t, int64(3600), line.SubTotalCents)
	assert.Equal(t, sumOfLines(c), c.TotalCents)
}

func TestCart_TotalInvariantAfterEveryMutation(t *testing.T) {
	c := New("user-1", false)

	c.AddItem("v1", 2, 999)
	assert.Equal(t, sumOfLines(c), c.TotalCents)

	c.AddItem("v2", 5, 250)
	assert.Equal(t, sumOfLines(c), c.TotalCents)

	require.NoError(t, c.SetQuantity("v2", 3, 300))
	assert.Equal(t, sumOfLines(c), c.TotalCents)

	_, err := c.RemoveItem("v1")
	require.NoError(t, err)
	assert.Equal(t, sumOfLines(c), c.TotalCents)

	c.Clear()
	assert.Equal(t, int64(0), c.TotalCents)
}

func TestCart_MissingLineErrors(t *testing.T) {
	c := New("user-1", false)

	assert.ErrorIs(t, c.SetQuantity("v1", 2, 100), ErrItemNotFound)
	_, err := c.RemoveItem("v1")
	assert.ErrorIs(t, err, ErrItemNotFound)
}
