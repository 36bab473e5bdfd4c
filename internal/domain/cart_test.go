package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(t *testing.T, productID string, price float64, qty int, variant Variant) LineItem {
	t.Helper()
	id, err := NewItemIdentity(productID, variant)
	require.NoError(t, err)
	return LineItem{
		Identity: id,
		Product:  Product{ID: productID, Name: productID, UnitPrice: price},
		Quantity: qty,
	}
}

func assertTotals(t *testing.T, c Cart) {
	t.Helper()
	var total float64
	var count int
	for _, it := range c.Items {
		total += it.Product.UnitPrice * float64(it.Quantity)
		count += it.Quantity
	}
	assert.InDelta(t, total, c.Total, 1e-9)
	assert.Equal(t, count, c.ItemCount)
}

func TestCart_AddIncrementsSameIdentity(t *testing.T) {
	c := NewCart("u1")
	c.Add(item(t, "A", 10, 2, nil))
	c.Add(item(t, "A", 99, 1, nil))
	c.Add(item(t, "A", 10, 1, Variant{"size": "M"}))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 10.0, c.Items[0].Product.UnitPrice, "snapshot is not re-priced")
	assert.Equal(t, 4, c.ItemCount)
	assert.Equal(t, 40.0, c.Total)
	assertTotals(t, c)
}

func TestCart_SetQuantityZeroRemoves(t *testing.T) {
	c := NewCart("u1")
	a := item(t, "A", 5, 2, nil)
	c.Add(a)

	assert.True(t, c.SetQuantity(a.Key(), 7))
	assert.Equal(t, 7, c.Quantity(a.Key()))

	assert.True(t, c.SetQuantity(a.Key(), 0))
	assert.Nil(t, c.Items)
	assert.Equal(t, 0, c.ItemCount)
	assert.False(t, c.SetQuantity(a.Key(), 3))
}

func TestCart_RemoveAndRestoreKeepsOrder(t *testing.T) {
	c := NewCart("u1")
	c.Add(item(t, "A", 1, 1, nil))
	c.Add(item(t, "B", 2, 1, nil))
	c.Add(item(t, "C", 3, 1, nil))
	before := c.Clone()

	removed, idx := c.Remove("B")
	require.Equal(t, 1, idx)
	assert.Len(t, c.Items, 2)
	assertTotals(t, c)

	c.Restore(removed, idx)
	assert.Equal(t, before, c)
}

func TestCart_CloneIsDeep(t *testing.T) {
	c := NewCart("u1")
	c.Add(item(t, "A", 1, 1, Variant{"size": "S"}))
	clone := c.Clone()

	c.Items[0].Identity.Variant["size"] = "XL"
	c.Items[0].Quantity = 9

	assert.Equal(t, "S", clone.Items[0].Identity.Variant["size"])
	assert.Equal(t, 1, clone.Items[0].Quantity)
}

func TestFavoriteSet(t *testing.T) {
	f := NewFavoriteSet("u1", "A", "B", "A")
	assert.Equal(t, []string{"A", "B"}, f.IDs())

	assert.False(t, f.Add("A"))
	idx, ok := f.Remove("A")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	f.Restore("A", idx)
	assert.Equal(t, []string{"A", "B"}, f.IDs())

	f.Union(NewFavoriteSet("u2", "B", "C"))
	assert.Equal(t, []string{"A", "B", "C"}, f.IDs())
}
