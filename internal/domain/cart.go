package domain

import (
	"fmt"
	"time"
)

// Collection names one of the two synchronized collections.
type Collection string

const (
	CollectionCart      Collection = "cart"
	CollectionFavorites Collection = "favorites"
)

func (c Collection) Validate() error {
	switch c {
	case CollectionCart, CollectionFavorites:
		return nil
	}
	return fmt.Errorf("%w: unknown collection %q", ErrValidation, string(c))
}

// LineItem is one distinct purchasable selection in the cart.
type LineItem struct {
	Identity ItemIdentity `json:"identity" bson:"identity"`
	Product  Product      `json:"product" bson:"product"`
	Quantity int          `json:"quantity" bson:"quantity"`
	AddedAt  time.Time    `json:"added_at" bson:"added_at"`
}

func (i LineItem) Key() string {
	return i.Identity.Key()
}

func (i LineItem) Subtotal() float64 {
	return i.Product.UnitPrice * float64(i.Quantity)
}

// Cart is the insertion-ordered set of line items of one owning session.
// Total and ItemCount are derived; every mutating method recomputes them.
type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"item_count"`
}

func NewCart(ownerID string) Cart {
	return Cart{OwnerID: ownerID}
}

// Recompute derives Total and ItemCount from the items.
func (c *Cart) Recompute() {
	if len(c.Items) == 0 {
		c.Items = nil
	}
	var total float64
	var count int
	for _, item := range c.Items {
		total += item.Subtotal()
		count += item.Quantity
	}
	c.Total = total
	c.ItemCount = count
}

// Find returns the item with the given identity key and its index, or -1.
func (c *Cart) Find(key string) (LineItem, int) {
	for i, item := range c.Items {
		if item.Key() == key {
			return item, i
		}
	}
	return LineItem{}, -1
}

// Add inserts the item, or increments the existing item with the same identity.
// The existing item keeps its product snapshot.
func (c *Cart) Add(item LineItem) LineItem {
	if _, idx := c.Find(item.Key()); idx >= 0 {
		c.Items[idx].Quantity += item.Quantity
		c.dropEmpty()
		c.Recompute()
		if idx < len(c.Items) {
			return c.Items[idx]
		}
		return LineItem{}
	}
	if item.Quantity > 0 {
		c.Items = append(c.Items, item)
	}
	c.Recompute()
	return item
}

// SetQuantity sets an absolute quantity. A quantity <= 0 removes the item.
// It reports whether an item with the key existed.
func (c *Cart) SetQuantity(key string, quantity int) bool {
	_, idx := c.Find(key)
	if idx < 0 {
		return false
	}
	if quantity <= 0 {
		c.Remove(key)
		return true
	}
	c.Items[idx].Quantity = quantity
	c.Recompute()
	return true
}

// Remove deletes the item and returns it with the index it occupied.
func (c *Cart) Remove(key string) (LineItem, int) {
	item, idx := c.Find(key)
	if idx < 0 {
		return LineItem{}, -1
	}
	c.Items = append(c.Items[:idx:idx], c.Items[idx+1:]...)
	c.Recompute()
	return item, idx
}

// Restore puts an item back at index, replacing an item with the same identity.
func (c *Cart) Restore(item LineItem, index int) {
	if _, idx := c.Find(item.Key()); idx >= 0 {
		c.Items = append(c.Items[:idx:idx], c.Items[idx+1:]...)
	}
	if item.Quantity <= 0 {
		c.Recompute()
		return
	}
	if index < 0 || index > len(c.Items) {
		index = len(c.Items)
	}
	c.Items = append(c.Items, LineItem{})
	copy(c.Items[index+1:], c.Items[index:])
	c.Items[index] = item
	c.Recompute()
}

func (c *Cart) Clear() {
	c.Items = nil
	c.Recompute()
}

func (c Cart) Quantity(key string) int {
	item, idx := c.Find(key)
	if idx < 0 {
		return 0
	}
	return item.Quantity
}

// Clone returns a deep copy; item snapshots do not share variant maps.
func (c Cart) Clone() Cart {
	out := c
	if c.Items != nil {
		out.Items = make([]LineItem, len(c.Items))
		for i, item := range c.Items {
			out.Items[i] = item.clone()
		}
	}
	return out
}

func (c *Cart) dropEmpty() {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

func (i LineItem) clone() LineItem {
	out := i
	if i.Identity.Variant != nil {
		out.Identity.Variant = make(Variant, len(i.Identity.Variant))
		for k, v := range i.Identity.Variant {
			out.Identity.Variant[k] = v
		}
	}
	return out
}
