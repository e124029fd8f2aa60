// Package cart holds the client-side cart aggregate and the pricing rules
// shared by the checkout flow and the order commit pipeline.
package cart

import (
	"github.com/google/uuid"
	"github.com/yashrajoria/storefront/models"
)

// Cart is an ordered collection of line items, deduplicated by
// (product id, size, color). The zero value is an empty cart.
type Cart struct {
	items []models.LineItem
}

// New builds a cart from existing items, merging duplicates and assigning
// ids to items that have none.
func New(items ...models.LineItem) *Cart {
	c := &Cart{}
	for _, item := range items {
		c.AddItem(item)
	}
	return c
}

func key(item models.LineItem) string {
	return item.Product.ID + "\x00" + item.Size + "\x00" + item.Color
}

// Items returns a copy of the cart contents.
func (c *Cart) Items() []models.LineItem {
	out := make([]models.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// AddItem merges the item into an existing entry with the same key or appends
// it. It returns the resulting entry.
func (c *Cart) AddItem(item models.LineItem) models.LineItem {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	k := key(item)
	for i := range c.items {
		if key(c.items[i]) == k {
			c.items[i].Quantity += item.Quantity
			return c.items[i]
		}
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	c.items = append(c.items, item)
	return item
}

// UpdateQuantity sets the quantity of an item; a quantity <= 0 removes it.
// It reports whether the item was found.
func (c *Cart) UpdateQuantity(itemID string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveItem(itemID)
	}
	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items[i].Quantity = quantity
			return true
		}
	}
	return false
}

func (c *Cart) RemoveItem(itemID string) bool {
	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Clear() { c.items = nil }

func (c *Cart) ComputeTotals(policy PricingPolicy) models.Totals {
	return policy.Price(c.items)
}
