package models

import "time"

// ProductSnapshot copies the sellable attributes of a catalog product at the
// moment it was put in the cart. It is never re-read from the catalog.
type ProductSnapshot struct {
	ID        string   `json:"id" bson:"id" validate:"required"`
	Name      string   `json:"name" bson:"name" validate:"required"`
	SKU       string   `json:"sku,omitempty" bson:"sku,omitempty"`
	Price     float64  `json:"price" bson:"price" validate:"gt=0"`
	SalePrice *float64 `json:"salePrice,omitempty" bson:"sale_price,omitempty"`
	Image     string   `json:"image,omitempty" bson:"image,omitempty"`
}

// UnitPrice is the sale price when one is set, otherwise the list price.
func (p ProductSnapshot) UnitPrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.Price
}

// LineItem is one product variant selection with its quantity.
type LineItem struct {
	ID       string          `json:"id,omitempty" bson:"line_id,omitempty"`
	Product  ProductSnapshot `json:"product" bson:"product"`
	Quantity int             `json:"quantity" bson:"quantity" validate:"gt=0"`
	Size     string          `json:"size" bson:"size" validate:"required"`
	Color    string          `json:"color" bson:"color" validate:"required"`
}

// Totals is the priced view of a cart.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shippingFee"`
	Total       float64 `json:"total"`
	ItemCount   int     `json:"itemCount"`
}

// CartSession is a server-held cart keyed by the X-Cart-Session header.
type CartSession struct {
	SessionID string     `json:"sessionId"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartView is returned by the cart endpoints.
type CartView struct {
	SessionID string     `json:"sessionId"`
	Items     []LineItem `json:"items"`
	Totals    Totals     `json:"totals"`
}

// AddCartItemRequest is the body of POST /api/cart/items.
type AddCartItemRequest struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	Size     string          `json:"size" validate:"required"`
	Color    string          `json:"color" validate:"required"`
}

// UpdateCartItemRequest is the body of PATCH /api/cart/items/:itemId.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
