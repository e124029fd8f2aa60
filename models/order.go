package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is stored and rendered as the Arabic label shown in the admin panel.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "جاري التجهيز"
	StatusShipped    OrderStatus = "جاري التوصيل"
	StatusDelivered  OrderStatus = "تم التوصيل"
	StatusCancelled  OrderStatus = "ملغي"
	StatusProblem    OrderStatus = "عطل"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusProblem,
}

var statusAliases = map[string]OrderStatus{
	"processing": StatusProcessing,
	"shipped":    StatusShipped,
	"delivered":  StatusDelivered,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"problem":    StatusProblem,
}

// ParseOrderStatus accepts either the Arabic label or its English name.
func ParseOrderStatus(v string) (OrderStatus, bool) {
	v = strings.TrimSpace(v)
	for _, s := range OrderStatuses {
		if string(s) == v {
			return s, true
		}
	}
	s, ok := statusAliases[strings.ToLower(v)]
	return s, ok
}

// IsValid reports whether s is one of the stored labels.
func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// ShippingInfo is the delivery contact captured at checkout.
type ShippingInfo struct {
	FullName   string `json:"fullName" bson:"full_name" validate:"min=3"`
	Email      string `json:"email" bson:"email" validate:"storefront_email"`
	Phone      string `json:"phone" bson:"phone" validate:"eg_mobile"`
	Address    string `json:"address" bson:"address" validate:"min=5"`
	City       string `json:"city" bson:"city" validate:"min=2"`
	Country    string `json:"country" bson:"country" validate:"min=2"`
	PostalCode string `json:"postalCode,omitempty" bson:"postal_code,omitempty"`
}

// Normalize trims surrounding whitespace and strips all whitespace from the phone.
func (s *ShippingInfo) Normalize() {
	s.FullName = strings.TrimSpace(s.FullName)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.Join(strings.Fields(s.Phone), "")
	s.Address = strings.TrimSpace(s.Address)
	s.City = strings.TrimSpace(s.City)
	s.Country = strings.TrimSpace(s.Country)
	s.PostalCode = strings.TrimSpace(s.PostalCode)
}

// Order is an immutable snapshot of a paid checkout. Only Status changes after creation.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Items           []LineItem         `bson:"items"`
	Total           float64            `bson:"total"`
	Status          OrderStatus        `bson:"status"`
	ShippingInfo    ShippingInfo       `bson:"shipping_info"`
	PaymentIntentID string             `bson:"payment_intent_id"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

// orderJSON is the wire shape the storefront and admin panel consume.
type orderJSON struct {
	ID              string       `json:"id"`
	Items           []LineItem   `json:"items"`
	Total           float64      `json:"total"`
	Status          OrderStatus  `json:"status"`
	Date            string       `json:"date"`
	ShippingInfo    ShippingInfo `json:"shippingInfo"`
	PaymentIntentID string       `json:"paymentIntentId"`
	CreatedAt       time.Time    `json:"createdAt"`
}

const orderDateLayout = "2006-01-02"

func (o Order) MarshalJSON() ([]byte, error) {
	items := o.Items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(orderJSON{
		ID:              o.ID.Hex(),
		Items:           items,
		Total:           o.Total,
		Status:          o.Status,
		Date:            o.CreatedAt.UTC().Format(orderDateLayout),
		ShippingInfo:    o.ShippingInfo,
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt.UTC(),
	})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var raw orderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID != "" {
		id, err := primitive.ObjectIDFromHex(raw.ID)
		if err != nil {
			return err
		}
		o.ID = id
	}
	o.Items = raw.Items
	o.Total = raw.Total
	o.Status = raw.Status
	o.ShippingInfo = raw.ShippingInfo
	o.PaymentIntentID = raw.PaymentIntentID
	o.CreatedAt = raw.CreatedAt
	if o.CreatedAt.IsZero() && raw.Date != "" {
		if d, err := time.Parse(orderDateLayout, raw.Date); err == nil {
			o.CreatedAt = d
		}
	}
	return nil
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	Items           []LineItem   `json:"items" validate:"required,min=1,dive"`
	Total           float64      `json:"total" validate:"gt=0"`
	ShippingInfo    ShippingInfo `json:"shippingInfo"`
	PaymentIntentID string       `json:"paymentIntentId" validate:"required"`
}

// UpdateStatusRequest is the body of PUT /api/orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
