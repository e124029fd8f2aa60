package models

import "time"

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

// OrderEvent is published to the event bus after an order is created or changes status.
type OrderEvent struct {
	EventType       string      `json:"event_type"`
	OrderID         string      `json:"order_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	Total           float64     `json:"total"`
	Status          OrderStatus `json:"status"`
	PreviousStatus  OrderStatus `json:"previous_status,omitempty"`
	CustomerEmail   string      `json:"customer_email,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// ReconcileMessage is queued when an order could not be persisted after its
// payment was verified, so the commit can be replayed.
type ReconcileMessage struct {
	Request   CreateOrderRequest `json:"request"`
	Reason    string             `json:"reason"`
	Attempt   int                `json:"attempt"`
	QueuedAt  time.Time          `json:"queued_at"`
	RequestID string             `json:"request_id,omitempty"`
}
