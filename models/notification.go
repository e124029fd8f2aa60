package models

import "time"

const (
	ChannelEmail = "email"

	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationLog records the outcome of one order notification.
type NotificationLog struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   string    `json:"order_id" gorm:"index;not null"`
	Recipient string    `json:"recipient"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
