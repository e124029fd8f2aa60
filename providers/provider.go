package providers

import (
	"context"
	"fmt"

	"github.com/yashrajoria/storefront/models"
)

// PaymentProvider is the payment gateway as seen by the order and payment services.
type PaymentProvider interface {
	// CreatePaymentIntent registers an intent for amountMinor units of currency.
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string) (*models.PaymentIntent, error)

	// RetrievePaymentIntent fetches the authoritative state of an intent.
	RetrievePaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
}

// WebhookVerifier authenticates and decodes gateway webhook deliveries.
type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is a verified webhook delivery. PaymentIntent is set for
// payment_intent.* events.
type WebhookEvent struct {
	ID            string
	Type          string
	PaymentIntent *models.PaymentIntent
	FailureReason string
}

// GatewayError describes a failed gateway call.
type GatewayError struct {
	Op          string
	StatusCode  int
	Code        string
	DeclineCode string
	Message     string
	Timeout     bool
	Err         error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("gateway %s timed out", e.Op)
	case e.Code != "":
		return fmt.Sprintf("gateway %s failed (%s): %s", e.Op, e.Code, e.Message)
	default:
		return fmt.Sprintf("gateway %s failed: %s", e.Op, e.Message)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable reports whether the same call may succeed if repeated.
func (e *GatewayError) Retryable() bool {
	return e.Timeout || e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
