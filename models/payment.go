package models

// PaymentIntentStatus mirrors the gateway's payment intent status values.
type PaymentIntentStatus string

const (
	PaymentIntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	PaymentIntentRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentProcessing            PaymentIntentStatus = "processing"
	PaymentIntentRequiresCapture       PaymentIntentStatus = "requires_capture"
	PaymentIntentCanceled              PaymentIntentStatus = "canceled"
	PaymentIntentSucceeded             PaymentIntentStatus = "succeeded"
)

// PaymentIntent is the part of a gateway payment intent this service relies on.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       PaymentIntentStatus
}

// CreatePaymentIntentRequest is the body of POST /api/create-payment-intent.
// Amount is a pointer so a missing field is distinguishable from zero.
type CreatePaymentIntentRequest struct {
	Amount *float64 `json:"amount"`
}

type CreatePaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type StripeKeyResponse struct {
	PublishableKey string `json:"publishableKey"`
}
