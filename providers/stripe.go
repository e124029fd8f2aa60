package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/storefront/models"
	"go.uber.org/zap"
)

// StripeConfig configures StripeProvider. APIURL overrides the Stripe API base
// URL and is only set in tests or against stripe-mock.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string
	Timeout       time.Duration
}

// StripeProvider implements PaymentProvider and WebhookVerifier on stripe-go.
type StripeProvider struct {
	intents       paymentintent.Client
	webhookSecret string
	timeout       time.Duration
	logger        *zap.Logger
}

func NewStripeProvider(cfg StripeConfig, logger *zap.Logger) *StripeProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &StripeProvider{
		intents: paymentintent.Client{
			B:   NewStripeBackend(cfg.APIURL, logger),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		timeout:       cfg.Timeout,
		logger:        logger,
	}
}

// NewStripeBackend builds an API backend that never retries on its own and
// logs through zap. An empty apiURL keeps the SDK default.
func NewStripeBackend(apiURL string, logger *zap.Logger) stripe.Backend {
	bc := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
		HTTPClient:        &http.Client{Timeout: 80 * time.Second},
	}
	if apiURL != "" {
		bc.URL = stripe.String(apiURL)
	}
	return stripe.GetBackendWithConfig(stripe.APIBackend, bc)
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string) (*models.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := p.intents.New(params)
	if err != nil {
		return nil, toGatewayError(ctx, "create_payment_intent", err)
	}
	return toPaymentIntent(pi), nil
}

func (p *StripeProvider) RetrievePaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.intents.Get(id, params)
	if err != nil {
		return nil, toGatewayError(ctx, "retrieve_payment_intent", err)
	}
	return toPaymentIntent(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// API version mismatches are tolerated since only a few stable fields are read.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid webhook: %w", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	switch out.Type {
	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent: %w", err)
		}
		out.PaymentIntent = toPaymentIntent(&pi)
		if pi.LastPaymentError != nil {
			out.FailureReason = pi.LastPaymentError.Msg
		}
	}
	return out, nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *models.PaymentIntent {
	return &models.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       models.PaymentIntentStatus(pi.Status),
	}
}

func toGatewayError(ctx context.Context, op string, err error) *GatewayError {
	ge := &GatewayError{Op: op, Message: err.Error(), Err: err}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		ge.StatusCode = stripeErr.HTTPStatusCode
		ge.Code = string(stripeErr.Code)
		ge.DeclineCode = string(stripeErr.DeclineCode)
		ge.Message = stripeErr.Msg
		return ge
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		ge.Timeout = true
	}
	return ge
}
