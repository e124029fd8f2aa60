// Package checkout drives a purchase from the client side: reserve the cart
// total with the gateway, confirm the card, then commit the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yashrajoria/storefront/cart"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
	"go.uber.org/zap"
)

var (
	ErrCheckoutInProgress  = errors.New("checkout already in progress")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrConfirmationTimeout = errors.New("payment confirmation timed out, please try again")
)

// Card is raw card input. It is handed to the gateway and never sent to the
// storefront API.
type Card struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// Confirmation is the gateway's final word on a payment intent.
type Confirmation struct {
	PaymentIntentID string
	Status          models.PaymentIntentStatus
	Message         string
}

// CardConfirmer confirms a payment intent with the gateway's client API.
type CardConfirmer interface {
	Confirm(ctx context.Context, clientSecret string, card Card, billing models.ShippingInfo) (*Confirmation, error)
}

// API is the subset of the storefront REST API the flow needs.
type API interface {
	StripeKey(ctx context.Context) (string, error)
	CreatePaymentIntent(ctx context.Context, amountMinor int64) (string, error)
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
}

// ConfirmationError is a payment the gateway did not accept. No order is
// committed.
type ConfirmationError struct {
	Status  models.PaymentIntentStatus
	Message string
}

func (e *ConfirmationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment not completed (status %s)", e.Status)
	}
	return e.Message
}

// ValidationError lists the problems found in the order before any payment
// was attempted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid order: " + strings.Join(e.Problems, "; ")
}

// CommitError means the payment succeeded but the order was not stored. The
// request can be resubmitted with CommitAgain; the server deduplicates by
// payment intent.
type CommitError struct {
	Request *models.CreateOrderRequest
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("payment %s succeeded but the order was not saved: %v", e.Request.PaymentIntentID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// IsRetryable reports whether Submit (or CommitAgain for a CommitError) may
// succeed if tried again.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrConfirmationTimeout) || errors.Is(err, ErrCheckoutInProgress) {
		return true
	}
	var commitErr *CommitError
	if errors.As(err, &commitErr) {
		var apiErr *APIError
		if errors.As(commitErr.Err, &apiErr) {
			return apiErr.Retryable()
		}
		return true
	}
	return false
}

type Flow struct {
	api            API
	newConfirmer   func(publishableKey string) CardConfirmer
	pricing        cart.PricingPolicy
	confirmTimeout time.Duration
	logger         *zap.Logger

	inFlight atomic.Bool
}

// NewFlow builds a Flow. newConfirmer is called with the store's publishable
// key on every Submit.
func NewFlow(api API, newConfirmer func(publishableKey string) CardConfirmer, pricing cart.PricingPolicy, confirmTimeout time.Duration, logger *zap.Logger) *Flow {
	if confirmTimeout <= 0 {
		confirmTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		api:            api,
		newConfirmer:   newConfirmer,
		pricing:        pricing,
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// InProgress reports whether a Submit is outstanding.
func (f *Flow) InProgress() bool { return f.inFlight.Load() }

// Submit pays for the cart and commits the order. Only one Submit runs at a
// time; the cart is cleared only after the order is stored.
func (f *Flow) Submit(ctx context.Context, c *cart.Cart, shipping models.ShippingInfo, card Card) (*models.Order, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer f.inFlight.Store(false)

	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	shipping.Normalize()
	totals := c.ComputeTotals(f.pricing)
	req := &models.CreateOrderRequest{
		Items:        c.Items(),
		Total:        totals.Total,
		ShippingInfo: shipping,
		// placeholder until the intent exists
		PaymentIntentID: "pending",
	}
	if problems := services.ValidateOrderRequest(req); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	amount, ok := cart.AmountMinorUnits(totals.Total)
	if !ok {
		return nil, &ValidationError{Problems: []string{"Order total is too large to charge"}}
	}

	publishableKey, err := f.api.StripeKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment configuration: %w", err)
	}

	clientSecret, err := f.api.CreatePaymentIntent(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to start payment: %w", err)
	}

	confirmation, err := f.confirm(ctx, f.newConfirmer(publishableKey), clientSecret, card, shipping)
	if err != nil {
		return nil, err
	}

	log := f.logger.With(zap.String("payment_intent_id", confirmation.PaymentIntentID))
	log.Info("Payment confirmed, committing order")

	req.PaymentIntentID = confirmation.PaymentIntentID
	order, err := f.api.CreateOrder(ctx, req)
	if err != nil {
		log.Error("Order commit failed after successful payment", zap.Error(err))
		return nil, &CommitError{Request: req, Err: err}
	}

	c.Clear()
	return order, nil
}

func (f *Flow) confirm(ctx context.Context, confirmer CardConfirmer, clientSecret string, card Card, billing models.ShippingInfo) (*Confirmation, error) {
	confirmCtx, cancel := context.WithTimeout(ctx, f.confirmTimeout)
	defer cancel()

	confirmation, err := confirmer.Confirm(confirmCtx, clientSecret, card, billing)
	if err != nil {
		// the caller's own cancellation is not a gateway timeout
		if ctx.Err() == nil && errors.Is(confirmCtx.Err(), context.DeadlineExceeded) {
			f.logger.Warn("Payment confirmation timed out", zap.Duration("timeout", f.confirmTimeout))
			return nil, ErrConfirmationTimeout
		}
		return nil, err
	}
	if confirmation.Status != models.PaymentIntentSucceeded {
		return nil, &ConfirmationError{Status: confirmation.Status, Message: confirmation.Message}
	}
	return confirmation, nil
}

// CommitAgain resubmits the order of a CommitError. Safe to repeat: an order
// that already exists for the payment intent is returned as is.
func (f *Flow) CommitAgain(ctx context.Context, commitErr *CommitError, c *cart.Cart) (*models.Order, error) {
	order, err := f.api.CreateOrder(ctx, commitErr.Request)
	if err != nil {
		return nil, &CommitError{Request: commitErr.Request, Err: err}
	}
	if c != nil {
		c.Clear()
	}
	return order, nil
}
