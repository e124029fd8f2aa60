package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/paymentmethod"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/providers"
	"go.uber.org/zap"
)

// StripeConfirmer confirms payment intents with a publishable key, the way a
// browser client does: the card becomes a payment method, then the intent is
// confirmed with its client secret.
type StripeConfirmer struct {
	intents      paymentintent.Client
	methods      paymentmethod.Client
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewStripeConfirmer builds a confirmer. apiURL is empty outside tests.
func NewStripeConfirmer(publishableKey, apiURL string, logger *zap.Logger) *StripeConfirmer {
	backend := providers.NewStripeBackend(apiURL, logger)
	return &StripeConfirmer{
		intents:      paymentintent.Client{B: backend, Key: publishableKey},
		methods:      paymentmethod.Client{B: backend, Key: publishableKey},
		pollInterval: time.Second,
		logger:       logger,
	}
}

// intentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
func intentIDFromSecret(clientSecret string) (string, bool) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	return id, ok && id != ""
}

func (s *StripeConfirmer) Confirm(ctx context.Context, clientSecret string, card Card, billing models.ShippingInfo) (*Confirmation, error) {
	intentID, ok := intentIDFromSecret(clientSecret)
	if !ok {
		return nil, errors.New("malformed client secret")
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.Int64(int64(card.ExpMonth)),
			ExpYear:  stripe.Int64(int64(card.ExpYear)),
			CVC:      stripe.String(card.CVC),
		},
		BillingDetails: billingDetails(billing),
	}
	pmParams.Context = ctx
	pm, err := s.methods.New(pmParams)
	if err != nil {
		return nil, confirmError(ctx, err)
	}

	params := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String(pm.ID)}
	params.AddExtra("client_secret", clientSecret)
	params.Context = ctx
	pi, err := s.intents.Confirm(intentID, params)
	if err != nil {
		return nil, confirmError(ctx, err)
	}

	// processing is not terminal; poll until the gateway settles or ctx ends
	for pi.Status == stripe.PaymentIntentStatusProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
		get := &stripe.PaymentIntentParams{}
		get.AddExtra("client_secret", clientSecret)
		get.Context = ctx
		if pi, err = s.intents.Get(intentID, get); err != nil {
			return nil, confirmError(ctx, err)
		}
	}

	result := &Confirmation{
		PaymentIntentID: pi.ID,
		Status:          models.PaymentIntentStatus(pi.Status),
	}
	if pi.LastPaymentError != nil {
		result.Message = pi.LastPaymentError.Msg
	}
	s.logger.Debug("Payment confirmation finished",
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", string(pi.Status)),
	)
	return result, nil
}

func billingDetails(info models.ShippingInfo) *stripe.PaymentMethodBillingDetailsParams {
	bd := &stripe.PaymentMethodBillingDetailsParams{
		Name:  stripe.String(info.FullName),
		Email: stripe.String(info.Email),
		Phone: stripe.String(info.Phone),
		Address: &stripe.AddressParams{
			Line1: stripe.String(info.Address),
			City:  stripe.String(info.City),
		},
	}
	// Stripe expects ISO country codes; free-text country names are left out
	if len(info.Country) == 2 {
		bd.Address.Country = stripe.String(strings.ToUpper(info.Country))
	}
	if info.PostalCode != "" {
		bd.Address.PostalCode = stripe.String(info.PostalCode)
	}
	return bd
}

// confirmError turns card errors into a ConfirmationError carrying the
// gateway's human readable message.
func confirmError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var se *stripe.Error
	if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
		return &ConfirmationError{Status: models.PaymentIntentRequiresPaymentMethod, Message: se.Msg}
	}
	return err
}
