package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yashrajoria/storefront/logger"
	"github.com/yashrajoria/storefront/models"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/providers"
	"go.uber.org/zap"
)

// PaymentService brokers payment intents between the storefront and the gateway.
type PaymentService interface {
	PublishableKey() string
	CreatePaymentIntent(ctx context.Context, req *models.CreatePaymentIntentRequest) (*models.CreatePaymentIntentResponse, *ServiceError)
}

type paymentService struct {
	provider       providers.PaymentProvider
	publishableKey string
	currency       string
	maxAmount      int64
	metrics        MetricsRecorder
	logger         *zap.Logger
}

func NewPaymentService(
	provider providers.PaymentProvider,
	publishableKey, currency string,
	maxAmount int64,
	metrics MetricsRecorder,
	logger *zap.Logger,
) PaymentService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &paymentService{
		provider:       provider,
		publishableKey: publishableKey,
		currency:       currency,
		maxAmount:      maxAmount,
		metrics:        metrics,
		logger:         logger,
	}
}

func (s *paymentService) PublishableKey() string {
	return s.publishableKey
}

// CreatePaymentIntent validates the amount (minor units) and returns only the
// client secret. It never retries; the caller decides whether to try again.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, req *models.CreatePaymentIntentRequest) (*models.CreatePaymentIntentResponse, *ServiceError) {
	if msgs := ValidatePaymentAmount(req.Amount, s.maxAmount); len(msgs) > 0 {
		return nil, validationError(msgs...)
	}
	amount := int64(*req.Amount)
	log := logger.For(ctx, s.logger)

	start := time.Now()
	pi, err := s.provider.CreatePaymentIntent(ctx, amount, s.currency)
	_ = s.metrics.RecordLatency(ctx, aws_pkg.MetricGatewayLatency, time.Since(start), map[string]string{"Operation": "create_payment_intent"})
	if err != nil {
		log.Error("Failed to create payment intent", zap.Int64("amount", amount), zap.Error(err))
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricPaymentSetupFailed, nil)

		svcErr := &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to create payment intent",
			Kind:       KindPaymentSetupFailed,
		}
		var ge *providers.GatewayError
		if errors.As(err, &ge) && ge.Timeout {
			svcErr.Message = "Payment gateway timed out, please try again"
		}
		return nil, svcErr
	}

	log.Info("Payment intent created",
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount", amount),
		zap.String("currency", s.currency),
	)
	_ = s.metrics.RecordCount(ctx, aws_pkg.MetricPaymentIntentsCreated, nil)

	return &models.CreatePaymentIntentResponse{ClientSecret: pi.ClientSecret}, nil
}
