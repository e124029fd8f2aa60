package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/yashrajoria/storefront/logger"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/providers"
	"github.com/yashrajoria/storefront/repository"
	"go.uber.org/zap"
)

// WebhookService observes gateway payment events. It never creates orders;
// only the commit pipeline does.
type WebhookService interface {
	HandleStripeEvent(ctx context.Context, payload []byte, signature string) *ServiceError
}

type webhookService struct {
	verifier providers.WebhookVerifier
	orders   repository.OrderRepository
	metrics  MetricsRecorder
	logger   *zap.Logger
}

func NewWebhookService(verifier providers.WebhookVerifier, orders repository.OrderRepository, metrics MetricsRecorder, logger *zap.Logger) WebhookService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &webhookService{verifier: verifier, orders: orders, metrics: metrics, logger: logger}
}

func (s *webhookService) HandleStripeEvent(ctx context.Context, payload []byte, signature string) *ServiceError {
	log := logger.For(ctx, s.logger)

	event, err := s.verifier.ParseWebhook(payload, signature)
	if err != nil {
		log.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "invalid webhook", Kind: KindValidation}
	}

	log = log.With(zap.String("event_type", event.Type), zap.String("event_id", event.ID))
	log.Info("Processing Stripe webhook")

	switch event.Type {
	case providers.EventPaymentIntentSucceeded:
		if event.PaymentIntent == nil {
			return nil
		}
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricPaymentSucceeded, nil)
		_, err := s.orders.FindByPaymentIntentID(ctx, event.PaymentIntent.ID)
		switch {
		case err == nil:
			log.Info("Payment succeeded for committed order", zap.String("payment_intent_id", event.PaymentIntent.ID))
		case errors.Is(err, repository.ErrOrderNotFound):
			// the client may still be committing; a lasting gap needs the reconcile queue
			log.Warn("Payment succeeded without an order yet",
				zap.String("payment_intent_id", event.PaymentIntent.ID),
				zap.Int64("amount", event.PaymentIntent.Amount),
			)
		default:
			log.Error("Failed to look up order for payment", zap.Error(err))
		}
	case providers.EventPaymentIntentFailed:
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricPaymentFailed, nil)
		fields := []zap.Field{zap.String("reason", event.FailureReason)}
		if event.PaymentIntent != nil {
			fields = append(fields, zap.String("payment_intent_id", event.PaymentIntent.ID))
		}
		log.Info("Payment failed", fields...)
	default:
		log.Info("Unhandled webhook event type")
	}
	return nil
}
