package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yashrajoria/storefront/models"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
	"go.uber.org/zap"
)

// Reconciler replays order commits that failed to persist after payment was
// verified. Its Handle method is an aws_pkg.MessageHandler.
type Reconciler struct {
	orders  OrderService
	metrics MetricsRecorder
	logger  *zap.Logger
}

func NewReconciler(orders OrderService, metrics MetricsRecorder, logger *zap.Logger) *Reconciler {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Reconciler{orders: orders, metrics: metrics, logger: logger}
}

// Handle returns nil when the message should be deleted: the order now exists
// or the request can never succeed. Transient failures return an error so
// the message becomes visible again.
func (r *Reconciler) Handle(ctx context.Context, body string) error {
	var msg models.ReconcileMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		r.logger.Error("Dropping malformed reconcile message", zap.Error(err))
		return nil
	}

	log := r.logger.With(
		zap.String("payment_intent_id", msg.Request.PaymentIntentID),
		zap.Int("attempt", msg.Attempt),
		zap.String("request_id", msg.RequestID),
	)

	order, created, svcErr := r.orders.CommitOrder(ctx, &msg.Request, CommitOptions{
		RequestID: msg.RequestID,
		Replay:    true,
		Attempt:   msg.Attempt,
	})
	if svcErr != nil {
		if svcErr.StatusCode >= 500 || svcErr.Kind == KindDuplicateOrder {
			return fmt.Errorf("replay failed: %s", svcErr.Message)
		}
		log.Error("Dropping reconcile message after permanent failure",
			zap.String("kind", string(svcErr.Kind)),
			zap.String("error", svcErr.Message),
			zap.Strings("details", svcErr.Details),
		)
		return nil
	}

	log.Info("Order reconciled", zap.String("order_id", order.ID.Hex()), zap.Bool("created", created))
	if created {
		_ = r.metrics.RecordCount(ctx, aws_pkg.MetricReconciliationsApplied, nil)
	}
	return nil
}
