package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront/cart"
	"github.com/yashrajoria/storefront/logger"
	"github.com/yashrajoria/storefront/models"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/providers"
	"github.com/yashrajoria/storefront/repository"
	"go.uber.org/zap"
)

// ReconcileQueue is satisfied by aws_pkg.SQSQueue.
type ReconcileQueue interface {
	SendMessage(ctx context.Context, body string) error
}

// CommitOptions carries request context that is not part of the order body.
type CommitOptions struct {
	// CartSessionID names a server cart to clear once the order is stored.
	CartSessionID string
	RequestID     string
	// Replay marks a commit re-run from the reconciliation queue; a failed
	// replay is not queued again.
	Replay  bool
	Attempt int
}

type OrderService interface {
	// CommitOrder verifies payment and stores the order. created is false when an
	// order for the same payment intent already existed and was returned instead.
	CommitOrder(ctx context.Context, req *models.CreateOrderRequest, opts CommitOptions) (order *models.Order, created bool, svcErr *ServiceError)
	ListOrders(ctx context.Context) ([]models.Order, *ServiceError)
	GetOrder(ctx context.Context, id string) (*models.Order, *ServiceError)
	SetStatus(ctx context.Context, id string, status string) (*models.Order, *ServiceError)
	// Wait blocks until detached notification work finishes or ctx expires.
	Wait(ctx context.Context) error
}

// OrderServiceDeps wires OrderService. Carts, Locker, Reconcile, Events,
// Notifier and Metrics are optional.
type OrderServiceDeps struct {
	Orders    repository.OrderRepository
	Payments  providers.PaymentProvider
	Locker    repository.CommitLocker
	Carts     repository.CartRepository
	Notifier  NotificationService
	Events    EventPublisher
	Reconcile ReconcileQueue
	Metrics   MetricsRecorder
	Logger    *zap.Logger

	Pricing      cart.PricingPolicy
	StrictTotals bool
	Currency     string
	// MaxAmount caps an order total in minor units, the same ceiling the
	// payment intent endpoint enforces. Zero means no cap.
	MaxAmount     int64
	NotifyTimeout time.Duration
}

type orderService struct {
	OrderServiceDeps
	wg sync.WaitGroup
}

func NewOrderService(deps OrderServiceDeps) OrderService {
	if deps.Locker == nil {
		deps.Locker = repository.NoopLocker{}
	}
	if deps.Events == nil {
		deps.Events = NopEventPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.NotifyTimeout <= 0 {
		deps.NotifyTimeout = 30 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &orderService{OrderServiceDeps: deps}
}

func (s *orderService) CommitOrder(ctx context.Context, req *models.CreateOrderRequest, opts CommitOptions) (*models.Order, bool, *ServiceError) {
	if opts.RequestID == "" {
		opts.RequestID = logger.RequestID(ctx)
	}
	log := s.Logger.With(
		zap.String("payment_intent_id", req.PaymentIntentID),
		zap.String("request_id", opts.RequestID),
	)

	// 1. validate before any external call
	req.ShippingInfo.Normalize()
	if msgs := ValidateOrderRequest(req); len(msgs) > 0 {
		return nil, false, validationError(msgs...)
	}
	for i := range req.Items {
		if req.Items[i].ID == "" {
			req.Items[i].ID = uuid.NewString()
		}
	}

	totals := s.Pricing.Price(req.Items)
	if !s.withinLimit(req.Total) || !s.withinLimit(totals.Total) {
		log.Warn("Order total out of range",
			zap.Float64("client_total", req.Total),
			zap.Float64("computed_total", totals.Total),
		)
		return nil, false, validationError(msgOrderTooLarge)
	}
	if !cart.SameAmount(totals.Total, req.Total) {
		if s.StrictTotals {
			return nil, false, validationError(fmt.Sprintf("Order total does not match items (expected %.2f)", totals.Total))
		}
		log.Warn("Client total differs from computed total",
			zap.Float64("client_total", req.Total),
			zap.Float64("computed_total", totals.Total),
		)
	}

	// 2. re-verify the payment with the gateway
	if svcErr := s.verifyPayment(ctx, log, req); svcErr != nil {
		_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricPaymentNotConfirmed, nil)
		return nil, false, svcErr
	}

	// 3. one commit per payment intent
	release, err := s.Locker.Acquire(ctx, req.PaymentIntentID)
	switch {
	case errors.Is(err, repository.ErrLockHeld):
		_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricDuplicateCommits, nil)
		return nil, false, &ServiceError{
			StatusCode: http.StatusConflict,
			Message:    "Order for this payment is already being processed",
			Kind:       KindDuplicateOrder,
		}
	case err != nil:
		log.Warn("Commit lock unavailable, relying on unique index", zap.Error(err))
	default:
		defer release()
	}

	existing, err := s.Orders.FindByPaymentIntentID(ctx, req.PaymentIntentID)
	if err == nil {
		log.Info("Order already exists for payment intent", zap.String("order_id", existing.ID.Hex()))
		_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricDuplicateCommits, nil)
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		log.Warn("Failed to check for existing order", zap.Error(err))
	}

	// 4. snapshot and persist
	order := &models.Order{
		Items:           req.Items,
		Total:           req.Total,
		Status:          models.StatusProcessing,
		ShippingInfo:    req.ShippingInfo,
		PaymentIntentID: req.PaymentIntentID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicatePaymentIntent) {
			if existing, findErr := s.Orders.FindByPaymentIntentID(ctx, req.PaymentIntentID); findErr == nil {
				return existing, false, nil
			}
		}
		log.Error("Failed to persist order", zap.Error(err))
		_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricOrdersFailed, nil)
		if !opts.Replay {
			s.enqueueReconcile(ctx, log, req, opts, err)
		}
		return nil, false, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to save order",
			Kind:       KindOrderPersistenceFailed,
		}
	}

	log.Info("Order created", zap.String("order_id", order.ID.Hex()), zap.Float64("total", order.Total))
	_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricOrdersCreated, nil)
	_ = s.Metrics.RecordValue(ctx, aws_pkg.MetricOrderValue, order.Total, nil)

	// 5. notify without holding up the response
	snapshot := *order
	s.detach(opts.RequestID, func(ctx context.Context) {
		if s.Notifier != nil {
			if err := s.Notifier.NotifyOrderCreated(ctx, &snapshot); err != nil {
				log.Warn("Order notification failed", zap.String("order_id", snapshot.ID.Hex()), zap.Error(err))
			}
		}
		s.publishEvent(ctx, log, models.OrderEvent{
			EventType:       models.EventOrderCreated,
			OrderID:         snapshot.ID.Hex(),
			PaymentIntentID: snapshot.PaymentIntentID,
			Total:           snapshot.Total,
			Status:          snapshot.Status,
			CustomerEmail:   snapshot.ShippingInfo.Email,
			Timestamp:       time.Now().UTC(),
		})
	})

	// 6. the paid cart is gone
	if opts.CartSessionID != "" && s.Carts != nil {
		if err := s.Carts.DeleteCart(ctx, opts.CartSessionID); err != nil {
			log.Warn("Failed to clear cart session", zap.String("session_id", opts.CartSessionID), zap.Error(err))
		}
	}

	return order, true, nil
}

func (s *orderService) verifyPayment(ctx context.Context, log *zap.Logger, req *models.CreateOrderRequest) *ServiceError {
	notConfirmed := func(status int, msg string) *ServiceError {
		return &ServiceError{StatusCode: status, Message: msg, Kind: KindPaymentNotConfirmed}
	}

	start := time.Now()
	pi, err := s.Payments.RetrievePaymentIntent(ctx, req.PaymentIntentID)
	_ = s.Metrics.RecordLatency(ctx, aws_pkg.MetricGatewayLatency, time.Since(start), map[string]string{"Operation": "retrieve_payment_intent"})
	if err != nil {
		log.Warn("Payment verification failed", zap.Error(err))
		var ge *providers.GatewayError
		if errors.As(err, &ge) {
			switch {
			case ge.Timeout:
				return notConfirmed(http.StatusGatewayTimeout, "Payment verification timed out, please retry")
			case ge.StatusCode == http.StatusNotFound || ge.StatusCode == http.StatusBadRequest:
				return notConfirmed(http.StatusBadRequest, "Payment not successful")
			}
		}
		return notConfirmed(http.StatusBadGateway, "Unable to verify payment, please retry")
	}

	if pi.Status != models.PaymentIntentSucceeded {
		log.Info("Payment not succeeded", zap.String("status", string(pi.Status)))
		return notConfirmed(http.StatusBadRequest, "Payment not successful")
	}
	orderMinor, ok := cart.AmountMinorUnits(req.Total)
	if !ok || pi.Amount != orderMinor {
		log.Warn("Payment amount mismatch",
			zap.Int64("paid_minor_units", pi.Amount),
			zap.Float64("order_total", req.Total),
		)
		return notConfirmed(http.StatusBadRequest, "Payment amount does not match order total")
	}
	if s.Currency != "" && !strings.EqualFold(pi.Currency, s.Currency) {
		log.Warn("Payment currency mismatch", zap.String("currency", pi.Currency))
		return notConfirmed(http.StatusBadRequest, "Payment currency does not match")
	}
	return nil
}

// withinLimit reports whether total converts to minor units and respects
// MaxAmount.
func (s *orderService) withinLimit(total float64) bool {
	minor, ok := cart.AmountMinorUnits(total)
	if !ok {
		return false
	}
	return s.MaxAmount <= 0 || minor <= s.MaxAmount
}

func (s *orderService) enqueueReconcile(ctx context.Context, log *zap.Logger, req *models.CreateOrderRequest, opts CommitOptions, cause error) {
	if s.Reconcile == nil {
		return
	}
	msg := models.ReconcileMessage{
		Request:   *req,
		Reason:    cause.Error(),
		Attempt:   opts.Attempt + 1,
		QueuedAt:  time.Now().UTC(),
		RequestID: opts.RequestID,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		log.Error("Failed to marshal reconcile message", zap.Error(err))
		return
	}
	// the request context may already be near its deadline
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Reconcile.SendMessage(sendCtx, string(body)); err != nil {
		log.Error("Failed to enqueue order for reconciliation", zap.Error(err))
		return
	}
	log.Info("Order queued for reconciliation")
	_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricReconciliationsQueued, nil)
}

func (s *orderService) ListOrders(ctx context.Context) ([]models.Order, *ServiceError) {
	orders, err := s.Orders.FindAll(ctx)
	if err != nil {
		logger.For(ctx, s.Logger).Error("Failed to fetch orders", zap.Error(err))
		return nil, internalError("Failed to fetch orders")
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*models.Order, *ServiceError) {
	order, err := s.Orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, orderNotFound()
		}
		logger.For(ctx, s.Logger).Error("Failed to fetch order", zap.String("order_id", id), zap.Error(err))
		return nil, internalError("Failed to fetch order")
	}
	return order, nil
}

// SetStatus overwrites the status unconditionally; any status may follow any other.
func (s *orderService) SetStatus(ctx context.Context, id string, status string) (*models.Order, *ServiceError) {
	log := logger.For(ctx, s.Logger).With(zap.String("order_id", id))

	newStatus, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, validationError("Invalid order status")
	}

	previous, err := s.Orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, orderNotFound()
		}
		log.Error("Failed to fetch order", zap.Error(err))
		return nil, internalError("Failed to update order status")
	}

	order, err := s.Orders.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, orderNotFound()
		}
		log.Error("Failed to update order status", zap.Error(err))
		return nil, internalError("Failed to update order status")
	}

	log.Info("Order status updated",
		zap.String("from", string(previous.Status)),
		zap.String("to", string(order.Status)),
	)
	_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricOrderStatusChanged, nil)

	evt := models.OrderEvent{
		EventType:       models.EventOrderStatusChanged,
		OrderID:         order.ID.Hex(),
		PaymentIntentID: order.PaymentIntentID,
		Total:           order.Total,
		Status:          order.Status,
		PreviousStatus:  previous.Status,
		Timestamp:       time.Now().UTC(),
	}
	s.detach(logger.RequestID(ctx), func(ctx context.Context) {
		s.publishEvent(ctx, log, evt)
	})

	return order, nil
}

func orderNotFound() *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found", Kind: KindOrderNotFound}
}

// detach runs fn on its own goroutine with a fresh deadline, tracked by Wait.
func (s *orderService) detach(requestID string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.Logger.Error("Panic in background order task", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.NotifyTimeout)
		defer cancel()
		fn(logger.WithRequestID(ctx, requestID))
	}()
}

func (s *orderService) publishEvent(ctx context.Context, log *zap.Logger, evt models.OrderEvent) {
	if err := s.Events.PublishOrderEvent(ctx, evt); err != nil {
		log.Warn("Failed to publish order event", zap.String("event_type", evt.EventType), zap.Error(err))
	}
}

func (s *orderService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
