package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/providers"
	"github.com/yashrajoria/storefront/repository"
	"github.com/yashrajoria/storefront/sender"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ---- order repository ----

type mockOrderRepo struct {
	mu        sync.Mutex
	orders    []*models.Order
	createErr error
	findErr   error
	creates   int
}

func (m *mockOrderRepo) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	for _, o := range m.orders {
		if o.PaymentIntentID == order.PaymentIntentID {
			return repository.ErrDuplicatePaymentIntent
		}
	}
	order.ID = primitive.NewObjectID()
	cp := *order
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, o := range m.orders {
		if o.ID.Hex() == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) FindByPaymentIntentID(_ context.Context, pi string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentIntentID == pi {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) FindAll(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make([]models.Order, 0, len(m.orders))
	for i := len(m.orders) - 1; i >= 0; i-- {
		out = append(out, *m.orders[i])
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID.Hex() == id {
			o.Status = status
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) EnsureIndexes(context.Context) error { return nil }

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// ---- payment provider ----

type mockProvider struct {
	mu          sync.Mutex
	intent      *models.PaymentIntent
	createErr   error
	retrieveErr error
	created     []int64
	retrieved   []string
}

func (m *mockProvider) CreatePaymentIntent(_ context.Context, amount int64, currency string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, amount)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.PaymentIntent{
		ID:           "pi_new",
		ClientSecret: "pi_new_secret_xyz",
		Amount:       amount,
		Currency:     currency,
		Status:       models.PaymentIntentRequiresPaymentMethod,
	}, nil
}

func (m *mockProvider) RetrievePaymentIntent(_ context.Context, id string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieved = append(m.retrieved, id)
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	cp := *m.intent
	cp.ID = id
	return &cp, nil
}

func succeededIntent(amount int64) *mockProvider {
	return &mockProvider{intent: &models.PaymentIntent{Amount: amount, Currency: "egp", Status: models.PaymentIntentSucceeded}}
}

// ---- commit locker ----

type mockLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released int
}

func (m *mockLocker) Acquire(_ context.Context, pi string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[pi] {
		return nil, repository.ErrLockHeld
	}
	m.held[pi] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, pi)
		m.released++
	}, nil
}

// ---- cart repository ----

type mockCartRepo struct {
	mu      sync.Mutex
	carts   map[string]*models.CartSession
	getErr  error
	saveErr error
	deleted []string
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: map[string]*models.CartSession{}}
}

func (m *mockCartRepo) GetCart(_ context.Context, sessionID string) (*models.CartSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]models.LineItem(nil), c.Items...)
	return &cp, nil
}

func (m *mockCartRepo) SaveCart(_ context.Context, c *models.CartSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *c
	m.carts[c.SessionID] = &cp
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	m.deleted = append(m.deleted, sessionID)
	return nil
}

func (m *mockCartRepo) UpdateCart(_ context.Context, sessionID string, fn func(*models.CartSession) error) (*models.CartSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c := &models.CartSession{SessionID: sessionID}
	if stored, ok := m.carts[sessionID]; ok {
		c.Items = append([]models.LineItem(nil), stored.Items...)
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.carts[sessionID] = c
	return c, nil
}

// ---- notifier, events, queue, metrics ----

type mockNotifier struct {
	mu       sync.Mutex
	notified []string
	err      error
}

func (m *mockNotifier) NotifyOrderCreated(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, order.ID.Hex())
	return m.err
}

type mockEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
	err    error
}

func (m *mockEvents) PublishOrderEvent(_ context.Context, evt models.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.err
}

func (m *mockEvents) all() []models.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderEvent(nil), m.events...)
}

type mockQueue struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (m *mockQueue) SendMessage(_ context.Context, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bodies = append(m.bodies, body)
	return nil
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: map[string]int{}}
}

func (m *recordingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	return nil
}

func (m *recordingMetrics) RecordValue(context.Context, string, float64, map[string]string) error {
	return nil
}

func (m *recordingMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func (m *recordingMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// ---- email sender and notification log ----

type mockEmailSender struct {
	mu       sync.Mutex
	failures int
	calls    int
	subjects []string
	bodies   []string
}

func (m *mockEmailSender) SendEmail(_ context.Context, _, subject, body string) (sender.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return sender.SendResult{}, errors.New("smtp: 421 service not available")
	}
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return sender.SendResult{MessageID: "msg-1", SentAt: time.Now()}, nil
}

type mockNotificationRepo struct {
	mu   sync.Mutex
	logs []models.NotificationLog
}

func (m *mockNotificationRepo) SaveLog(_ context.Context, log *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockNotificationRepo) ListByOrder(context.Context, string) ([]models.NotificationLog, error) {
	return nil, nil
}

// ---- webhook verifier ----

type mockVerifier struct {
	event *providers.WebhookEvent
	err   error
}

func (m *mockVerifier) ParseWebhook([]byte, string) (*providers.WebhookEvent, error) {
	return m.event, m.err
}

// ---- fixtures ----

func validShipping() models.ShippingInfo {
	return models.ShippingInfo{
		FullName: "Mona Adel",
		Email:    "mona@example.com",
		Phone:    "010 1234 5678",
		Address:  "12 Tahrir Square",
		City:     "Cairo",
		Country:  "Egypt",
	}
}

func lineItem(productID string, price float64, qty int) models.LineItem {
	return models.LineItem{
		Product:  models.ProductSnapshot{ID: productID, Name: "Tee " + productID, Price: price},
		Quantity: qty,
		Size:     "M",
		Color:    "Black",
	}
}

// validOrderRequest is one item at 150 x 2: subtotal 300, shipping 50, total 350.
func validOrderRequest(pi string) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		Items:           []models.LineItem{lineItem("p1", 150, 2)},
		Total:           350,
		ShippingInfo:    validShipping(),
		PaymentIntentID: pi,
	}
}
