package controllers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

// --- Mock Services ---

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CommitOrder(ctx context.Context, req *models.CreateOrderRequest, opts services.CommitOptions) (*models.Order, bool, *services.ServiceError) {
	args := m.Called(ctx, req, opts)
	order, _ := args.Get(0).(*models.Order)
	svcErr, _ := args.Get(2).(*services.ServiceError)
	return order, args.Bool(1), svcErr
}

func (m *MockOrderService) ListOrders(ctx context.Context) ([]models.Order, *services.ServiceError) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]models.Order)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return orders, svcErr
}

func (m *MockOrderService) GetOrder(ctx context.Context, id string) (*models.Order, *services.ServiceError) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return order, svcErr
}

func (m *MockOrderService) SetStatus(ctx context.Context, id string, status string) (*models.Order, *services.ServiceError) {
	args := m.Called(ctx, id, status)
	order, _ := args.Get(0).(*models.Order)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return order, svcErr
}

func (m *MockOrderService) Wait(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) PublishableKey() string {
	return m.Called().String(0)
}

func (m *MockPaymentService) CreatePaymentIntent(ctx context.Context, req *models.CreatePaymentIntentRequest) (*models.CreatePaymentIntentResponse, *services.ServiceError) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.CreatePaymentIntentResponse)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return resp, svcErr
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, sessionID string) (*models.CartView, *services.ServiceError) {
	args := m.Called(ctx, sessionID)
	view, _ := args.Get(0).(*models.CartView)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return view, svcErr
}

func (m *MockCartService) AddItem(ctx context.Context, sessionID string, req *models.AddCartItemRequest) (*models.CartView, *services.ServiceError) {
	args := m.Called(ctx, sessionID, req)
	view, _ := args.Get(0).(*models.CartView)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return view, svcErr
}

func (m *MockCartService) UpdateItem(ctx context.Context, sessionID, itemID string, quantity int) (*models.CartView, *services.ServiceError) {
	args := m.Called(ctx, sessionID, itemID, quantity)
	view, _ := args.Get(0).(*models.CartView)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return view, svcErr
}

func (m *MockCartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*models.CartView, *services.ServiceError) {
	args := m.Called(ctx, sessionID, itemID)
	view, _ := args.Get(0).(*models.CartView)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return view, svcErr
}

func (m *MockCartService) ClearCart(ctx context.Context, sessionID string) *services.ServiceError {
	svcErr, _ := m.Called(ctx, sessionID).Get(0).(*services.ServiceError)
	return svcErr
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, *services.ServiceError) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.LoginResponse)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return resp, svcErr
}

func (m *MockAuthService) ParseToken(token string) (*services.AdminClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*services.AdminClaims)
	return claims, args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleStripeEvent(ctx context.Context, payload []byte, signature string) *services.ServiceError {
	svcErr, _ := m.Called(ctx, payload, signature).Get(0).(*services.ServiceError)
	return svcErr
}
