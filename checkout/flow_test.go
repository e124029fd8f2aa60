package checkout

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront/cart"
	"github.com/yashrajoria/storefront/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAPI struct {
	mu        sync.Mutex
	key       string
	amounts   []int64
	orders    []*models.CreateOrderRequest
	keyErr    error
	intentErr error
	orderErrs []error
}

func (a *fakeAPI) StripeKey(context.Context) (string, error) {
	return a.key, a.keyErr
}

func (a *fakeAPI) CreatePaymentIntent(_ context.Context, amountMinor int64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amounts = append(a.amounts, amountMinor)
	if a.intentErr != nil {
		return "", a.intentErr
	}
	return "pi_1_secret_abc", nil
}

func (a *fakeAPI) CreateOrder(_ context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := *req
	a.orders = append(a.orders, &cp)
	if len(a.orderErrs) > 0 {
		err := a.orderErrs[0]
		a.orderErrs = a.orderErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &models.Order{
		ID:              primitive.NewObjectID(),
		Items:           req.Items,
		Total:           req.Total,
		Status:          models.StatusProcessing,
		ShippingInfo:    req.ShippingInfo,
		PaymentIntentID: req.PaymentIntentID,
	}, nil
}

func (a *fakeAPI) orderCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.orders)
}

type fakeConfirmer struct {
	result  *Confirmation
	err     error
	block   chan struct{}
	entered chan struct{}
	secrets []string
	keys    *[]string
}

func (c *fakeConfirmer) Confirm(ctx context.Context, clientSecret string, _ Card, _ models.ShippingInfo) (*Confirmation, error) {
	c.secrets = append(c.secrets, clientSecret)
	if c.entered != nil {
		close(c.entered)
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.result, c.err
}

func succeeded() *fakeConfirmer {
	return &fakeConfirmer{result: &Confirmation{PaymentIntentID: "pi_1", Status: models.PaymentIntentSucceeded}}
}

func newTestFlow(api API, confirmer *fakeConfirmer, timeout time.Duration) *Flow {
	var keys []string
	confirmer.keys = &keys
	return NewFlow(api, func(pk string) CardConfirmer {
		keys = append(keys, pk)
		return confirmer
	}, cart.DefaultPolicy(), timeout, nil)
}

func testCart() *cart.Cart {
	return cart.New(models.LineItem{
		Product:  models.ProductSnapshot{ID: "p1", Name: "Tee", Price: 150},
		Quantity: 2,
		Size:     "M",
		Color:    "Black",
	})
}

func testShipping() models.ShippingInfo {
	return models.ShippingInfo{
		FullName: "Mona Adel",
		Email:    "mona@example.com",
		Phone:    "010 1234 5678",
		Address:  "12 Tahrir Square",
		City:     "Cairo",
		Country:  "Egypt",
	}
}

var testCard = Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}

func TestSubmit_Success(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	confirmer := succeeded()
	flow := newTestFlow(api, confirmer, time.Second)
	c := testCart()

	order, err := flow.Submit(context.Background(), c, testShipping(), testCard)
	require.NoError(t, err)

	assert.Equal(t, "pi_1", order.PaymentIntentID)
	assert.Equal(t, []int64{35000}, api.amounts)
	assert.Equal(t, []string{"pk_test_1"}, *confirmer.keys)
	assert.Equal(t, []string{"pi_1_secret_abc"}, confirmer.secrets)
	require.Len(t, api.orders, 1)
	assert.Equal(t, 350.0, api.orders[0].Total)
	assert.Equal(t, "pi_1", api.orders[0].PaymentIntentID)
	assert.True(t, c.IsEmpty(), "cart is cleared after the order is stored")
	assert.False(t, flow.InProgress())
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	confirmer := succeeded()
	confirmer.block = make(chan struct{})
	confirmer.entered = make(chan struct{})
	flow := newTestFlow(api, confirmer, 5*time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(context.Background(), testCart(), testShipping(), testCard)
		done <- err
	}()
	<-confirmer.entered

	assert.True(t, flow.InProgress())
	_, err := flow.Submit(context.Background(), testCart(), testShipping(), testCard)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	close(confirmer.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.orderCount())
	assert.Len(t, api.amounts, 1, "the rejected submit never reached the gateway")
}

func TestSubmit_DeclinedDoesNotCommit(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	confirmer := &fakeConfirmer{result: &Confirmation{
		PaymentIntentID: "pi_1",
		Status:          models.PaymentIntentRequiresPaymentMethod,
		Message:         "Your card was declined.",
	}}
	flow := newTestFlow(api, confirmer, time.Second)
	c := testCart()

	_, err := flow.Submit(context.Background(), c, testShipping(), testCard)

	var confErr *ConfirmationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "Your card was declined.", confErr.Error())
	assert.Equal(t, 0, api.orderCount())
	assert.Equal(t, 1, c.Len(), "cart kept for another attempt")
	assert.False(t, IsRetryable(err))
}

func TestSubmit_ConfirmerErrorIsPassedThrough(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	declined := &ConfirmationError{Status: models.PaymentIntentRequiresPaymentMethod, Message: "Insufficient funds."}
	flow := newTestFlow(api, &fakeConfirmer{err: declined}, time.Second)

	_, err := flow.Submit(context.Background(), testCart(), testShipping(), testCard)
	assert.ErrorIs(t, err, declined)
	assert.Equal(t, 0, api.orderCount())
}

func TestSubmit_ConfirmationTimeoutIsRetryable(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	confirmer := succeeded()
	confirmer.block = make(chan struct{})
	flow := newTestFlow(api, confirmer, 20*time.Millisecond)

	_, err := flow.Submit(context.Background(), testCart(), testShipping(), testCard)
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 0, api.orderCount(), "a timeout is never treated as success")
	assert.False(t, flow.InProgress())
}

func TestSubmit_CallerCancellationIsNotATimeout(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	confirmer := succeeded()
	confirmer.block = make(chan struct{})
	confirmer.entered = make(chan struct{})
	flow := newTestFlow(api, confirmer, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-confirmer.entered
		cancel()
	}()

	_, err := flow.Submit(ctx, testCart(), testShipping(), testCard)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrConfirmationTimeout)
}

func TestSubmit_CommitFailureKeepsCartAndCanBeRetried(t *testing.T) {
	api := &fakeAPI{
		key:       "pk_test_1",
		orderErrs: []error{&APIError{StatusCode: http.StatusInternalServerError, Message: "Failed to save order"}},
	}
	flow := newTestFlow(api, succeeded(), time.Second)
	c := testCart()

	_, err := flow.Submit(context.Background(), c, testShipping(), testCard)

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "pi_1", commitErr.Request.PaymentIntentID)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 1, c.Len())

	order, err := flow.CommitAgain(context.Background(), commitErr, c)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", order.PaymentIntentID)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 2, api.orderCount())
}

func TestSubmit_PaymentNotConfirmedIsNotRetryable(t *testing.T) {
	api := &fakeAPI{
		key:       "pk_test_1",
		orderErrs: []error{&APIError{StatusCode: http.StatusBadRequest, Message: "Payment not successful"}},
	}
	flow := newTestFlow(api, succeeded(), time.Second)

	_, err := flow.Submit(context.Background(), testCart(), testShipping(), testCard)
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.False(t, IsRetryable(err))
}

func TestSubmit_ValidatesBeforePayment(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	flow := newTestFlow(api, succeeded(), time.Second)

	shipping := testShipping()
	shipping.Phone = "0123456"

	_, err := flow.Submit(context.Background(), testCart(), shipping, testCard)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.NotEmpty(t, valErr.Problems)
	assert.Empty(t, api.amounts, "no payment intent for an invalid order")
}

func TestSubmit_EmptyCart(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1"}
	flow := newTestFlow(api, succeeded(), time.Second)

	_, err := flow.Submit(context.Background(), &cart.Cart{}, testShipping(), testCard)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.False(t, flow.InProgress())
}

func TestSubmit_IntentFailure(t *testing.T) {
	api := &fakeAPI{key: "pk_test_1", intentErr: errors.New("connection refused")}
	confirmer := succeeded()
	flow := newTestFlow(api, confirmer, time.Second)

	_, err := flow.Submit(context.Background(), testCart(), testShipping(), testCard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start payment")
	assert.Empty(t, confirmer.secrets)
}
