package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront/models"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/providers"
	"go.uber.org/zap"
)

func amount(v float64) *float64 { return &v }

func TestCreatePaymentIntent_Success(t *testing.T) {
	provider := &mockProvider{}
	metrics := newRecordingMetrics()
	svc := NewPaymentService(provider, "pk_test_123", "egp", 99999999, metrics, zap.NewNop())

	resp, svcErr := svc.CreatePaymentIntent(context.Background(), &models.CreatePaymentIntentRequest{Amount: amount(35000)})
	require.Nil(t, svcErr)
	assert.Equal(t, "pi_new_secret_xyz", resp.ClientSecret)
	assert.Equal(t, []int64{35000}, provider.created)
	assert.Equal(t, 1, metrics.count(aws_pkg.MetricPaymentIntentsCreated))
	assert.Equal(t, "pk_test_123", svc.PublishableKey())
}

func TestCreatePaymentIntent_InvalidAmountSkipsGateway(t *testing.T) {
	provider := &mockProvider{}
	svc := NewPaymentService(provider, "pk", "egp", 99999999, nil, zap.NewNop())

	for _, req := range []*models.CreatePaymentIntentRequest{
		{},
		{Amount: amount(0)},
		{Amount: amount(-100)},
		{Amount: amount(12.5)},
		{Amount: amount(100000000)},
	} {
		_, svcErr := svc.CreatePaymentIntent(context.Background(), req)
		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
		assert.Equal(t, KindValidation, svcErr.Kind)
	}
	assert.Empty(t, provider.created)
}

func TestCreatePaymentIntent_GatewayFailure(t *testing.T) {
	provider := &mockProvider{createErr: &providers.GatewayError{Op: "create_payment_intent", StatusCode: 401, Message: "Invalid API Key"}}
	metrics := newRecordingMetrics()
	svc := NewPaymentService(provider, "pk", "egp", 99999999, metrics, zap.NewNop())

	_, svcErr := svc.CreatePaymentIntent(context.Background(), &models.CreatePaymentIntentRequest{Amount: amount(5000)})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Equal(t, KindPaymentSetupFailed, svcErr.Kind)
	assert.Equal(t, "Failed to create payment intent", svcErr.Message)
	assert.Equal(t, 1, metrics.count(aws_pkg.MetricPaymentSetupFailed))
	assert.Len(t, provider.created, 1)
}

func TestCreatePaymentIntent_GatewayTimeout(t *testing.T) {
	provider := &mockProvider{createErr: &providers.GatewayError{Op: "create_payment_intent", Timeout: true, Err: context.DeadlineExceeded}}
	svc := NewPaymentService(provider, "pk", "egp", 99999999, nil, zap.NewNop())

	_, svcErr := svc.CreatePaymentIntent(context.Background(), &models.CreatePaymentIntentRequest{Amount: amount(5000)})
	require.NotNil(t, svcErr)
	assert.Equal(t, "Payment gateway timed out, please try again", svcErr.Message)
}

func TestCreatePaymentIntent_PlainError(t *testing.T) {
	provider := &mockProvider{createErr: errors.New("dial tcp: connection refused")}
	svc := NewPaymentService(provider, "pk", "egp", 99999999, nil, zap.NewNop())

	_, svcErr := svc.CreatePaymentIntent(context.Background(), &models.CreatePaymentIntentRequest{Amount: amount(5000)})
	require.NotNil(t, svcErr)
	assert.Equal(t, "Failed to create payment intent", svcErr.Message)
}
