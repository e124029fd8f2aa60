package controllers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

func setupPaymentRouter(svc services.PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/create-payment-intent", NewPaymentController(svc).CreatePaymentIntent)
	router.GET("/api/config/stripe-key", NewConfigController(svc).GetStripeKey)
	return router
}

func TestCreatePaymentIntentController(t *testing.T) {
	t.Run("Success - 200 with client secret", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req *models.CreatePaymentIntentRequest) bool {
			return req.Amount != nil && *req.Amount == 35000
		})).Return(&models.CreatePaymentIntentResponse{ClientSecret: "pi_1_secret"}, nil).Once()

		req, _ := http.NewRequest(http.MethodPost, "/api/create-payment-intent", bytes.NewBufferString(`{"amount": 35000}`))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		setupPaymentRouter(mockService).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"clientSecret": "pi_1_secret"}`, recorder.Body.String())
		mockService.AssertExpectations(t)
	})

	t.Run("Gateway failure - 500", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(nil, &services.ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to create payment intent",
			Kind:       services.KindPaymentSetupFailed,
		}).Once()

		req, _ := http.NewRequest(http.MethodPost, "/api/create-payment-intent", bytes.NewBufferString(`{"amount": 35000}`))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		setupPaymentRouter(mockService).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.JSONEq(t, `{"error": "Failed to create payment intent"}`, recorder.Body.String())
	})

	t.Run("Bad body - 400", func(t *testing.T) {
		mockService := new(MockPaymentService)

		req, _ := http.NewRequest(http.MethodPost, "/api/create-payment-intent", bytes.NewBufferString(`{"amount": "lots"}`))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		setupPaymentRouter(mockService).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		mockService.AssertNotCalled(t, "CreatePaymentIntent")
	})
}

func TestGetStripeKeyController(t *testing.T) {
	mockService := new(MockPaymentService)
	mockService.On("PublishableKey").Return("pk_test_abc").Once()

	req, _ := http.NewRequest(http.MethodGet, "/api/config/stripe-key", nil)
	recorder := httptest.NewRecorder()
	setupPaymentRouter(mockService).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"publishableKey": "pk_test_abc"}`, recorder.Body.String())
}
