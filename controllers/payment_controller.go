package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

type PaymentController struct {
	paymentService services.PaymentService
}

func NewPaymentController(paymentService services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

// CreatePaymentIntent handles POST /api/create-payment-intent
func (pc *PaymentController) CreatePaymentIntent(ctx *gin.Context) {
	var req models.CreatePaymentIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidBody(ctx)
		return
	}

	resp, svcErr := pc.paymentService.CreatePaymentIntent(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
