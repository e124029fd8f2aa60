package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

type ConfigController struct {
	paymentService services.PaymentService
}

func NewConfigController(paymentService services.PaymentService) *ConfigController {
	return &ConfigController{paymentService: paymentService}
}

// GetStripeKey returns the publishable key the storefront confirms cards with.
func (cc *ConfigController) GetStripeKey(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.StripeKeyResponse{PublishableKey: cc.paymentService.PublishableKey()})
}
