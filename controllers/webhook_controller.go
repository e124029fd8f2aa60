package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/services"
)

const maxWebhookBody = 65536

type WebhookController struct {
	webhookService services.WebhookService
}

func NewWebhookController(webhookService services.WebhookService) *WebhookController {
	return &WebhookController{webhookService: webhookService}
}

// StripeWebhook receives gateway events. The raw body is needed for the
// signature check, so it is read before any JSON decoding.
func (wc *WebhookController) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if svcErr := wc.webhookService.HandleStripeEvent(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature")); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "received"})
}
