package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/controllers"
	"github.com/yashrajoria/storefront/middleware"
)

// Controllers groups the handlers RegisterRoutes mounts. Cart is nil when no
// session store is configured. RateLimit, when set, guards every /api route
// except the Stripe webhook.
type Controllers struct {
	Config    *controllers.ConfigController
	Payment   *controllers.PaymentController
	Order     *controllers.OrderController
	Cart      *controllers.CartController
	Auth      *controllers.AuthController
	Webhook   *controllers.WebhookController
	RateLimit gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, c Controllers, tokens middleware.TokenParser) {
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Stripe webhook (signature verified, no auth, not rate limited)
	api.POST("/webhooks/stripe", c.Webhook.StripeWebhook)

	store := api.Group("")
	if c.RateLimit != nil {
		store.Use(c.RateLimit)
	}
	{
		store.GET("/config/stripe-key", c.Config.GetStripeKey)
		store.POST("/create-payment-intent", c.Payment.CreatePaymentIntent)
		store.POST("/orders", c.Order.CreateOrder)
		store.POST("/login", c.Auth.Login)
	}

	admin := store.Group("/orders")
	admin.Use(middleware.AdminAuth(tokens))
	{
		admin.GET("", c.Order.GetOrders)
		admin.GET("/:id", c.Order.GetOrder)
		admin.PUT("/:id/status", c.Order.UpdateStatus)
	}

	if c.Cart != nil {
		cart := store.Group("/cart")
		{
			cart.GET("", c.Cart.GetCart)
			cart.DELETE("", c.Cart.ClearCart)
			cart.POST("/items", c.Cart.AddItem)
			cart.PATCH("/items/:itemId", c.Cart.UpdateItem)
			cart.DELETE("/items/:itemId", c.Cart.RemoveItem)
		}
	}
}
