package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/logger"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

// CartSessionHeader names the server cart a request refers to.
const CartSessionHeader = "X-Cart-Session"

type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// CreateOrder commits a paid checkout. A replay for an already committed
// payment intent answers 200 with the existing order.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidBody(ctx)
		return
	}

	order, created, svcErr := oc.orderService.CommitOrder(ctx.Request.Context(), &req, services.CommitOptions{
		CartSessionID: ctx.GetHeader(CartSessionHeader),
		RequestID:     logger.RequestID(ctx.Request.Context()),
	})
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	ctx.JSON(status, order)
}

// GetOrders returns every order, newest first (admin only)
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	orders, svcErr := oc.orderService.ListOrders(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	ctx.JSON(http.StatusOK, orders)
}

// GetOrder returns a single order (admin only)
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// UpdateStatus overwrites an order's status (admin only)
func (oc *OrderController) UpdateStatus(ctx *gin.Context) {
	var req models.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidBody(ctx)
		return
	}

	order, svcErr := oc.orderService.SetStatus(ctx.Request.Context(), ctx.Param("id"), req.Status)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, order)
}
