package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

type CartController struct {
	cartService services.CartService
}

func NewCartController(cartService services.CartService) *CartController {
	return &CartController{cartService: cartService}
}

func (cc *CartController) GetCart(ctx *gin.Context) {
	view, svcErr := cc.cartService.GetCart(ctx.Request.Context(), ctx.GetHeader(CartSessionHeader))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (cc *CartController) AddItem(ctx *gin.Context) {
	var req models.AddCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidBody(ctx)
		return
	}

	view, svcErr := cc.cartService.AddItem(ctx.Request.Context(), ctx.GetHeader(CartSessionHeader), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// UpdateItem sets a line's quantity; zero removes it.
func (cc *CartController) UpdateItem(ctx *gin.Context) {
	var req models.UpdateCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidBody(ctx)
		return
	}

	view, svcErr := cc.cartService.UpdateItem(ctx.Request.Context(), ctx.GetHeader(CartSessionHeader), ctx.Param("itemId"), req.Quantity)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (cc *CartController) RemoveItem(ctx *gin.Context) {
	view, svcErr := cc.cartService.RemoveItem(ctx.Request.Context(), ctx.GetHeader(CartSessionHeader), ctx.Param("itemId"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (cc *CartController) ClearCart(ctx *gin.Context) {
	if svcErr := cc.cartService.ClearCart(ctx.Request.Context(), ctx.GetHeader(CartSessionHeader)); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
