package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

type AuthController struct {
	authService services.AuthService
}

func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Login exchanges the admin password for a bearer token.
func (ac *AuthController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidBody(ctx)
		return
	}

	resp, svcErr := ac.authService.Login(ctx.Request.Context(), &req)
	if svcErr != nil {
		if svcErr.Kind == services.KindUnauthorized {
			ctx.JSON(svcErr.StatusCode, models.LoginResponse{Success: false, Message: svcErr.Message})
			return
		}
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
