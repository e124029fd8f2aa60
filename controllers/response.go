package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/services"
)

// respondError renders a ServiceError. Validation failures also carry the
// itemized problems under "errors".
func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	if svcErr.Kind == services.KindValidation && len(svcErr.Details) > 0 {
		ctx.JSON(svcErr.StatusCode, gin.H{
			"error":   svcErr.Message,
			"message": svcErr.Message,
			"errors":  svcErr.Details,
		})
		return
	}
	ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
}

func invalidBody(ctx *gin.Context) {
	respondError(ctx, &services.ServiceError{
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Kind:       services.KindValidation,
		Details:    []string{"Invalid request body"},
	})
}
