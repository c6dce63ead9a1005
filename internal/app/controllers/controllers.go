package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/middleware"
)

// requireUID returns the authenticated uid or writes a 401
func requireUID(ctx *gin.Context) (string, bool) {
	uid, ok := middleware.CurrentUID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return "", false
	}
	return uid, true
}
