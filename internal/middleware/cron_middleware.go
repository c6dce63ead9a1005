package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/pkg/auth"
)

// CronSecretHeader carries the shared secret of the external scheduler
const CronSecretHeader = "X-Cron-Secret"

// CronSecret guards scheduler endpoints with the configured secret hash
func CronSecret(verifier *auth.CronSecretVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifier.Verify(c.GetHeader(CronSecretHeader)) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Invalid scheduler secret")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}
