package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

// ErrorStatus maps an error to its HTTP status and error code
func ErrorStatus(err error) (int, dto.ErrorCode) {
	switch {
	case apperrors.Is(err, apperrors.ErrUnauthorized, apperrors.ErrTokenInvalid, apperrors.ErrInvalidFormat):
		return http.StatusUnauthorized, dto.ErrorCodeUnauthorized
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.ErrorCodeExpiredToken
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.ErrorCodeForbidden
	case apperrors.Is(err, apperrors.ErrResourceNotFound, apperrors.ErrNotFound):
		return http.StatusNotFound, dto.ErrorCodeResourceNotFound
	case apperrors.Is(err, apperrors.ErrConflict, apperrors.ErrDuplicate):
		return http.StatusConflict, dto.ErrorCodeConflict
	case errors.Is(err, apperrors.ErrPreconditionFailed):
		return http.StatusBadRequest, dto.ErrorCodePreconditionFailed
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, dto.ErrorCodeInvalidRequest
	default:
		return http.StatusInternalServerError, dto.ErrorCodeInternalServer
	}
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, code := ErrorStatus(err)

	message := apperrors.Message(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
		message = "Internal server error"
	}

	errorDetail := dto.NewErrorDetail(code, message)
	var custom *apperrors.CustomError
	if errors.As(err, &custom) && len(custom.Details) > 0 {
		errorDetail = errorDetail.WithDetails(custom.Details)
	}

	c.JSON(status, dto.NewErrorResponse(errorDetail))
}
