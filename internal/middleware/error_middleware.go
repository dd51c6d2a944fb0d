package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
	"github.com/campusgpt/admission/internal/pkg/errreport"
	"github.com/campusgpt/admission/internal/pkg/logger"
)

// apiError pairs a sentinel with its HTTP status and code. Entries are
// matched in order, so specific admission errors precede their generic parents.
type apiError struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

var apiErrors = []apiError{
	{apperrors.ErrDuplicateApplication, http.StatusConflict, dto.ErrorCodeDuplicateApplication, ""},
	{apperrors.ErrStageLocked, http.StatusConflict, dto.ErrorCodeStageLocked, ""},
	{apperrors.ErrApplicationClosed, http.StatusConflict, dto.ErrorCodeApplicationClosed, ""},
	{apperrors.ErrPaymentDeclined, http.StatusPaymentRequired, dto.ErrorCodePaymentDeclined, ""},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeInvalidFormat, "Bad request"},
	{apperrors.ErrInvalidFormat, http.StatusBadRequest, dto.ErrorCodeInvalidFormat, "Invalid format"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeResourceInvalid, "Conflict"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	for _, e := range apiErrors {
		if !errors.Is(err, e.target) {
			continue
		}

		message := e.message
		detail := dto.NewErrorDetail(e.code, message)
		if ce, ok := apperrors.AsCustom(err); ok {
			detail.Message = ce.Message
			if ce.Details != nil {
				detail.WithDetails(ce.Details)
			}
		} else if message == "" || e.status == http.StatusPaymentRequired {
			detail.Message = err.Error()
		}
		if e.status < http.StatusInternalServerError {
			detail.WithSeverity(dto.ErrorSeverityWarning)
		}

		c.AbortWithStatusJSON(e.status, dto.NewErrorResponse(detail))
		return
	}

	requestID := c.GetString(RequestIDKey)
	logger.Error().Err(err).
		Str("requestId", requestID).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled error")
	errreport.Report(err, map[string]interface{}{
		"requestId": requestID,
		"method":    c.Request.Method,
		"path":      c.FullPath(),
	})

	detail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(detail))
}
