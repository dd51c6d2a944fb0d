package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgpt/admission/internal/app/models/dto"
)

// BindRequest decodes a JSON, form or multipart body into obj according to
// the request content type. Struct validation is left to the services. On a
// decoding failure it writes a 400 carrying message and returns false.
func BindRequest(c *gin.Context, obj interface{}, message string) bool {
	if err := c.ShouldBind(obj); err != nil {
		if message == "" {
			message = "Invalid request format"
		}
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidFormat, message).
			WithDetails(err.Error()).
			WithSeverity(dto.ErrorSeverityWarning)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return false
	}
	return true
}
