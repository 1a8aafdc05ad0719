package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clipsync-server-go/internal/platform/errors"
)

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess writes a success envelope.
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}
	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondError writes a failure envelope.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondDomainError maps an error from the domain layers to an HTTP status:
// auth failures to 401, validation to 400, missing records to 404 and
// everything else to 500.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.IsNotFound(err):
		RespondError(c, http.StatusNotFound, "not found", nil)
	case errors.IsKind(err, errors.KindAuth):
		RespondError(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.IsKind(err, errors.KindDomain):
		RespondError(c, http.StatusBadRequest, err.Error(), nil)
	default:
		RespondError(c, http.StatusInternalServerError, "internal error", nil)
	}
}
