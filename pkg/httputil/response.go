package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medilink/clinic-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, data)
}

// Respond sends a success response with the given status code.
func Respond(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response. Errors that are not an AppError
// are reported as internal errors without leaking their message.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.HTTPStatus()
		message = appErr.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, Response{
		Status:  "error",
		Message: message,
	})
}

// RespondWithMessage sends an error envelope with an explicit status.
func RespondWithMessage(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{
		Status:  "error",
		Message: message,
	})
}
