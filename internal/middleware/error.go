package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/medilink/clinic-api/pkg/errors"
)

// ErrorLogger logs errors attached to the context by handlers. Client
// errors are logged at debug level, everything else at error level.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		logger := zerolog.Ctx(c.Request.Context())
		for _, e := range c.Errors {
			event := logger.Error()
			if appErr, ok := errors.As(e.Err); ok && appErr.HTTPStatus() < 500 {
				event = logger.Debug()
			}
			event.
				Err(e.Err).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}
	}
}
