package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
)

// ErrorHandler renders errors attached via c.Error. Handlers that respond
// directly bypass this; it is the net under anything that only records the
// error. Client payloads carry the error code and user message, never the
// technical detail.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		app := apperrors.AsAppError(c.Errors.Last().Err).WithRequestID(requestID)
		c.JSON(app.StatusCode(), gin.H{"status": "error", "error": app})
	}
}
