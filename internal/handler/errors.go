package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
)

// RespondError renders any error in the stable boundary shape, attaching
// the request correlation ID.
func RespondError(c *gin.Context, err error) {
	app := apperrors.AsAppError(err).WithRequestID(c.GetString("request_id"))
	c.JSON(app.StatusCode(), gin.H{"status": "error", "error": app})
}
