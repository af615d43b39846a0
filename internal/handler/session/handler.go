// Package session is the channel adapter ingress: one endpoint per inbound
// message, returning an acknowledgment and at most one clarification.
package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/triage-api/internal/handler"
	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/service/accumulator"
	"github.com/jwalitptl/triage-api/internal/service/intake"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
)

type Handler struct {
	accumulator *accumulator.Service
	pipeline    *intake.Pipeline
	validate    *validator.Validate
}

func NewHandler(acc *accumulator.Service, pipeline *intake.Pipeline) *Handler {
	return &Handler{
		accumulator: acc,
		pipeline:    pipeline,
		validate:    validator.New(),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/messages", h.IngestMessage)
	rg.GET("/sessions/:id", h.GetSession)
}

// IngestMessage accumulates one raw input into the session. When the merge
// completes the profile, the session is queued for assessment; queue-full
// is surfaced so the adapter backs off.
func (h *Handler) IngestMessage(c *gin.Context) {
	sessionID := c.Param("id")

	var req model.IngestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid message payload", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid message payload", err))
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	result, err := h.accumulator.Accumulate(c.Request.Context(), sessionID, req.UserID, req.Channel, req.RawInput, req.Timestamp)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if result.Session.Status == model.SessionStatusComplete {
		err := h.pipeline.Submit(intake.Request{
			SessionID:   sessionID,
			UserID:      req.UserID,
			Channel:     req.Channel,
			SymptomData: result.SymptomData,
			EnqueuedAt:  time.Now(),
		})
		if err != nil {
			handler.RespondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.IngestMessageResponse{
		Ack:           true,
		SessionStatus: string(result.Session.Status),
		Clarification: result.Question,
	}))
}

func (h *Handler) GetSession(c *gin.Context) {
	result, err := h.accumulator.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
