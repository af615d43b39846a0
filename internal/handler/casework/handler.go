// Package casework exposes the dashboard read and write paths: priority
// ordered listings, status transitions, follow-ups, reminders, and
// data-deletion requests. Every read and write is audit logged.
package casework

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/handler"
	"github.com/jwalitptl/triage-api/internal/middleware"
	"github.com/jwalitptl/triage-api/internal/model"
	caseworkService "github.com/jwalitptl/triage-api/internal/service/casework"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
)

type Handler struct {
	service  *caseworkService.Service
	validate *validator.Validate
}

func NewHandler(service *caseworkService.Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cases", h.ListCases)
	rg.GET("/cases/:id", h.GetCase)
	rg.PATCH("/cases/:id/status", h.UpdateStatus)
	rg.POST("/cases/:id/followups", h.AddFollowUp)
	rg.POST("/cases/:id/reminders", h.ScheduleReminder)
	rg.DELETE("/cases/:id", h.DeleteCase)
	rg.GET("/users/:id/cases", h.UserHistory)
}

// ListCases returns CaseViews in canonical priority order. Filters apply
// before ordering.
func (h *Handler) ListCases(c *gin.Context) {
	var filters model.CaseFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid filters", err))
		return
	}
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid pagination", err))
		return
	}

	views, err := h.service.ListCases(c.Request.Context(), filters, page, middleware.ActorID(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(views))
}

func (h *Handler) GetCase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid case ID", err))
		return
	}

	cs, err := h.service.GetCase(c.Request.Context(), id, middleware.ActorID(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cs))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid case ID", err))
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid status payload", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid status payload", err))
		return
	}

	cs, err := h.service.UpdateStatus(c.Request.Context(), id, middleware.ActorID(c), req.Status, req.Notes)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cs))
}

func (h *Handler) AddFollowUp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid case ID", err))
		return
	}

	var req model.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid follow-up payload", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid follow-up payload", err))
		return
	}

	cs, err := h.service.AddFollowUp(c.Request.Context(), id, middleware.ActorID(c), req.Notes, req.Action)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cs))
}

func (h *Handler) ScheduleReminder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid case ID", err))
		return
	}

	var req model.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid reminder payload", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid reminder payload", err))
		return
	}

	cs, err := h.service.ScheduleFollowUp(c.Request.Context(), id, middleware.ActorID(c), req.ReminderTime, req.Notes)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cs))
}

// DeleteCase honors an explicit data-deletion request.
func (h *Handler) DeleteCase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid case ID", err))
		return
	}

	if err := h.service.DeleteCase(c.Request.Context(), id, middleware.ActorID(c)); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted_at": time.Now().UTC()}))
}

func (h *Handler) UserHistory(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid user ID", err))
		return
	}

	views, err := h.service.UserHistory(c.Request.Context(), userID, middleware.ActorID(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(views))
}
