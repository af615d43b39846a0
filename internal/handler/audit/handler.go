package audit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/handler"
	auditService "github.com/jwalitptl/triage-api/internal/service/audit"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
)

type Handler struct {
	service *auditService.Service
}

func NewHandler(service *auditService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cases/:id/audit", h.CaseTrail)
}

// CaseTrail returns the append-only audit trail for one case.
func (h *Handler) CaseTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid case ID", err))
		return
	}

	entries, err := h.service.List(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, apperrors.Internal(fmt.Errorf("failed to load audit trail: %w", err)))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}
