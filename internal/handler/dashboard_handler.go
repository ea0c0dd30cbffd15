package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupath-id/edupath-api/internal/middleware"
	"github.com/edupath-id/edupath-api/internal/service"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
	"github.com/edupath-id/edupath-api/pkg/response"
)

// DashboardHandler serves the per-user dashboard summary.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Returns enrollment counters and recent activity for the caller
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, hit, err := h.service.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
