package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupath-id/edupath-api/internal/service"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
	"github.com/edupath-id/edupath-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	service   *service.EnrollmentService
	dashboard *service.DashboardService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService, dashboard *service.DashboardService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, dashboard: dashboard}
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Enrolls the authenticated user; a repeated call is rejected without changing state
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboard != nil {
		h.dashboard.InvalidateFor(context.WithoutCancel(c.Request.Context()), claims.UserID)
	}

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ListForUser godoc
// @Summary List a user's enrollments
// @Description Returns enrollments with course details; callers may only read their own
// @Tags Enrollments
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id}/enrollments [get]
func (h *EnrollmentHandler) ListForUser(c *gin.Context) {
	enrollments, err := h.service.ListForUser(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, nil)
}
