package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edupath-id/edupath-api/internal/middleware"
	"github.com/edupath-id/edupath-api/internal/models"
	"github.com/edupath-id/edupath-api/internal/service"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
	"github.com/edupath-id/edupath-api/pkg/response"
)

// CourseHandler exposes the course catalog endpoints.
type CourseHandler struct {
	service *service.CourseService
	exports *service.RosterExportService
}

// NewCourseHandler creates a new handler.
func NewCourseHandler(svc *service.CourseService, exports *service.RosterExportService) *CourseHandler {
	return &CourseHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List published courses
// @Description Returns the published course catalog with pagination
// @Tags Courses
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Title search"
// @Param instructor_id query string false "Filter by instructor"
// @Param sort_by query string false "Sort field (title, price, created_at)"
// @Param sort_order query string false "Sort order (asc, desc)"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		InstructorID: c.Query("instructor_id"),
		Search:       c.Query("search"),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	courses, pagination, hit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, courses, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get course detail
// @Description Returns a course with instructor, modules and lessons
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	detail, hit, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, detail, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create a course
// @Description Publish a new course owned by the calling instructor
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.service.Create(c.Request.Context(), claimsFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, course)
}

// ExportRoster godoc
// @Summary Export course roster
// @Description Generates a CSV or PDF roster and returns a signed download URL
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param format query string false "Export format (csv, pdf)" default(csv)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/roster/export [post]
func (h *CourseHandler) ExportRoster(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "roster exports are disabled"))
		return
	}

	format := c.DefaultQuery("format", models.ExportFormatCSV)
	result, err := h.exports.Export(c.Request.Context(), claimsFromContext(c), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
