package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/edupath-id/edupath-api/internal/service"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
	"github.com/edupath-id/edupath-api/pkg/response"
)

// ExportHandler streams generated roster files referenced by signed tokens.
type ExportHandler struct {
	service *service.RosterExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.RosterExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Download godoc
// @Summary Download an export
// @Description Streams a roster file referenced by a signed download token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "roster exports are disabled"))
		return
	}

	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "token is required"))
		return
	}

	file, relPath, err := h.service.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(relPath)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", contentTypeFor(name))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
