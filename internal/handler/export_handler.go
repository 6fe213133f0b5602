package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/service"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
	"github.com/noah-isme/academy-retake-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, query dto.ListQuery, format string) (*service.ExportResult, error)
}

// ExportHandler streams the filtered working set as a file download.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export the filtered retake list
// @Tags Retakes
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /retakes/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export query"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), query, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
