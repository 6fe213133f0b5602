package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/models"
	"github.com/noah-isme/academy-retake-api/pkg/response"
)

type historyService interface {
	HistoryFor(ctx context.Context, retakeID string) ([]models.HistoryEntry, error)
	Recent(ctx context.Context, limit int) ([]models.HistoryFeedEntry, error)
	VerifyConsistency(ctx context.Context, retakeID string) (*dto.ConsistencyReport, error)
}

// HistoryHandler exposes the audit trail read endpoints.
type HistoryHandler struct {
	service historyService
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(service historyService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// ForAssignment godoc
// @Summary Get the audit trail of one retake, oldest first
// @Tags History
// @Produce json
// @Param id path string true "Retake ID"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id}/history [get]
func (h *HistoryHandler) ForAssignment(c *gin.Context) {
	entries, err := h.service.HistoryFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Recent godoc
// @Summary Global activity feed, newest first
// @Tags History
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /retakes/history [get]
func (h *HistoryHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Consistency godoc
// @Summary Replay a retake's audit trail against its stored state
// @Tags History
// @Produce json
// @Param id path string true "Retake ID"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id}/consistency [get]
func (h *HistoryHandler) Consistency(c *gin.Context) {
	report, err := h.service.VerifyConsistency(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
