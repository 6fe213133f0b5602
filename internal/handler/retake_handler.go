package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/models"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
	"github.com/noah-isme/academy-retake-api/pkg/response"
)

type retakeService interface {
	AssignBatch(ctx context.Context, req dto.AssignBatchRequest, actor *models.ActorClaims) ([]models.RetakeAssignment, error)
	Postpone(ctx context.Context, id string, req dto.PostponeRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error)
	MarkAbsent(ctx context.Context, id string, req dto.NoteRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error)
	Complete(ctx context.Context, id string, req dto.NoteRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error)
	EditDate(ctx context.Context, id string, req dto.EditDateRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error)
	ChangeManagementStatus(ctx context.Context, id string, req dto.ChangeManagementStatusRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error)
	Delete(ctx context.Context, id string, confirmed bool) error
	Get(ctx context.Context, id string) (*dto.RetakeDetail, error)
	ListFiltered(ctx context.Context, query dto.ListQuery) (*dto.ListResult, error)
	ManagementStatuses(ctx context.Context) ([]models.ManagementStatus, error)
}

// RetakeHandler exposes REST endpoints for the retake lifecycle.
type RetakeHandler struct {
	service retakeService
}

// NewRetakeHandler constructs the handler.
func NewRetakeHandler(service retakeService) *RetakeHandler {
	return &RetakeHandler{service: service}
}

// AssignBatch godoc
// @Summary Assign a retake to a batch of students
// @Tags Retakes
// @Accept json
// @Produce json
// @Param payload body dto.AssignBatchRequest true "Batch assignment"
// @Success 201 {object} response.Envelope
// @Router /retakes [post]
func (h *RetakeHandler) AssignBatch(c *gin.Context) {
	var req dto.AssignBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assign payload"))
		return
	}
	assignments, err := h.service.AssignBatch(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, assignments, nil)
}

// List godoc
// @Summary List retake assignments with rollups
// @Tags Retakes
// @Produce json
// @Param status query string false "Lifecycle status"
// @Param courseId query string false "Course id"
// @Param examId query string false "Exam id"
// @Param managementStatus query string false "Management status label"
// @Param scheduledDate query string false "Exact scheduled date (YYYY-MM-DD)"
// @Param studentName query string false "Student name substring"
// @Param hideCompleted query bool false "Hide completed assignments"
// @Param minIncomplete query int false "Minimum incomplete count per student"
// @Param minFlakiness query int false "Minimum postpone+absence sum per student"
// @Success 200 {object} response.Envelope
// @Router /retakes [get]
func (h *RetakeHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid list query"))
		return
	}
	result, err := h.service.ListFiltered(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Items, nil, map[string]interface{}{"rollups": result.Rollups})
}

// Get godoc
// @Summary Get one retake assignment with its directory context
// @Tags Retakes
// @Produce json
// @Param id path string true "Retake ID"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id} [get]
func (h *RetakeHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Postpone godoc
// @Summary Postpone a retake (penalized reschedule)
// @Tags Retakes
// @Accept json
// @Produce json
// @Param id path string true "Retake ID"
// @Param payload body dto.PostponeRequest true "New date and optional note"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id}/postpone [post]
func (h *RetakeHandler) Postpone(c *gin.Context) {
	var req dto.PostponeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid postpone payload"))
		return
	}
	assignment, err := h.service.Postpone(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// MarkAbsent godoc
// @Summary Mark a pending retake as absent
// @Tags Retakes
// @Accept json
// @Produce json
// @Param id path string true "Retake ID"
// @Param payload body dto.NoteRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id}/absent [post]
func (h *RetakeHandler) MarkAbsent(c *gin.Context) {
	req := bindOptionalNote(c)
	assignment, err := h.service.MarkAbsent(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Complete godoc
// @Summary Complete a retake
// @Tags Retakes
// @Accept json
// @Produce json
// @Param id path string true "Retake ID"
// @Param payload body dto.NoteRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id}/complete [post]
func (h *RetakeHandler) Complete(c *gin.Context) {
	req := bindOptionalNote(c)
	assignment, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// EditDate godoc
// @Summary Correct a retake date (no penalty)
// @Tags Retakes
// @Accept json
// @Produce json
// @Param id path string true "Retake ID"
// @Param payload body dto.EditDateRequest true "Corrected date"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id}/date [post]
func (h *RetakeHandler) EditDate(c *gin.Context) {
	var req dto.EditDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date edit payload"))
		return
	}
	assignment, err := h.service.EditDate(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// ChangeManagementStatus godoc
// @Summary Change the management status label
// @Tags Retakes
// @Accept json
// @Produce json
// @Param id path string true "Retake ID"
// @Param payload body dto.ChangeManagementStatusRequest true "New label"
// @Success 200 {object} response.Envelope
// @Router /retakes/{id}/management-status [post]
func (h *RetakeHandler) ChangeManagementStatus(c *gin.Context) {
	var req dto.ChangeManagementStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid management status payload"))
		return
	}
	assignment, err := h.service.ChangeManagementStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete a retake assignment and its history
// @Tags Retakes
// @Param id path string true "Retake ID"
// @Param confirm query bool true "Must be true; deletion is irreversible"
// @Success 204
// @Router /retakes/{id} [delete]
func (h *RetakeHandler) Delete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), confirmed); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ManagementStatuses godoc
// @Summary List the management status catalog
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /management-statuses [get]
func (h *RetakeHandler) ManagementStatuses(c *gin.Context) {
	statuses, err := h.service.ManagementStatuses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, nil)
}

// bindOptionalNote tolerates an empty body; absent and complete only carry
// an optional note.
func bindOptionalNote(c *gin.Context) dto.NoteRequest {
	var req dto.NoteRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	return req
}
