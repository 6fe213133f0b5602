package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/models"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
)

type retakeServiceStub struct {
	assignment  *models.RetakeAssignment
	assignments []models.RetakeAssignment
	detail      *dto.RetakeDetail
	listResult  *dto.ListResult
	statuses    []models.ManagementStatus
	err         error

	deleteID        string
	deleteConfirmed bool
	lastActor       *models.ActorClaims
}

func (s *retakeServiceStub) AssignBatch(_ context.Context, _ dto.AssignBatchRequest, actor *models.ActorClaims) ([]models.RetakeAssignment, error) {
	s.lastActor = actor
	return s.assignments, s.err
}

func (s *retakeServiceStub) Postpone(_ context.Context, _ string, _ dto.PostponeRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	s.lastActor = actor
	return s.assignment, s.err
}

func (s *retakeServiceStub) MarkAbsent(_ context.Context, _ string, _ dto.NoteRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	s.lastActor = actor
	return s.assignment, s.err
}

func (s *retakeServiceStub) Complete(_ context.Context, _ string, _ dto.NoteRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	s.lastActor = actor
	return s.assignment, s.err
}

func (s *retakeServiceStub) EditDate(_ context.Context, _ string, _ dto.EditDateRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	s.lastActor = actor
	return s.assignment, s.err
}

func (s *retakeServiceStub) ChangeManagementStatus(_ context.Context, _ string, _ dto.ChangeManagementStatusRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	s.lastActor = actor
	return s.assignment, s.err
}

func (s *retakeServiceStub) Delete(_ context.Context, id string, confirmed bool) error {
	s.deleteID = id
	s.deleteConfirmed = confirmed
	return s.err
}

func (s *retakeServiceStub) Get(_ context.Context, _ string) (*dto.RetakeDetail, error) {
	return s.detail, s.err
}

func (s *retakeServiceStub) ListFiltered(_ context.Context, _ dto.ListQuery) (*dto.ListResult, error) {
	return s.listResult, s.err
}

func (s *retakeServiceStub) ManagementStatuses(_ context.Context) ([]models.ManagementStatus, error) {
	return s.statuses, s.err
}

func newRetakeRouter(stub *retakeServiceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRetakeHandler(stub)
	r := gin.New()
	r.POST("/retakes", h.AssignBatch)
	r.GET("/retakes", h.List)
	r.GET("/retakes/:id", h.Get)
	r.DELETE("/retakes/:id", h.Delete)
	r.POST("/retakes/:id/postpone", h.Postpone)
	r.POST("/retakes/:id/absent", h.MarkAbsent)
	r.POST("/retakes/:id/complete", h.Complete)
	r.POST("/retakes/:id/date", h.EditDate)
	r.POST("/retakes/:id/management-status", h.ChangeManagementStatus)
	r.GET("/management-statuses", h.ManagementStatuses)
	return r
}

func performJSON(r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAssignBatchHandlerCreated(t *testing.T) {
	stub := &retakeServiceStub{assignments: []models.RetakeAssignment{{ID: "r1"}, {ID: "r2"}}}
	r := newRetakeRouter(stub)

	w := performJSON(r, http.MethodPost, "/retakes", dto.AssignBatchRequest{
		ExamID:        "e1",
		StudentIDs:    []string{"s1", "s2"},
		ScheduledDate: "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data []models.RetakeAssignment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
}

func TestAssignBatchHandlerRejectsMalformedBody(t *testing.T) {
	r := newRetakeRouter(&retakeServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/retakes", bytes.NewBufferString("{broken"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListHandlerIncludesRollupsMeta(t *testing.T) {
	stub := &retakeServiceStub{listResult: &dto.ListResult{
		Items:   []models.RetakeListItem{{RetakeAssignment: models.RetakeAssignment{ID: "r1"}, StudentName: "Ada Lovelace"}},
		Rollups: []models.StudentRollup{{StudentID: "s1", FlakinessScore: 3}},
	}}
	r := newRetakeRouter(stub)

	w := performJSON(r, http.MethodGet, "/retakes?hideCompleted=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Meta map[string]json.RawMessage `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Contains(t, envelope.Meta, "rollups")
}

func TestMutationHandlerMapsDomainErrors(t *testing.T) {
	stub := &retakeServiceStub{err: appErrors.ErrInvalidTransition}
	r := newRetakeRouter(stub)

	w := performJSON(r, http.MethodPost, "/retakes/r1/postpone", dto.PostponeRequest{NewDate: "2025-03-08"})
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
}

func TestCompleteHandlerToleratesEmptyBody(t *testing.T) {
	stub := &retakeServiceStub{assignment: &models.RetakeAssignment{ID: "r1", Status: models.RetakeStatusCompleted}}
	r := newRetakeRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/retakes/r1/complete", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteHandlerPassesConfirmation(t *testing.T) {
	stub := &retakeServiceStub{}
	r := newRetakeRouter(stub)

	w := performJSON(r, http.MethodDelete, "/retakes/r1?confirm=true", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "r1", stub.deleteID)
	require.True(t, stub.deleteConfirmed)

	w = performJSON(r, http.MethodDelete, "/retakes/r1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.False(t, stub.deleteConfirmed)
}

func TestGetHandlerReturnsDetail(t *testing.T) {
	stub := &retakeServiceStub{detail: &dto.RetakeDetail{
		RetakeAssignment: models.RetakeAssignment{ID: "r1"},
		Student:          &models.Student{ID: "s1", FullName: "Ada Lovelace", Phone: "+4915200000001"},
	}}
	r := newRetakeRouter(stub)

	w := performJSON(r, http.MethodGet, "/retakes/r1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.RetakeDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "r1", envelope.Data.ID)
	require.Equal(t, "Ada Lovelace", envelope.Data.Student.FullName)
}

func TestManagementStatusesHandler(t *testing.T) {
	stub := &retakeServiceStub{statuses: []models.ManagementStatus{{ID: "ms-1", Name: "needs-call"}}}
	r := newRetakeRouter(stub)

	w := performJSON(r, http.MethodGet, "/management-statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.ManagementStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
}
