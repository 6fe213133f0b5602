package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/models"
	"github.com/noah-isme/academy-retake-api/internal/repository"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
)

const (
	dateLayout      = "2006-01-02"
	feedCachePrefix = "retakes:feed:"
)

type retakeStore interface {
	CreateBatch(ctx context.Context, assignments []*models.RetakeAssignment, entries []*models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.RetakeAssignment, error)
	List(ctx context.Context, filter models.RetakeListFilter) ([]models.RetakeListItem, error)
	ApplyMutation(ctx context.Context, params repository.ApplyMutationParams) error
	Delete(ctx context.Context, id string) error
}

type directoryStore interface {
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetExam(ctx context.Context, id string) (*models.Exam, error)
	MissingStudents(ctx context.Context, ids []string) ([]string, error)
	ListManagementStatuses(ctx context.Context) ([]models.ManagementStatus, error)
	ManagementStatusExists(ctx context.Context, name string) (bool, error)
}

type feedInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type mutationRecorder interface {
	RecordMutation(action models.HistoryAction)
	RecordConflict()
}

// RetakeService composes the lifecycle rules, the store and the audit
// trail into the operations callers use. Every mutation validates the
// transition against the freshly-read state and persists the new state
// together with its history entry in one atomic unit.
type RetakeService struct {
	repo      retakeStore
	directory directoryStore
	cache     feedInvalidator
	metrics   mutationRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRetakeService constructs the service. Cache and metrics are optional.
func NewRetakeService(repo retakeStore, directory directoryStore, cache feedInvalidator, metrics mutationRecorder, validate *validator.Validate, logger *zap.Logger) *RetakeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetakeService{
		repo:      repo,
		directory: directory,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// AssignBatch creates one assignment per selected student, sharing exam and
// initial date, with the ASSIGN history entries written in the same
// transaction. Sibling assignments are independent from then on.
func (s *RetakeService) AssignBatch(ctx context.Context, req dto.AssignBatchRequest, actor *models.ActorClaims) ([]models.RetakeAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assign request")
	}
	date, err := parseDate(req.ScheduledDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduledDate must be a YYYY-MM-DD date")
	}

	if _, err := s.directory.GetExam(ctx, req.ExamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown exam")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve exam")
	}
	studentIDs := dedupe(req.StudentIDs)
	missing, err := s.directory.MissingStudents(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve students")
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown students: %s", strings.Join(missing, ", ")))
	}

	now := time.Now().UTC()
	note := optionalString(req.Note)
	performedBy := actorID(actor)
	assignments := make([]*models.RetakeAssignment, 0, len(studentIDs))
	entries := make([]*models.HistoryEntry, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		assignment, entry := newAssignment(studentID, req.ExamID, date, note, performedBy, now)
		assignments = append(assignments, &assignment)
		entries = append(entries, &entry)
	}

	if err := s.repo.CreateBatch(ctx, assignments, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create retake assignments")
	}
	s.afterMutation(ctx, models.HistoryActionAssign)

	result := make([]models.RetakeAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		result = append(result, *assignment)
	}
	return result, nil
}

// Postpone reschedules as a penalty: the date moves and postpone_count
// grows by one. Status stays whatever open state it was in.
func (s *RetakeService) Postpone(ctx context.Context, id string, req dto.PostponeRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid postpone request")
	}
	newDate, err := parseDate(req.NewDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "newDate must be a YYYY-MM-DD date")
	}
	note := optionalString(req.Note)
	return s.mutate(ctx, id, func(a models.RetakeAssignment) (models.RetakeAssignment, models.HistoryEntry, error) {
		return transitionPostpone(a, newDate, note, actorID(actor))
	})
}

// MarkAbsent records a no-show. Legal only from PENDING.
func (s *RetakeService) MarkAbsent(ctx context.Context, id string, req dto.NoteRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	note := optionalString(req.Note)
	return s.mutate(ctx, id, func(a models.RetakeAssignment) (models.RetakeAssignment, models.HistoryEntry, error) {
		return transitionMarkAbsent(a, note, actorID(actor))
	})
}

// Complete terminally fulfills the obligation, from PENDING or ABSENT.
func (s *RetakeService) Complete(ctx context.Context, id string, req dto.NoteRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	note := optionalString(req.Note)
	return s.mutate(ctx, id, func(a models.RetakeAssignment) (models.RetakeAssignment, models.HistoryEntry, error) {
		return transitionComplete(a, note, actorID(actor))
	})
}

// EditDate corrects a data-entry mistake. No counter moves; this is what
// separates it from Postpone.
func (s *RetakeService) EditDate(ctx context.Context, id string, req dto.EditDateRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date edit request")
	}
	newDate, err := parseDate(req.NewDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "newDate must be a YYYY-MM-DD date")
	}
	note := optionalString(req.Note)
	return s.mutate(ctx, id, func(a models.RetakeAssignment) (models.RetakeAssignment, models.HistoryEntry, error) {
		return transitionEditDate(a, newDate, note, actorID(actor))
	})
}

// ChangeManagementStatus sets the workflow label after validating catalog
// membership. Permitted in any state, including COMPLETED.
func (s *RetakeService) ChangeManagementStatus(ctx context.Context, id string, req dto.ChangeManagementStatusRequest, actor *models.ActorClaims) (*models.RetakeAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid management status request")
	}
	known, err := s.directory.ManagementStatusExists(ctx, req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check management status catalog")
	}
	if !known {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown management status: %s", req.Status))
	}
	note := optionalString(req.Note)
	return s.mutate(ctx, id, func(a models.RetakeAssignment) (models.RetakeAssignment, models.HistoryEntry, error) {
		updated, entry := transitionManagementStatus(a, req.Status, note, actorID(actor))
		return updated, entry, nil
	})
}

// Delete permanently removes an assignment and its audit trail. Requires
// the caller's explicit confirmation; there is no undo.
func (s *RetakeService) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return appErrors.Clone(appErrors.ErrConfirmationRequired, "deletion discards the audit trail, pass confirm=true to proceed")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete retake assignment")
	}
	s.afterMutation(ctx, "")
	return nil
}

// Get returns one assignment with its student and exam resolved for
// display. A reference the directory no longer knows stays nil rather
// than failing the read.
func (s *RetakeService) Get(ctx context.Context, id string) (*dto.RetakeDetail, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load retake assignment")
	}

	detail := &dto.RetakeDetail{RetakeAssignment: *assignment}
	student, err := s.directory.GetStudent(ctx, assignment.StudentID)
	switch {
	case err == nil:
		detail.Student = student
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}
	exam, err := s.directory.GetExam(ctx, assignment.ExamID)
	switch {
	case err == nil:
		detail.Exam = exam
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve exam")
	}
	return detail, nil
}

// ListFiltered fetches the working set, applies the fine criteria and
// returns the narrowed set alongside per-student rollups. Rollups are
// recomputed on every call; nothing here is cached.
func (s *RetakeService) ListFiltered(ctx context.Context, query dto.ListQuery) (*dto.ListResult, error) {
	criteria, err := parseCriteria(query)
	if err != nil {
		return nil, err
	}

	coarse := models.RetakeListFilter{
		Status:   criteria.Status,
		ExamID:   criteria.ExamID,
		CourseID: criteria.CourseID,
	}
	workingSet, err := s.repo.List(ctx, coarse)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list retake assignments")
	}

	items := FilterWorkingSet(workingSet, criteria)
	return &dto.ListResult{Items: items, Rollups: Rollups(items)}, nil
}

// ManagementStatuses exposes the label catalog in order, for consumption
// only; the catalog's own lifecycle is owned elsewhere.
func (s *RetakeService) ManagementStatuses(ctx context.Context) ([]models.ManagementStatus, error) {
	statuses, err := s.directory.ListManagementStatuses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list management statuses")
	}
	return statuses, nil
}

func (s *RetakeService) mutate(ctx context.Context, id string, transition func(models.RetakeAssignment) (models.RetakeAssignment, models.HistoryEntry, error)) (*models.RetakeAssignment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load retake assignment")
	}

	updated, entry, err := transition(*current)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	params := repository.ApplyMutationParams{
		ID:               current.ID,
		ExpectedVersion:  current.Version,
		Status:           updated.Status,
		ScheduledDate:    updated.ScheduledDate,
		PostponeCount:    updated.PostponeCount,
		AbsentCount:      updated.AbsentCount,
		ManagementStatus: updated.ManagementStatus,
		UpdatedAt:        now,
		Entry:            &entry,
	}
	if err := s.repo.ApplyMutation(ctx, params); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			if s.metrics != nil {
				s.metrics.RecordConflict()
			}
			return nil, appErrors.ErrConflict
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrNotFound
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply retake mutation")
		}
	}

	updated.Version = current.Version + 1
	updated.UpdatedAt = now
	s.afterMutation(ctx, entry.Action)
	return &updated, nil
}

func (s *RetakeService) afterMutation(ctx context.Context, action models.HistoryAction) {
	if s.metrics != nil && action != "" {
		s.metrics.RecordMutation(action)
	}
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, feedCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate history feed cache", zap.Error(err))
	}
}

func parseCriteria(query dto.ListQuery) (Criteria, error) {
	criteria := Criteria{
		CourseID:         strings.TrimSpace(query.CourseID),
		ExamID:           strings.TrimSpace(query.ExamID),
		ManagementStatus: strings.TrimSpace(query.ManagementStatus),
		StudentName:      strings.TrimSpace(query.StudentName),
		HideCompleted:    query.HideCompleted,
		MinIncomplete:    query.MinIncomplete,
		MinTotal:         query.MinTotal,
		MinPostpones:     query.MinPostpones,
		MinAbsences:      query.MinAbsences,
		MinFlakiness:     query.MinFlakiness,
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := models.RetakeStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return Criteria{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status: %s", raw))
		}
		criteria.Status = status
	}
	if raw := strings.TrimSpace(query.ScheduledDate); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return Criteria{}, appErrors.Clone(appErrors.ErrValidation, "scheduledDate must be a YYYY-MM-DD date")
		}
		criteria.ScheduledDate = &date
	}
	return criteria, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

func actorID(actor *models.ActorClaims) *string {
	if actor == nil || actor.ActorID == "" {
		return nil
	}
	id := actor.ActorID
	return &id
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
