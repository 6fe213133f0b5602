package service

import (
	"time"

	"github.com/noah-isme/academy-retake-api/internal/models"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
)

// The transition functions below are the single authority on legal
// lifecycle moves. Each takes the current assignment by value and returns
// the mutated copy together with the audit entry derived from the same
// change, so persisted state and history cannot drift apart.
//
// The one rule that must never blur: Postpone is a penalized reschedule
// and increments postpone_count; EditDate is an administrative correction
// and leaves every counter untouched.

func newAssignment(studentID, examID string, date time.Time, note, actor *string, now time.Time) (models.RetakeAssignment, models.HistoryEntry) {
	assignment := models.RetakeAssignment{
		StudentID:     studentID,
		ExamID:        examID,
		Status:        models.RetakeStatusPending,
		ScheduledDate: cloneTime(&date),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	entry := models.HistoryEntry{
		Action:      models.HistoryActionAssign,
		NewDate:     cloneTime(&date),
		Note:        note,
		PerformedBy: actor,
		CreatedAt:   now,
	}
	return assignment, entry
}

func transitionPostpone(a models.RetakeAssignment, newDate time.Time, note, actor *string) (models.RetakeAssignment, models.HistoryEntry, error) {
	if !a.Status.Open() {
		return a, models.HistoryEntry{}, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot postpone a completed retake")
	}
	entry := models.HistoryEntry{
		RetakeID:     a.ID,
		Action:       models.HistoryActionPostpone,
		PreviousDate: cloneTime(a.ScheduledDate),
		NewDate:      cloneTime(&newDate),
		Note:         note,
		PerformedBy:  actor,
	}
	a.ScheduledDate = cloneTime(&newDate)
	a.PostponeCount++
	return a, entry, nil
}

func transitionMarkAbsent(a models.RetakeAssignment, note, actor *string) (models.RetakeAssignment, models.HistoryEntry, error) {
	if a.Status != models.RetakeStatusPending {
		return a, models.HistoryEntry{}, appErrors.Clone(appErrors.ErrInvalidTransition, "only a pending retake can be marked absent")
	}
	entry := models.HistoryEntry{
		RetakeID:       a.ID,
		Action:         models.HistoryActionAbsent,
		PreviousStatus: statusPtr(a.Status),
		NewStatus:      statusPtr(models.RetakeStatusAbsent),
		Note:           note,
		PerformedBy:    actor,
	}
	a.Status = models.RetakeStatusAbsent
	a.AbsentCount++
	return a, entry, nil
}

func transitionComplete(a models.RetakeAssignment, note, actor *string) (models.RetakeAssignment, models.HistoryEntry, error) {
	if !a.Status.Open() {
		return a, models.HistoryEntry{}, appErrors.Clone(appErrors.ErrInvalidTransition, "retake is already completed")
	}
	entry := models.HistoryEntry{
		RetakeID:       a.ID,
		Action:         models.HistoryActionComplete,
		PreviousStatus: statusPtr(a.Status),
		NewStatus:      statusPtr(models.RetakeStatusCompleted),
		Note:           note,
		PerformedBy:    actor,
	}
	a.Status = models.RetakeStatusCompleted
	return a, entry, nil
}

func transitionEditDate(a models.RetakeAssignment, newDate time.Time, note, actor *string) (models.RetakeAssignment, models.HistoryEntry, error) {
	if !a.Status.Open() {
		return a, models.HistoryEntry{}, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot edit the date of a completed retake")
	}
	entry := models.HistoryEntry{
		RetakeID:     a.ID,
		Action:       models.HistoryActionDateEdit,
		PreviousDate: cloneTime(a.ScheduledDate),
		NewDate:      cloneTime(&newDate),
		Note:         note,
		PerformedBy:  actor,
	}
	a.ScheduledDate = cloneTime(&newDate)
	return a, entry, nil
}

// transitionManagementStatus is legal in every state, including COMPLETED.
// Operational bookkeeping continues after the academic obligation ends;
// this is the single exception to the terminal-state lock.
func transitionManagementStatus(a models.RetakeAssignment, newStatus string, note, actor *string) (models.RetakeAssignment, models.HistoryEntry) {
	entry := models.HistoryEntry{
		RetakeID:                 a.ID,
		Action:                   models.HistoryActionManagementStatus,
		PreviousManagementStatus: cloneString(a.ManagementStatus),
		NewManagementStatus:      cloneString(&newStatus),
		Note:                     note,
		PerformedBy:              actor,
	}
	a.ManagementStatus = cloneString(&newStatus)
	return a, entry
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func statusPtr(s models.RetakeStatus) *models.RetakeStatus {
	return &s
}
