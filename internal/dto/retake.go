package dto

import (
	"time"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

// AssignBatchRequest creates one assignment per student, all sharing the
// exam and initial date. Each sibling assignment is independent afterwards.
type AssignBatchRequest struct {
	ExamID        string   `json:"examId" validate:"required"`
	StudentIDs    []string `json:"studentIds" validate:"required,min=1,dive,required"`
	ScheduledDate string   `json:"scheduledDate" validate:"required"`
	Note          string   `json:"note"`
}

// PostponeRequest reschedules the retake date as a penalty, incrementing
// the postpone counter.
type PostponeRequest struct {
	NewDate string `json:"newDate" validate:"required"`
	Note    string `json:"note"`
}

// EditDateRequest corrects the retake date without penalty.
type EditDateRequest struct {
	NewDate string `json:"newDate" validate:"required"`
	Note    string `json:"note"`
}

// NoteRequest carries the optional operator note for markAbsent/complete.
type NoteRequest struct {
	Note string `json:"note"`
}

// ChangeManagementStatusRequest assigns a workflow label from the
// externally-managed catalog.
type ChangeManagementStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// ListQuery narrows the working set and drives per-student rollups.
// Threshold fields are minimums; zero disables the corresponding check.
type ListQuery struct {
	Status           string `form:"status"`
	CourseID         string `form:"courseId"`
	ExamID           string `form:"examId"`
	ManagementStatus string `form:"managementStatus"`
	ScheduledDate    string `form:"scheduledDate"`
	StudentName      string `form:"studentName"`
	HideCompleted    bool   `form:"hideCompleted"`
	MinIncomplete    int    `form:"minIncomplete"`
	MinTotal         int    `form:"minTotal"`
	MinPostpones     int    `form:"minPostpones"`
	MinAbsences      int    `form:"minAbsences"`
	MinFlakiness     int    `form:"minFlakiness"`
}

// RetakeDetail is the single-assignment view with its directory context
// resolved for display. Student and Exam stay nil when the directory no
// longer knows the reference.
type RetakeDetail struct {
	models.RetakeAssignment
	Student *models.Student `json:"student,omitempty"`
	Exam    *models.Exam    `json:"exam,omitempty"`
}

// ListResult pairs the filtered working set with its rollups.
type ListResult struct {
	Items   []models.RetakeListItem `json:"items"`
	Rollups []models.StudentRollup  `json:"rollups"`
}

// ConsistencyReport compares the stored assignment row against the state
// replayed from its audit trail.
type ConsistencyReport struct {
	RetakeID    string        `json:"retakeId"`
	Consistent  bool          `json:"consistent"`
	Divergences []string      `json:"divergences,omitempty"`
	Stored      ReplayedState `json:"stored"`
	Replayed    ReplayedState `json:"replayed"`
	EntryCount  int           `json:"entryCount"`
}

// ReplayedState is the replayable subset of an assignment's fields.
type ReplayedState struct {
	Status           models.RetakeStatus `json:"status"`
	ScheduledDate    *time.Time          `json:"scheduledDate,omitempty"`
	PostponeCount    int                 `json:"postponeCount"`
	AbsentCount      int                 `json:"absentCount"`
	ManagementStatus *string             `json:"managementStatus,omitempty"`
}
