package models

import "time"

// HistoryAction enumerates the audited mutation kinds.
type HistoryAction string

const (
	HistoryActionAssign           HistoryAction = "ASSIGN"
	HistoryActionPostpone         HistoryAction = "POSTPONE"
	HistoryActionAbsent           HistoryAction = "ABSENT"
	HistoryActionComplete         HistoryAction = "COMPLETE"
	HistoryActionDateEdit         HistoryAction = "DATE_EDIT"
	HistoryActionManagementStatus HistoryAction = "MANAGEMENT_STATUS_CHANGE"
)

// HistoryEntry is one immutable audit record of a single assignment
// mutation. Only the fields relevant to the action are populated. Entries
// are never updated or deleted while their assignment survives; replaying
// them from ASSIGN reconstructs the assignment state.
type HistoryEntry struct {
	ID                       string        `db:"id" json:"id"`
	RetakeID                 string        `db:"retake_id" json:"retakeId"`
	Action                   HistoryAction `db:"action" json:"action"`
	PreviousDate             *time.Time    `db:"previous_date" json:"previousDate,omitempty"`
	NewDate                  *time.Time    `db:"new_date" json:"newDate,omitempty"`
	PreviousStatus           *RetakeStatus `db:"previous_status" json:"previousStatus,omitempty"`
	NewStatus                *RetakeStatus `db:"new_status" json:"newStatus,omitempty"`
	PreviousManagementStatus *string       `db:"previous_management_status" json:"previousManagementStatus,omitempty"`
	NewManagementStatus      *string       `db:"new_management_status" json:"newManagementStatus,omitempty"`
	Note                     *string       `db:"note" json:"note,omitempty"`
	PerformedBy              *string       `db:"performed_by" json:"performedBy,omitempty"`
	CreatedAt                time.Time     `db:"created_at" json:"createdAt"`
}

// HistoryFeedEntry joins a history entry with denormalized directory
// context so the global activity feed can render without extra lookups.
type HistoryFeedEntry struct {
	HistoryEntry
	StudentName string `db:"student_name" json:"studentName"`
	ExamName    string `db:"exam_name" json:"examName"`
	CourseName  string `db:"course_name" json:"courseName"`
}
