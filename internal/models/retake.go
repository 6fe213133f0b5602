package models

import "time"

// RetakeStatus enumerates lifecycle states of a retake assignment.
type RetakeStatus string

const (
	RetakeStatusPending   RetakeStatus = "PENDING"
	RetakeStatusAbsent    RetakeStatus = "ABSENT"
	RetakeStatusCompleted RetakeStatus = "COMPLETED"
)

// Open reports whether the status still accepts lifecycle mutations.
func (s RetakeStatus) Open() bool {
	return s == RetakeStatusPending || s == RetakeStatusAbsent
}

// Valid reports whether the value is a known lifecycle status.
func (s RetakeStatus) Valid() bool {
	switch s {
	case RetakeStatusPending, RetakeStatusAbsent, RetakeStatusCompleted:
		return true
	default:
		return false
	}
}

// RetakeAssignment is one student's obligation to retake one exam.
// PostponeCount and AbsentCount only ever grow; Version backs optimistic
// concurrency control and is bumped on every mutation.
type RetakeAssignment struct {
	ID               string       `db:"id" json:"id"`
	StudentID        string       `db:"student_id" json:"studentId"`
	ExamID           string       `db:"exam_id" json:"examId"`
	Status           RetakeStatus `db:"status" json:"status"`
	ScheduledDate    *time.Time   `db:"scheduled_date" json:"scheduledDate,omitempty"`
	PostponeCount    int          `db:"postpone_count" json:"postponeCount"`
	AbsentCount      int          `db:"absent_count" json:"absentCount"`
	ManagementStatus *string      `db:"management_status" json:"managementStatus,omitempty"`
	Version          int          `db:"version" json:"-"`
	CreatedAt        time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updatedAt"`
}

// RetakeListItem joins an assignment with directory context for list views
// and aggregation.
type RetakeListItem struct {
	RetakeAssignment
	StudentName string `db:"student_name" json:"studentName"`
	ExamName    string `db:"exam_name" json:"examName"`
	CourseID    string `db:"course_id" json:"courseId"`
	CourseName  string `db:"course_name" json:"courseName"`
}

// RetakeListFilter is the coarse store-side filter that produces the
// working set; fine-grained criteria are applied in memory afterwards.
type RetakeListFilter struct {
	Status   RetakeStatus
	ExamID   string
	CourseID string
}

// StudentRollup aggregates one student's assignments within a working set.
// Counts are scoped to the set the rollup was computed from, not to the
// student's all-time record.
type StudentRollup struct {
	StudentID       string `json:"studentId"`
	StudentName     string `json:"studentName"`
	TotalCount      int    `json:"totalCount"`
	IncompleteCount int    `json:"incompleteCount"`
	PostponeSum     int    `json:"postponeSum"`
	AbsentSum       int    `json:"absentSum"`
	FlakinessScore  int    `json:"flakinessScore"`
}
