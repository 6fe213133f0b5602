package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

// ErrVersionConflict signals that a mutation lost a concurrent-update race:
// the row exists but its version moved past the one the writer observed.
var ErrVersionConflict = errors.New("retake assignment version conflict")

// RetakeRepository persists retake assignments. Every mutating method runs
// the assignment write and its audit-trail append in one transaction so
// neither can land without the other.
type RetakeRepository struct {
	db *sqlx.DB
}

// NewRetakeRepository constructs the repository.
func NewRetakeRepository(db *sqlx.DB) *RetakeRepository {
	return &RetakeRepository{db: db}
}

const retakeColumns = `id, student_id, exam_id, status, scheduled_date, postpone_count, absent_count,
       management_status, version, created_at, updated_at`

// CreateBatch inserts sibling assignments and their ASSIGN history entries
// atomically. Entries must be index-aligned with assignments.
func (r *RetakeRepository) CreateBatch(ctx context.Context, assignments []*models.RetakeAssignment, entries []*models.HistoryEntry) (err error) {
	if len(assignments) == 0 {
		return nil
	}
	if len(assignments) != len(entries) {
		return fmt.Errorf("create batch: %d assignments but %d history entries", len(assignments), len(entries))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO retake_assignments
	(id, student_id, exam_id, status, scheduled_date, postpone_count, absent_count, management_status, version, created_at, updated_at)
	VALUES (:id, :student_id, :exam_id, :status, :scheduled_date, :postpone_count, :absent_count, :management_status, :version, :created_at, :updated_at)`
	for i, assignment := range assignments {
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		if assignment.CreatedAt.IsZero() {
			assignment.CreatedAt = time.Now().UTC()
		}
		assignment.UpdatedAt = assignment.CreatedAt
		if assignment.Version == 0 {
			assignment.Version = 1
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, query, assignment); err != nil {
			return fmt.Errorf("insert retake assignment: %w", err)
		}
		entries[i].RetakeID = assignment.ID
		if err = insertHistory(ctx, tx, entries[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create batch: %w", err)
	}
	return nil
}

// GetByID fetches one assignment.
func (r *RetakeRepository) GetByID(ctx context.Context, id string) (*models.RetakeAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM retake_assignments WHERE id = $1`, retakeColumns)
	var assignment models.RetakeAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// List returns the working set matching the coarse filter, joined with
// student/exam/course names, newest first. Fine-grained criteria and
// rollups are applied in memory by the aggregation layer.
func (r *RetakeRepository) List(ctx context.Context, filter models.RetakeListFilter) ([]models.RetakeListItem, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(`SELECT ra.id, ra.student_id, ra.exam_id, ra.status, ra.scheduled_date,
       ra.postpone_count, ra.absent_count, ra.management_status, ra.version, ra.created_at, ra.updated_at,
       s.full_name AS student_name, e.name AS exam_name, e.course_id, c.name AS course_name
	FROM retake_assignments ra
	JOIN students s ON s.id = ra.student_id
	JOIN exams e ON e.id = ra.exam_id
	JOIN courses c ON c.id = e.course_id`)

	conditions := make([]string, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("ra.status = $%d", len(args)))
	}
	if filter.ExamID != "" {
		args = append(args, filter.ExamID)
		conditions = append(conditions, fmt.Sprintf("ra.exam_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY ra.created_at DESC, ra.id DESC")

	var items []models.RetakeListItem
	if err := r.db.SelectContext(ctx, &items, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list retake assignments: %w", err)
	}
	return items, nil
}

// ApplyMutationParams carries the post-transition assignment state, the
// version the writer validated against, and the audit entry derived from
// the same transition.
type ApplyMutationParams struct {
	ID               string
	ExpectedVersion  int
	Status           models.RetakeStatus
	ScheduledDate    *time.Time
	PostponeCount    int
	AbsentCount      int
	ManagementStatus *string
	UpdatedAt        time.Time
	Entry            *models.HistoryEntry
}

// ApplyMutation writes the new assignment state and appends the matching
// history entry in one transaction. The version predicate makes a losing
// concurrent writer fail with ErrVersionConflict instead of silently
// overwriting state it never observed.
func (r *RetakeRepository) ApplyMutation(ctx context.Context, params ApplyMutationParams) (err error) {
	if params.Entry == nil {
		return fmt.Errorf("apply mutation: history entry is required")
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply mutation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE retake_assignments
	SET status = $1, scheduled_date = $2, postpone_count = $3, absent_count = $4,
	    management_status = $5, version = version + 1, updated_at = $6
	WHERE id = $7 AND version = $8`
	result, err := tx.ExecContext(ctx, query,
		params.Status, params.ScheduledDate, params.PostponeCount, params.AbsentCount,
		params.ManagementStatus, params.UpdatedAt, params.ID, params.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update retake assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check retake update rows: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM retake_assignments WHERE id = $1)`, params.ID); err != nil {
			return fmt.Errorf("check retake existence: %w", err)
		}
		if exists {
			err = ErrVersionConflict
		} else {
			err = sql.ErrNoRows
		}
		return err
	}

	params.Entry.RetakeID = params.ID
	if err = insertHistory(ctx, tx, params.Entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit apply mutation: %w", err)
	}
	return nil
}

// Delete removes an assignment and its entire audit trail. This is the
// one place history is discarded; it is an administrative, irreversible
// operation guarded by an explicit confirmation upstream.
func (r *RetakeRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete retake: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM retake_history WHERE retake_id = $1`, id); err != nil {
		return fmt.Errorf("delete retake history: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM retake_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete retake assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check retake delete rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete retake: %w", err)
	}
	return nil
}
