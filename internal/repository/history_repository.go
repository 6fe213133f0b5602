package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

// HistoryRepository reads the append-only retake audit trail. Appends only
// happen inside the same transaction as the assignment mutation, via the
// package-level insertHistory helper used by RetakeRepository.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// insertHistory appends one audit entry on the given executor, which is a
// transaction for every caller in this package. Entries are immutable after
// this insert; there is no update or single-row delete anywhere.
func insertHistory(ctx context.Context, ext sqlx.ExtContext, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO retake_history
	(id, retake_id, action, previous_date, new_date, previous_status, new_status,
	 previous_management_status, new_management_status, note, performed_by, created_at)
	VALUES (:id, :retake_id, :action, :previous_date, :new_date, :previous_status, :new_status,
	 :previous_management_status, :new_management_status, :note, :performed_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// ForAssignment returns the full audit trail of one assignment, oldest
// first, so it can be replayed from the ASSIGN entry.
func (r *HistoryRepository) ForAssignment(ctx context.Context, retakeID string) ([]models.HistoryEntry, error) {
	const query = `SELECT id, retake_id, action, previous_date, new_date, previous_status, new_status,
       previous_management_status, new_management_status, note, performed_by, created_at
	FROM retake_history WHERE retake_id = $1 ORDER BY created_at ASC, id ASC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, retakeID); err != nil {
		return nil, fmt.Errorf("list history for retake: %w", err)
	}
	return entries, nil
}

// Recent returns the newest entries across all assignments, joined with
// enough directory context to render the global activity feed.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]models.HistoryFeedEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT h.id, h.retake_id, h.action, h.previous_date, h.new_date, h.previous_status, h.new_status,
       h.previous_management_status, h.new_management_status, h.note, h.performed_by, h.created_at,
       s.full_name AS student_name, e.name AS exam_name, c.name AS course_name
	FROM retake_history h
	JOIN retake_assignments ra ON ra.id = h.retake_id
	JOIN students s ON s.id = ra.student_id
	JOIN exams e ON e.id = ra.exam_id
	JOIN courses c ON c.id = e.course_id
	ORDER BY h.created_at DESC, h.id DESC
	LIMIT $1`
	var entries []models.HistoryFeedEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list recent history: %w", err)
	}
	return entries, nil
}
