package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

// DirectoryRepository reads the externally-owned student, exam/course and
// management-status directories. The retake engine never writes them.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetStudent resolves one student for display.
func (r *DirectoryRepository) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, phone FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// MissingStudents returns the subset of ids with no student record, so
// batch assignment can reject unresolvable references up front.
func (r *DirectoryRepository) MissingStudents(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id FROM students WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build students query: %w", err)
	}
	query = r.db.Rebind(query)

	var found []string
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}

	foundSet := make(map[string]struct{}, len(found))
	for _, id := range found {
		foundSet[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// GetExam resolves one exam with its course context.
func (r *DirectoryRepository) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT e.id, e.name, e.number, e.course_id, c.name AS course_name
	FROM exams e
	JOIN courses c ON c.id = e.course_id
	WHERE e.id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListManagementStatuses returns the label catalog in its defined order.
func (r *DirectoryRepository) ListManagementStatuses(ctx context.Context) ([]models.ManagementStatus, error) {
	const query = `SELECT id, name, color, position FROM management_statuses ORDER BY position ASC`
	var statuses []models.ManagementStatus
	if err := r.db.SelectContext(ctx, &statuses, query); err != nil {
		return nil, fmt.Errorf("list management statuses: %w", err)
	}
	return statuses, nil
}

// ManagementStatusExists checks catalog membership by name. The catalog is
// externally managed, so membership is validated at write time rather than
// enforced as a foreign key.
func (r *DirectoryRepository) ManagementStatusExists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM management_statuses WHERE name = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check management status: %w", err)
	}
	return exists, nil
}
