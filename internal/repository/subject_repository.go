package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// SubjectRepository reads subjects and the declared subject combinations of students.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a subject or sql.ErrNoRows.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	const query = "SELECT id, code, name, principal_eligible FROM subjects WHERE id = $1"
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// CombinationForStudent returns the student's declared combination, or nil when none exists.
func (r *SubjectRepository) CombinationForStudent(ctx context.Context, studentID string) (*models.SubjectCombination, error) {
	var combination models.SubjectCombination
	const query = `SELECT id, student_id, code, principal_subject_ids, subsidiary_subject_ids
        FROM subject_combinations WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &combination, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find subject combination: %w", err)
	}
	return &combination, nil
}

// CombinationsForStudents returns the declared combinations keyed by student id.
// Students without a combination are absent from the map.
func (r *SubjectRepository) CombinationsForStudents(ctx context.Context, studentIDs []string) (map[string]*models.SubjectCombination, error) {
	result := make(map[string]*models.SubjectCombination, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}
	const query = `SELECT id, student_id, code, principal_subject_ids, subsidiary_subject_ids
        FROM subject_combinations WHERE student_id = ANY($1)`
	var combinations []models.SubjectCombination
	if err := r.db.SelectContext(ctx, &combinations, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list subject combinations: %w", err)
	}
	for i := range combinations {
		result[combinations[i].StudentID] = &combinations[i]
	}
	return result, nil
}
