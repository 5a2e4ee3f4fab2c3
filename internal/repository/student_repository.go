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

const studentColumns = "id, admission_no, full_name, education_level, COALESCE(class_id, '') AS class_id, form"

// StudentRepository reads students for report assembly and orphan detection.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListByClass returns every student in the class ordered by id.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, "SELECT "+studentColumns+" FROM students WHERE class_id = $1 ORDER BY id ASC", classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}

// ExistingIDs returns the subset of ids that belong to a student.
func (r *StudentRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	if err := r.db.SelectContext(ctx, &found, "SELECT id FROM students WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("resolve student ids: %w", err)
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}
