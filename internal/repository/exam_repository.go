package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// ExamRepository reads exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// FindByID returns an exam or sql.ErrNoRows.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	var exam models.Exam
	const query = "SELECT id, academic_year_id, name, starts_on, ends_on FROM exams WHERE id = $1"
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find exam: %w", err)
	}
	return &exam, nil
}
