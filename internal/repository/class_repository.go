package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// ClassRepository reads classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class or sql.ErrNoRows.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	const query = "SELECT id, name, education_level, form FROM classes WHERE id = $1"
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}
