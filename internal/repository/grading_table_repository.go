package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// GradingTableRepository stores grade and division bands. Tables are only ever
// replaced whole, inside one transaction.
type GradingTableRepository struct {
	db *sqlx.DB
}

// NewGradingTableRepository constructs the repository.
func NewGradingTableRepository(db *sqlx.DB) *GradingTableRepository {
	return &GradingTableRepository{db: db}
}

// LoadGradeBands returns every stored grade band grouped by level.
func (r *GradingTableRepository) LoadGradeBands(ctx context.Context) ([]models.GradeBand, error) {
	const query = `SELECT education_level, grade, min_marks, max_marks, points, position
FROM grade_bands ORDER BY education_level ASC, position ASC`
	var bands []models.GradeBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, fmt.Errorf("load grade bands: %w", err)
	}
	return bands, nil
}

// LoadDivisionBands returns every stored division band grouped by level.
func (r *GradingTableRepository) LoadDivisionBands(ctx context.Context) ([]models.DivisionBand, error) {
	const query = `SELECT education_level, division, min_points, max_points, position
FROM division_bands ORDER BY education_level ASC, position ASC`
	var bands []models.DivisionBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, fmt.Errorf("load division bands: %w", err)
	}
	return bands, nil
}

// ReplaceGradeTable swaps the stored grade bands of one level.
func (r *GradingTableRepository) ReplaceGradeTable(ctx context.Context, table models.GradeTable) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grade table tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM grade_bands WHERE education_level = $1", table.Level); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear grade bands: %w", err)
	}
	const insert = `INSERT INTO grade_bands (education_level, grade, min_marks, max_marks, points, position)
VALUES (:education_level, :grade, :min_marks, :max_marks, :points, :position)`
	for i, band := range table.Bands {
		band.EducationLevel = table.Level
		band.Position = i + 1
		if _, err := tx.NamedExecContext(ctx, insert, band); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert grade band: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade table tx: %w", err)
	}
	return nil
}

// ReplaceDivisionTable swaps the stored division bands of one level.
func (r *GradingTableRepository) ReplaceDivisionTable(ctx context.Context, table models.DivisionTable) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin division table tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM division_bands WHERE education_level = $1", table.Level); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear division bands: %w", err)
	}
	const insert = `INSERT INTO division_bands (education_level, division, min_points, max_points, position)
VALUES (:education_level, :division, :min_points, :max_points, :position)`
	for i, band := range table.Bands {
		band.EducationLevel = table.Level
		band.Position = i + 1
		if _, err := tx.NamedExecContext(ctx, insert, band); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert division band: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit division table tx: %w", err)
	}
	return nil
}
