package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-results-api/internal/models"
)

const subjectResultColumns = `sr.id, COALESCE(sr.student_id, '') AS student_id, COALESCE(sr.exam_id, '') AS exam_id,
        COALESCE(sr.subject_id, '') AS subject_id, COALESCE(s.code, '') AS subject_code, COALESCE(s.name, '') AS subject_name,
        COALESCE(sr.education_level, '') AS education_level, sr.marks_obtained, sr.grade, sr.points, sr.is_principal, sr.created_at, sr.updated_at`

const subjectResultFrom = `FROM subject_results sr
        LEFT JOIN subjects s ON s.id = sr.subject_id`

// SubjectResultRepository is the result store backed by PostgreSQL.
type SubjectResultRepository struct {
	db *sqlx.DB
}

// NewSubjectResultRepository creates a new result repository.
func NewSubjectResultRepository(db *sqlx.DB) *SubjectResultRepository {
	return &SubjectResultRepository{db: db}
}

func subjectResultWhere(filter models.SubjectResultFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.StudentID != "" {
		where += fmt.Sprintf(" AND sr.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.ExamID != "" {
		where += fmt.Sprintf(" AND sr.exam_id = $%d", len(args)+1)
		args = append(args, filter.ExamID)
	}
	if filter.SubjectID != "" {
		where += fmt.Sprintf(" AND sr.subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.EducationLevel != "" {
		where += fmt.Sprintf(" AND sr.education_level = $%d", len(args)+1)
		args = append(args, filter.EducationLevel)
	}
	return where, args
}

// List returns results matching the filter ordered by subject code. A positive
// Limit restricts the rows to one window starting at Offset.
func (r *SubjectResultRepository) List(ctx context.Context, filter models.SubjectResultFilter) ([]models.SubjectResult, error) {
	where, args := subjectResultWhere(filter)
	query := "SELECT " + subjectResultColumns + " " + subjectResultFrom + where + " ORDER BY s.code ASC, sr.id ASC"
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}
	var results []models.SubjectResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list subject results: %w", err)
	}
	return results, nil
}

// Count returns how many results match the filter. Limit and Offset are ignored.
func (r *SubjectResultRepository) Count(ctx context.Context, filter models.SubjectResultFilter) (int, error) {
	where, args := subjectResultWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subject_results sr"+where, args...); err != nil {
		return 0, fmt.Errorf("count subject results: %w", err)
	}
	return total, nil
}

// ListByExamAndClass returns every result of one exam for students currently in the class.
func (r *SubjectResultRepository) ListByExamAndClass(ctx context.Context, examID, classID string) ([]models.SubjectResult, error) {
	query := "SELECT " + subjectResultColumns + " " + subjectResultFrom + `
        JOIN students st ON st.id = sr.student_id
        WHERE sr.exam_id = $1 AND st.class_id = $2
        ORDER BY sr.student_id ASC, s.code ASC, sr.id ASC`
	var results []models.SubjectResult
	if err := r.db.SelectContext(ctx, &results, query, examID, classID); err != nil {
		return nil, fmt.Errorf("list class results: %w", err)
	}
	return results, nil
}

// FindByID returns a single result.
func (r *SubjectResultRepository) FindByID(ctx context.Context, id string) (*models.SubjectResult, error) {
	query := "SELECT " + subjectResultColumns + " " + subjectResultFrom + " WHERE sr.id = $1"
	var result models.SubjectResult
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject result: %w", err)
	}
	return &result, nil
}

// Insert stores a new result. The caller is expected to have derived grade and points.
func (r *SubjectResultRepository) Insert(ctx context.Context, result *models.SubjectResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now
	const query = `INSERT INTO subject_results (id, student_id, exam_id, subject_id, education_level, marks_obtained, grade, points, is_principal, created_at, updated_at)
        VALUES (:id, :student_id, :exam_id, :subject_id, :education_level, :marks_obtained, :grade, :points, :is_principal, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("insert subject result: %w", err)
	}
	return nil
}

// UpdateFields overwrites the non-nil columns of the update. It reports sql.ErrNoRows
// when the row no longer exists.
func (r *SubjectResultRepository) UpdateFields(ctx context.Context, id string, update models.SubjectResultUpdate) error {
	if update.Empty() {
		return nil
	}
	query := "UPDATE subject_results SET updated_at = $1"
	args := []interface{}{time.Now().UTC()}
	if update.MarksObtained != nil {
		args = append(args, *update.MarksObtained)
		query += fmt.Sprintf(", marks_obtained = $%d", len(args))
	}
	if update.Grade != nil {
		args = append(args, *update.Grade)
		query += fmt.Sprintf(", grade = $%d", len(args))
	}
	if update.Points != nil {
		args = append(args, *update.Points)
		query += fmt.Sprintf(", points = $%d", len(args))
	}
	if update.IsPrincipal != nil {
		args = append(args, *update.IsPrincipal)
		query += fmt.Sprintf(", is_principal = $%d", len(args))
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update subject result: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByID removes one result. Deleting a missing row is not an error.
func (r *SubjectResultRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM subject_results WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete subject result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete subject result: %w", err)
	}
	return affected > 0, nil
}

// DeleteByIDs removes many results and returns how many rows went away.
func (r *SubjectResultRepository) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM subject_results WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete subject results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete subject results: %w", err)
	}
	return int(affected), nil
}

// ScanChunk returns up to limit results with id greater than afterID, ordered by id.
// Callers page through the table by passing the last id of the previous chunk.
func (r *SubjectResultRepository) ScanChunk(ctx context.Context, afterID string, limit int) ([]models.SubjectResult, error) {
	query := "SELECT " + subjectResultColumns + " " + subjectResultFrom + " WHERE sr.id > $1 ORDER BY sr.id ASC LIMIT $2"
	var results []models.SubjectResult
	if err := r.db.SelectContext(ctx, &results, query, afterID, limit); err != nil {
		return nil, fmt.Errorf("scan subject results: %w", err)
	}
	return results, nil
}

type duplicateGroupRow struct {
	StudentID string         `db:"student_id"`
	ExamID    string         `db:"exam_id"`
	SubjectID string         `db:"subject_id"`
	IDs       pq.StringArray `db:"ids"`
}

// DuplicateGroups returns up to limit (student, exam, subject) groups with more than
// one row, ordered by key and starting after the given key. Member ids are ordered
// oldest first.
func (r *SubjectResultRepository) DuplicateGroups(ctx context.Context, after models.DuplicateKey, limit int) ([]models.DuplicateFinding, error) {
	const query = `SELECT student_id, exam_id, subject_id, array_agg(id ORDER BY created_at ASC, id ASC) AS ids
        FROM subject_results
        WHERE student_id IS NOT NULL AND exam_id IS NOT NULL AND subject_id IS NOT NULL
          AND (student_id, exam_id, subject_id) > ($1, $2, $3)
        GROUP BY student_id, exam_id, subject_id
        HAVING COUNT(*) > 1
        ORDER BY student_id ASC, exam_id ASC, subject_id ASC
        LIMIT $4`
	var rows []duplicateGroupRow
	if err := r.db.SelectContext(ctx, &rows, query, after.StudentID, after.ExamID, after.SubjectID, limit); err != nil {
		return nil, fmt.Errorf("group duplicate results: %w", err)
	}
	findings := make([]models.DuplicateFinding, 0, len(rows))
	for _, row := range rows {
		findings = append(findings, models.DuplicateFinding{
			DuplicateKey: models.DuplicateKey{StudentID: row.StudentID, ExamID: row.ExamID, SubjectID: row.SubjectID},
			ResultIDs:    []string(row.IDs),
		})
	}
	return findings, nil
}

// ExistsForKey reports whether a result already exists for the (student, exam, subject) key.
// The level is not part of the key so a student cannot hold the same subject twice in one exam.
func (r *SubjectResultRepository) ExistsForKey(ctx context.Context, key models.DuplicateKey) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subject_results WHERE student_id = $1 AND exam_id = $2 AND subject_id = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, key.StudentID, key.ExamID, key.SubjectID); err != nil {
		return false, fmt.Errorf("check subject result key: %w", err)
	}
	return exists, nil
}
