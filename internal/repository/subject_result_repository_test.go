package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var subjectResultRowColumns = []string{"id", "student_id", "exam_id", "subject_id", "subject_code", "subject_name",
	"education_level", "marks_obtained", "grade", "points", "is_principal", "created_at", "updated_at"}

func TestSubjectResultRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(subjectResultRowColumns).
		AddRow("r1", "s1", "e1", "phy", "PHY", "Physics", "A_LEVEL", 92.0, "A", 1, true, now, now).
		AddRow("r2", "s1", "e1", "gs", "GS", "General Studies", "A_LEVEL", nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND sr.student_id = $1 AND sr.exam_id = $2 ORDER BY s.code ASC, sr.id ASC")).
		WithArgs("s1", "e1").
		WillReturnRows(rows)

	results, err := repo.List(context.Background(), models.SubjectResultFilter{StudentID: "s1", ExamID: "e1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 92.0, *results[0].MarksObtained)
	assert.True(t, *results[0].IsPrincipal)
	assert.Nil(t, results[1].MarksObtained)
	assert.Nil(t, results[1].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryListPageAndCount(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND sr.exam_id = $1 ORDER BY s.code ASC, sr.id ASC LIMIT 20 OFFSET 40")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(subjectResultRowColumns).
			AddRow("r41", "s9", "e1", "phy", "PHY", "Physics", "A_LEVEL", 61.0, "C", 3, false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM subject_results sr WHERE 1=1 AND sr.exam_id = $1")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	filter := models.SubjectResultFilter{ExamID: "e1", Limit: 20, Offset: 40}
	results, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r41", results[0].ID)

	total, err := repo.Count(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sr.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	mock.ExpectExec("INSERT INTO subject_results").
		WithArgs(sqlmock.AnyArg(), "s1", "e1", "math", "O_LEVEL", 82.0, "A", 1, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	marks, grade, points := 82.0, "A", 1
	result := &models.SubjectResult{StudentID: "s1", ExamID: "e1", SubjectID: "math", EducationLevel: models.LevelOrdinary,
		MarksObtained: &marks, Grade: &grade, Points: &points}
	require.NoError(t, repo.Insert(context.Background(), result))
	assert.NotEmpty(t, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryUpdateFields(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	grade, points := "A", 1
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subject_results SET updated_at = $1, grade = $2, points = $3 WHERE id = $4")).
		WithArgs(sqlmock.AnyArg(), "A", 1, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateFields(context.Background(), "r1", models.SubjectResultUpdate{Grade: &grade, Points: &points}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE subject_results SET updated_at = $1, grade = $2 WHERE id = $3")).
		WithArgs(sqlmock.AnyArg(), "A", "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateFields(context.Background(), "gone", models.SubjectResultUpdate{Grade: &grade})
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, repo.UpdateFields(context.Background(), "r1", models.SubjectResultUpdate{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryDeleteByIDs(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_results WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := repo.DeleteByIDs(context.Background(), []string{"r2", "r3"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = repo.DeleteByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryDeleteByID(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_results WHERE id = $1")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryScanChunk(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sr.id > $1 ORDER BY sr.id ASC LIMIT $2")).
		WithArgs("r1", 2).
		WillReturnRows(sqlmock.NewRows(subjectResultRowColumns).
			AddRow("r2", "s1", "e1", "math", "MATH", "Mathematics", "O_LEVEL", 70.0, "B", 2, nil, now, now).
			AddRow("r3", "", "e1", "math", "MATH", "Mathematics", "O_LEVEL", 50.0, "C", 3, nil, now, now))

	chunk, err := repo.ScanChunk(context.Background(), "r1", 2)
	require.NoError(t, err)
	require.Len(t, chunk, 2)
	assert.Equal(t, "r3", chunk[1].ID)
	assert.Empty(t, chunk[1].StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryDuplicateGroups(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("HAVING COUNT(*) > 1")).
		WithArgs("", "", "", 100).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "exam_id", "subject_id", "ids"}).
			AddRow("s1", "e1", "math", "{r1,r2}"))

	groups, err := repo.DuplicateGroups(context.Background(), models.DuplicateKey{}, 100)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"r1", "r2"}, groups[0].ResultIDs)
	assert.Equal(t, "math", groups[0].SubjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectResultRepositoryExistsForKey(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubjectResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM subject_results WHERE student_id = $1 AND exam_id = $2 AND subject_id = $3)")).
		WithArgs("s1", "e1", "math").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForKey(context.Background(), models.DuplicateKey{StudentID: "s1", ExamID: "e1", SubjectID: "math"})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
