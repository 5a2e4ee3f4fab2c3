package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type resultWriter interface {
	List(ctx context.Context, filter models.SubjectResultFilter) ([]models.SubjectResult, error)
	Count(ctx context.Context, filter models.SubjectResultFilter) (int, error)
	FindByID(ctx context.Context, id string) (*models.SubjectResult, error)
	Insert(ctx context.Context, result *models.SubjectResult) error
	UpdateFields(ctx context.Context, id string, update models.SubjectResultUpdate) error
	DeleteByID(ctx context.Context, id string) (bool, error)
	ExistsForKey(ctx context.Context, key models.DuplicateKey) (bool, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// ComputeRequest is the payload of a stateless grade lookup.
type ComputeRequest struct {
	Marks          *float64              `json:"marks" validate:"required"`
	EducationLevel models.EducationLevel `json:"education_level" validate:"required,oneof=O_LEVEL A_LEVEL"`
}

// RecordMarksRequest creates a result for one student, exam and subject.
type RecordMarksRequest struct {
	StudentID      string                `json:"student_id" validate:"required"`
	ExamID         string                `json:"exam_id" validate:"required"`
	SubjectID      string                `json:"subject_id" validate:"required"`
	EducationLevel models.EducationLevel `json:"education_level" validate:"omitempty,oneof=O_LEVEL A_LEVEL"`
	Marks          *float64              `json:"marks" validate:"required"`
	IsPrincipal    *bool                 `json:"is_principal"`
}

// CorrectMarksRequest changes the marks, and optionally the principal flag, of a result.
type CorrectMarksRequest struct {
	Marks       *float64 `json:"marks" validate:"required"`
	IsPrincipal *bool    `json:"is_principal"`
}

// ListResultsRequest scopes a result listing. At least one of student or exam is required.
type ListResultsRequest struct {
	StudentID      string                `validate:"required_without=ExamID"`
	ExamID         string                `validate:"required_without=StudentID"`
	SubjectID      string
	EducationLevel models.EducationLevel `validate:"omitempty,oneof=O_LEVEL A_LEVEL"`
	Page           int
	PageSize       int `validate:"omitempty,max=200"`
}

// ResultService records marks and keeps the derived grade and points in step with them.
type ResultService struct {
	results   resultWriter
	students  studentReader
	exams     examReader
	subjects  subjectReader
	snapshots snapshotSource
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs the service.
func NewResultService(results resultWriter, students studentReader, exams examReader, subjects subjectReader, snapshots snapshotSource, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:   results,
		students:  students,
		exams:     exams,
		subjects:  subjects,
		snapshots: snapshots,
		validator: validate,
		logger:    logger,
	}
}

// ComputeSubjectResult derives the grade and points for marks without touching the store.
func (s *ResultService) ComputeSubjectResult(ctx context.Context, req ComputeRequest) (*models.Derivation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid compute payload")
	}
	derived, err := s.snapshots.Current().GradeAndPoints(*req.Marks, req.EducationLevel)
	if err != nil {
		return nil, translateGradingError(err)
	}
	return &derived, nil
}

// ListResults returns one page of stored results ordered by subject code.
func (s *ResultService) ListResults(ctx context.Context, req ListResultsRequest) ([]models.SubjectResult, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result filter")
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 20
	}
	filter := models.SubjectResultFilter{
		StudentID:      req.StudentID,
		ExamID:         req.ExamID,
		SubjectID:      req.SubjectID,
		EducationLevel: req.EducationLevel,
		Limit:          size,
		Offset:         (page - 1) * size,
	}
	results, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	total, err := s.results.Count(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count results")
	}
	if results == nil {
		results = []models.SubjectResult{}
	}
	return results, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// RecordMarks stores a new result with grade and points derived from the marks.
func (s *ResultService) RecordMarks(ctx context.Context, req RecordMarksRequest) (*models.SubjectResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if _, err := s.exams.FindByID(ctx, req.ExamID); err != nil {
		return nil, lookupError(err, "exam not found", "failed to load exam")
	}
	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		return nil, lookupError(err, "subject not found", "failed to load subject")
	}

	level := student.EducationLevel
	if req.EducationLevel != "" && req.EducationLevel != level {
		return nil, appErrors.Clone(appErrors.ErrValidation, "education level does not match the student's level")
	}
	derived, err := s.snapshots.Current().GradeAndPoints(*req.Marks, level)
	if err != nil {
		return nil, translateGradingError(err)
	}

	key := models.DuplicateKey{StudentID: req.StudentID, ExamID: req.ExamID, SubjectID: req.SubjectID}
	exists, err := s.results.ExistsForKey(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing result")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "result already recorded for this student, exam and subject")
	}

	isPrincipal := req.IsPrincipal
	if level != models.LevelAdvanced {
		isPrincipal = nil
	} else if isPrincipal != nil && *isPrincipal && !subject.PrincipalEligible {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject cannot be taken as a principal subject")
	}

	marks := *req.Marks
	result := &models.SubjectResult{
		StudentID:      req.StudentID,
		ExamID:         req.ExamID,
		SubjectID:      req.SubjectID,
		SubjectCode:    subject.Code,
		SubjectName:    subject.Name,
		EducationLevel: level,
		MarksObtained:  &marks,
		Grade:          &derived.Grade,
		Points:         &derived.Points,
		IsPrincipal:    isPrincipal,
	}
	if err := s.results.Insert(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record result")
	}
	s.logger.Info("result recorded",
		zap.String("result_id", result.ID),
		zap.String("student_id", result.StudentID),
		zap.String("exam_id", result.ExamID),
		zap.String("grade", derived.Grade),
	)
	return result, nil
}

// CorrectMarks overwrites the marks of a result and re-derives its grade and points.
func (s *ResultService) CorrectMarks(ctx context.Context, id string, req CorrectMarksRequest) (*models.SubjectResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}
	existing, err := s.results.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "result not found", "failed to load result")
	}
	derived, err := s.snapshots.Current().GradeAndPoints(*req.Marks, existing.EducationLevel)
	if err != nil {
		return nil, translateGradingError(err)
	}

	marks := *req.Marks
	update := models.SubjectResultUpdate{MarksObtained: &marks, Grade: &derived.Grade, Points: &derived.Points}
	if existing.EducationLevel == models.LevelAdvanced {
		update.IsPrincipal = req.IsPrincipal
	}
	if err := s.results.UpdateFields(ctx, id, update); err != nil {
		return nil, lookupError(err, "result not found", "failed to correct result")
	}

	existing.MarksObtained = &marks
	existing.Grade = &derived.Grade
	existing.Points = &derived.Points
	if update.IsPrincipal != nil {
		existing.IsPrincipal = update.IsPrincipal
	}
	s.logger.Info("result corrected", zap.String("result_id", id), zap.Float64("marks", marks), zap.String("grade", derived.Grade))
	return existing, nil
}

// DeleteResult removes a result on explicit administrative request.
func (s *ResultService) DeleteResult(ctx context.Context, id string) error {
	deleted, err := s.results.DeleteByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete result")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "result not found")
	}
	s.logger.Info("result deleted", zap.String("result_id", id))
	return nil
}

func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
