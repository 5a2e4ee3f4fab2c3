package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type reportResultReader interface {
	List(ctx context.Context, filter models.SubjectResultFilter) ([]models.SubjectResult, error)
	ListByExamAndClass(ctx context.Context, examID, classID string) ([]models.SubjectResult, error)
}

type reportStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type combinationReader interface {
	CombinationForStudent(ctx context.Context, studentID string) (*models.SubjectCombination, error)
	CombinationsForStudents(ctx context.Context, studentIDs []string) (map[string]*models.SubjectCombination, error)
}

// ReportOptions fixes the ranking conventions. The two report types rank differently
// and both choices are explicit.
type ReportOptions struct {
	StudentRankDense bool
	ClassRankDense   bool
	MissingPolicy    grading.MissingPolicy
}

// ReportService assembles student and class reports from stored results. Summaries
// are recomputed from marks with the current grading snapshot on every call.
type ReportService struct {
	results      reportResultReader
	students     reportStudentReader
	classes      classReader
	exams        examReader
	combinations combinationReader
	snapshots    snapshotSource
	opts         ReportOptions
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewReportService constructs the report assembler.
func NewReportService(results reportResultReader, students reportStudentReader, classes classReader, exams examReader, combinations combinationReader, snapshots snapshotSource, opts ReportOptions, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MissingPolicy == "" {
		opts.MissingPolicy = grading.MissingExclude
	}
	return &ReportService{
		results:      results,
		students:     students,
		classes:      classes,
		exams:        exams,
		combinations: combinations,
		snapshots:    snapshots,
		opts:         opts,
		metrics:      metrics,
		logger:       logger,
	}
}

// BuildStudentReport returns the result sheet of one student for one exam. A student
// without results gets an empty template rather than an error.
func (s *ReportService) BuildStudentReport(ctx context.Context, studentID, examID string) (report *models.StudentReport, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveReport("student", err, time.Since(started)) }()

	studentID, examID = strings.TrimSpace(studentID), strings.TrimSpace(examID)
	if studentID == "" || examID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and exam id are required")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, lookupError(err, "exam not found", "failed to load exam")
	}
	var class *models.Class
	if student.ClassID != "" {
		if class, err = s.classes.FindByID(ctx, student.ClassID); err != nil {
			return nil, lookupError(err, "class not found", "failed to load class")
		}
	}

	own, err := s.results.List(ctx, models.SubjectResultFilter{StudentID: studentID, ExamID: examID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	var combination *models.SubjectCombination
	if student.EducationLevel == models.LevelAdvanced {
		if combination, err = s.combinations.CombinationForStudent(ctx, studentID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject combination")
		}
	}

	snap := s.snapshots.Current()
	mine, err := assess(snap, *student, own, combination)
	if err != nil {
		return nil, translateGradingError(err)
	}

	report = &models.StudentReport{
		StudentID:      student.ID,
		StudentName:    student.FullName,
		AdmissionNo:    student.AdmissionNo,
		ClassID:        student.ClassID,
		ExamID:         exam.ID,
		ExamName:       exam.Name,
		EducationLevel: student.EducationLevel,
		Empty:          !mine.hasResults,
		Subjects:       mine.subjects,
		Summary:        mine.summary,
		Warnings:       mine.warnings,
	}
	if class != nil {
		report.ClassName = class.Name
	}
	s.recordWarnings(examID, mine.warnings)
	if !mine.hasResults {
		return report, nil
	}

	ranked, err := s.studentCohort(ctx, snap, student, examID, mine)
	if err != nil {
		return nil, err
	}
	report.Summary.Rank = grading.RankOf(ranked, student.ID)
	report.Summary.TotalStudents = len(ranked)
	return report, nil
}

// studentCohort ranks the student among classmates sitting the same exam.
func (s *ReportService) studentCohort(ctx context.Context, snap *grading.Snapshot, student *models.Student, examID string, mine *assessment) ([]grading.Ranked, error) {
	assessments := map[string]*assessment{student.ID: mine}
	ids := []string{student.ID}

	if student.ClassID != "" {
		classmates, err := s.students.ListByClass(ctx, student.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classmates")
		}
		results, err := s.results.ListByExamAndClass(ctx, examID, student.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class results")
		}
		combinations, err := s.combinationsFor(ctx, classmates)
		if err != nil {
			return nil, err
		}
		byStudent := groupByStudent(results)
		for _, classmate := range classmates {
			if classmate.ID == student.ID {
				continue
			}
			a, err := assess(snap, classmate, byStudent[classmate.ID], combinations[classmate.ID])
			if err != nil {
				// A classmate whose grades cannot be computed is left out of the cohort.
				s.logger.Warn("classmate skipped in ranking", zap.String("student_id", classmate.ID), zap.Error(err))
				continue
			}
			assessments[classmate.ID] = a
			ids = append(ids, classmate.ID)
		}
	}

	return grading.Rank(cohortEntries(assessments, ids), grading.RankOptions{
		Direction: grading.Descending,
		Dense:     s.opts.StudentRankDense,
		Missing:   s.opts.MissingPolicy,
	}), nil
}

// BuildClassReport assembles every student of a class for one exam together with
// class statistics. A student whose grades cannot be computed gets an error row.
func (s *ReportService) BuildClassReport(ctx context.Context, classID, examID string) (report *models.ClassReport, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveReport("class", err, time.Since(started)) }()

	classID, examID = strings.TrimSpace(classID), strings.TrimSpace(examID)
	if classID == "" || examID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id and exam id are required")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, lookupError(err, "exam not found", "failed to load exam")
	}
	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	results, err := s.results.ListByExamAndClass(ctx, examID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class results")
	}
	combinations, err := s.combinationsFor(ctx, students)
	if err != nil {
		return nil, err
	}

	snap := s.snapshots.Current()
	byStudent := groupByStudent(results)
	assessments := make(map[string]*assessment, len(students))
	failures := make(map[string]string)
	ids := make([]string, 0, len(students))
	var scored []*assessment
	report = &models.ClassReport{
		ClassID:        class.ID,
		ClassName:      class.Name,
		ExamID:         exam.ID,
		ExamName:       exam.Name,
		EducationLevel: class.EducationLevel,
		Subjects:       []models.SubjectStatistics{},
		Statistics: models.ClassStatistics{
			TotalStudents:        len(students),
			DivisionDistribution: map[string]int{},
		},
	}

	for _, student := range students {
		ids = append(ids, student.ID)
		a, err := assess(snap, student, byStudent[student.ID], combinations[student.ID])
		if err != nil {
			failures[student.ID] = appErrors.FromError(translateGradingError(err)).Message
			s.logger.Error("student skipped in class report",
				zap.String("class_id", classID), zap.String("exam_id", examID), zap.String("student_id", student.ID), zap.Error(err))
			continue
		}
		assessments[student.ID] = a
		report.Warnings = append(report.Warnings, a.warnings...)
		if a.hasResults {
			scored = append(scored, a)
		}
	}
	s.recordWarnings(examID, report.Warnings)

	ranked := grading.Rank(cohortEntries(assessments, ids), grading.RankOptions{
		Direction: grading.Descending,
		Dense:     s.opts.ClassRankDense,
		Missing:   s.opts.MissingPolicy,
	})

	rows := make([]models.ClassReportRow, 0, len(students))
	placed := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		a := assessments[r.StudentID]
		summary := a.summary
		summary.Rank = r.Rank
		summary.TotalStudents = len(ranked)
		rows = append(rows, classRow(a.student, summary, ""))
		placed[r.StudentID] = true
	}
	var unranked []models.ClassReportRow
	for _, student := range students {
		if placed[student.ID] {
			continue
		}
		if a, ok := assessments[student.ID]; ok {
			unranked = append(unranked, classRow(student, a.summary, ""))
			continue
		}
		unranked = append(unranked, classRow(student, emptySummary(), failures[student.ID]))
	}
	sort.SliceStable(unranked, func(i, j int) bool { return unranked[i].StudentID < unranked[j].StudentID })
	report.Students = append(rows, unranked...)

	var averages float64
	for _, a := range scored {
		averages += a.summary.AverageMarks
		report.Statistics.DivisionDistribution[a.summary.Division]++
	}
	report.Statistics.StudentsWithResults = len(scored)
	if len(scored) > 0 {
		report.Statistics.ClassAverage = round2(averages / float64(len(scored)))
		report.Subjects = subjectStatistics(scored)
	}
	return report, nil
}

func (s *ReportService) combinationsFor(ctx context.Context, students []models.Student) (map[string]*models.SubjectCombination, error) {
	var ids []string
	for _, student := range students {
		if student.EducationLevel == models.LevelAdvanced {
			ids = append(ids, student.ID)
		}
	}
	if len(ids) == 0 {
		return map[string]*models.SubjectCombination{}, nil
	}
	combinations, err := s.combinations.CombinationsForStudents(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject combinations")
	}
	return combinations, nil
}

func (s *ReportService) recordWarnings(examID string, warnings []models.DataQualityWarning) {
	for _, w := range warnings {
		s.metrics.RecordWarning(w.Code)
		s.logger.Warn("report data quality warning",
			zap.String("code", w.Code),
			zap.String("student_id", w.StudentID),
			zap.String("exam_id", examID),
			zap.String("result_id", w.ResultID),
			zap.String("message", w.Message),
		)
	}
}

func classRow(student models.Student, summary models.ReportSummary, failure string) models.ClassReportRow {
	return models.ClassReportRow{
		StudentID:   student.ID,
		StudentName: student.FullName,
		AdmissionNo: student.AdmissionNo,
		Summary:     summary,
		Error:       failure,
	}
}
