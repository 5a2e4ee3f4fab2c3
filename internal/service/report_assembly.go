package service

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
)

// assessment is one student's computed standing for an exam.
type assessment struct {
	student    models.Student
	level      models.EducationLevel
	subjects   []models.ScoredSubject
	summary    models.ReportSummary
	warnings   []models.DataQualityWarning
	hasResults bool
}

// assess scores every result of one student, picks the best subset and resolves the
// division. Data problems become warnings; a table that cannot answer is an error.
func assess(snap *grading.Snapshot, student models.Student, results []models.SubjectResult, combination *models.SubjectCombination) (*assessment, error) {
	a := &assessment{student: student, level: student.EducationLevel}
	if !a.level.Valid() && len(results) > 0 {
		a.level = results[0].EducationLevel
	}

	for _, result := range results {
		if result.MarksObtained == nil {
			a.warn(models.WarningMissingMarks, "result has no marks recorded", result.ID)
			continue
		}
		level := result.EducationLevel
		if !level.Valid() {
			level = a.level
		}
		derived, err := snap.GradeAndPoints(*result.MarksObtained, level)
		if err != nil {
			if errors.Is(err, grading.ErrMarksOutOfRange) || errors.Is(err, grading.ErrUnknownLevel) {
				a.warn(models.WarningInvalidMarks, err.Error(), result.ID)
				continue
			}
			return nil, fmt.Errorf("student %s result %s: %w", student.ID, result.ID, err)
		}
		classification := grading.Classify(result, combination)
		a.subjects = append(a.subjects, models.ScoredSubject{
			ResultID:       result.ID,
			SubjectID:      result.SubjectID,
			SubjectCode:    result.SubjectCode,
			SubjectName:    result.SubjectName,
			Marks:          *result.MarksObtained,
			Grade:          derived.Grade,
			Points:         derived.Points,
			Classification: classification,
		})
	}
	if a.level == models.LevelAdvanced && combination == nil {
		a.warn(models.WarningMissingCombination, "no subject combination declared; unflagged subjects treated as subsidiary", "")
	}

	if len(a.subjects) == 0 {
		a.summary = emptySummary()
		a.subjects = []models.ScoredSubject{}
		return a, nil
	}
	a.hasResults = true

	agg, selected, err := snap.Aggregate(a.subjects, a.level)
	if err != nil {
		return nil, fmt.Errorf("student %s: %w", student.ID, err)
	}
	if a.level == models.LevelAdvanced && agg.MissingSlots > 0 {
		a.warn(models.WarningInsufficientPrincipals,
			fmt.Sprintf("%d of %d principal subjects available", agg.BestNCount, grading.RequiredCount(a.level)), "")
	}

	inBest := make(map[string]bool, len(selected))
	for _, subject := range selected {
		inBest[subject.ResultID] = true
	}
	summary := models.ReportSummary{
		SubjectCount:      len(a.subjects),
		BestNPoints:       agg.BestNPoints,
		BestNCount:        agg.BestNCount,
		MissingSlots:      agg.MissingSlots,
		Division:          agg.Division,
		GradeDistribution: make(map[string]int),
	}
	for i := range a.subjects {
		subject := &a.subjects[i]
		subject.InBestSubset = inBest[subject.ResultID]
		summary.TotalMarks += subject.Marks
		summary.TotalPoints += subject.Points
		summary.GradeDistribution[subject.Grade]++
	}
	summary.TotalMarks = round2(summary.TotalMarks)
	summary.AverageMarks = round2(summary.TotalMarks / float64(summary.SubjectCount))
	a.summary = summary
	return a, nil
}

func (a *assessment) warn(code, message, resultID string) {
	a.warnings = append(a.warnings, models.DataQualityWarning{
		Code:      code,
		Message:   message,
		StudentID: a.student.ID,
		ResultID:  resultID,
	})
}

// emptySummary is the zeroed summary of a student without usable results.
func emptySummary() models.ReportSummary {
	return models.ReportSummary{
		Division:          models.DivisionNotApplicable,
		GradeDistribution: map[string]int{},
	}
}

// cohortEntries turns assessments into ranking input keyed on average marks.
// Students whose computation failed are left out entirely.
func cohortEntries(assessments map[string]*assessment, studentIDs []string) []grading.CohortEntry {
	entries := make([]grading.CohortEntry, 0, len(studentIDs))
	for _, id := range studentIDs {
		a, ok := assessments[id]
		if !ok || a == nil {
			continue
		}
		entries = append(entries, grading.CohortEntry{
			StudentID: id,
			Key:       a.summary.AverageMarks,
			Missing:   !a.hasResults,
		})
	}
	return entries
}

// subjectStatistics aggregates marks per subject across the class.
func subjectStatistics(assessments []*assessment) []models.SubjectStatistics {
	byID := make(map[string]*models.SubjectStatistics)
	totals := make(map[string]float64)
	for _, a := range assessments {
		for _, subject := range a.subjects {
			stats, ok := byID[subject.SubjectID]
			if !ok {
				stats = &models.SubjectStatistics{
					SubjectID:   subject.SubjectID,
					SubjectCode: subject.SubjectCode,
					SubjectName: subject.SubjectName,
					MinMarks:    subject.Marks,
					MaxMarks:    subject.Marks,
				}
				byID[subject.SubjectID] = stats
			}
			stats.Students++
			totals[subject.SubjectID] += subject.Marks
			stats.MinMarks = math.Min(stats.MinMarks, subject.Marks)
			stats.MaxMarks = math.Max(stats.MaxMarks, subject.Marks)
		}
	}
	out := make([]models.SubjectStatistics, 0, len(byID))
	for id, stats := range byID {
		stats.MeanMarks = round2(totals[id] / float64(stats.Students))
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectCode != out[j].SubjectCode {
			return out[i].SubjectCode < out[j].SubjectCode
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out
}

func groupByStudent(results []models.SubjectResult) map[string][]models.SubjectResult {
	grouped := make(map[string][]models.SubjectResult)
	for _, result := range results {
		grouped[result.StudentID] = append(grouped[result.StudentID], result)
	}
	return grouped
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
