package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// memStore is an in-memory result store plus the lookup tables the services read.
type memStore struct {
	mu           sync.Mutex
	results      map[string]models.SubjectResult
	students     map[string]models.Student
	classes      map[string]models.Class
	exams        map[string]models.Exam
	subjects     map[string]models.Subject
	combinations map[string]*models.SubjectCombination

	failUpdate map[string]error
	failDelete map[string]error
	scans      int
	onScan     func(scans int)
	lastFilter models.SubjectResultFilter
}

func newMemStore() *memStore {
	return &memStore{
		results:      make(map[string]models.SubjectResult),
		students:     make(map[string]models.Student),
		classes:      make(map[string]models.Class),
		exams:        make(map[string]models.Exam),
		subjects:     make(map[string]models.Subject),
		combinations: make(map[string]*models.SubjectCombination),
		failUpdate:   make(map[string]error),
		failDelete:   make(map[string]error),
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }

var baseTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// addResult stores a row. Grade and points are stored exactly as given.
func (m *memStore) addResult(id, studentID, examID, subjectID string, level models.EducationLevel, marks *float64, grade *string, points *int) models.SubjectResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := models.SubjectResult{
		ID:             id,
		StudentID:      studentID,
		ExamID:         examID,
		SubjectID:      subjectID,
		EducationLevel: level,
		MarksObtained:  marks,
		Grade:          grade,
		Points:         points,
		CreatedAt:      baseTime.Add(time.Duration(len(m.results)) * time.Minute),
	}
	m.results[id] = row
	return row
}

func (m *memStore) withSubject(row models.SubjectResult) models.SubjectResult {
	if subject, ok := m.subjects[row.SubjectID]; ok {
		row.SubjectCode = subject.Code
		row.SubjectName = subject.Name
	}
	return row
}

func (m *memStore) sortedResults() []models.SubjectResult {
	out := make([]models.SubjectResult, 0, len(m.results))
	for _, row := range m.results {
		out = append(out, m.withSubject(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) matching(filter models.SubjectResultFilter) []models.SubjectResult {
	var out []models.SubjectResult
	for _, row := range m.sortedResults() {
		if filter.StudentID != "" && row.StudentID != filter.StudentID {
			continue
		}
		if filter.ExamID != "" && row.ExamID != filter.ExamID {
			continue
		}
		if filter.SubjectID != "" && row.SubjectID != filter.SubjectID {
			continue
		}
		if filter.EducationLevel != "" && row.EducationLevel != filter.EducationLevel {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (m *memStore) List(_ context.Context, filter models.SubjectResultFilter) ([]models.SubjectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	out := m.matching(filter)
	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[filter.Offset:end]
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context, filter models.SubjectResultFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(filter)), nil
}

func (m *memStore) ListByExamAndClass(_ context.Context, examID, classID string) ([]models.SubjectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SubjectResult
	for _, row := range m.sortedResults() {
		student, ok := m.students[row.StudentID]
		if !ok || student.ClassID != classID || row.ExamID != examID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*models.SubjectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.results[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	row = m.withSubject(row)
	return &row, nil
}

func (m *memStore) Insert(_ context.Context, result *models.SubjectResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CreatedAt = baseTime.Add(time.Duration(len(m.results)) * time.Minute)
	m.results[result.ID] = *result
	return nil
}

func (m *memStore) UpdateFields(_ context.Context, id string, update models.SubjectResultUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[id]; err != nil {
		return err
	}
	row, ok := m.results[id]
	if !ok {
		return sql.ErrNoRows
	}
	if update.MarksObtained != nil {
		row.MarksObtained = floatPtr(*update.MarksObtained)
	}
	if update.Grade != nil {
		row.Grade = strPtr(*update.Grade)
	}
	if update.Points != nil {
		row.Points = intPtr(*update.Points)
	}
	if update.IsPrincipal != nil {
		row.IsPrincipal = boolPtr(*update.IsPrincipal)
	}
	m.results[id] = row
	return nil
}

func (m *memStore) DeleteByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failDelete[id]; err != nil {
		return false, err
	}
	if _, ok := m.results[id]; !ok {
		return false, nil
	}
	delete(m.results, id)
	return true, nil
}

func (m *memStore) DeleteByIDs(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if err := m.failDelete[id]; err != nil {
			return 0, err
		}
	}
	deleted := 0
	for _, id := range ids {
		if _, ok := m.results[id]; ok {
			delete(m.results, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) ExistsForKey(_ context.Context, key models.DuplicateKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.results {
		if row.StudentID == key.StudentID && row.ExamID == key.ExamID && row.SubjectID == key.SubjectID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ScanChunk(_ context.Context, afterID string, limit int) ([]models.SubjectResult, error) {
	m.mu.Lock()
	m.scans++
	scans, hook := m.scans, m.onScan
	var out []models.SubjectResult
	for _, row := range m.sortedResults() {
		if row.ID <= afterID {
			continue
		}
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	m.mu.Unlock()
	if hook != nil {
		hook(scans)
	}
	return out, nil
}

func (m *memStore) DuplicateGroups(_ context.Context, after models.DuplicateKey, limit int) ([]models.DuplicateFinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	groups := make(map[models.DuplicateKey][]models.SubjectResult)
	for _, row := range m.results {
		if row.StudentID == "" || row.ExamID == "" || row.SubjectID == "" {
			continue
		}
		key := models.DuplicateKey{StudentID: row.StudentID, ExamID: row.ExamID, SubjectID: row.SubjectID}
		groups[key] = append(groups[key], row)
	}
	var keys []models.DuplicateKey
	for key, rows := range groups {
		if len(rows) > 1 && after.Less(key) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	if len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]models.DuplicateFinding, 0, len(keys))
	for _, key := range keys {
		rows := groups[key]
		sort.Slice(rows, func(i, j int) bool {
			if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
				return rows[i].CreatedAt.Before(rows[j].CreatedAt)
			}
			return rows[i].ID < rows[j].ID
		})
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		out = append(out, models.DuplicateFinding{DuplicateKey: key, ResultIDs: ids})
	}
	return out, nil
}

// memStudents exposes the student table through the student lookup interfaces.
type memStudents struct{ *memStore }

func (s memStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (s memStudents) ListByClass(_ context.Context, classID string) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Student
	for _, student := range s.students {
		if student.ClassID == classID {
			out = append(out, student)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memStudents) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]bool)
	for _, id := range ids {
		if _, ok := s.students[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

type memClasses struct{ *memStore }

func (c memClasses) FindByID(_ context.Context, id string) (*models.Class, error) {
	class, ok := c.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

type memExams struct{ *memStore }

func (e memExams) FindByID(_ context.Context, id string) (*models.Exam, error) {
	exam, ok := e.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &exam, nil
}

type memSubjects struct{ *memStore }

func (s memSubjects) FindByID(_ context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &subject, nil
}

func (s memSubjects) CombinationForStudent(_ context.Context, studentID string) (*models.SubjectCombination, error) {
	return s.combinations[studentID], nil
}

func (s memSubjects) CombinationsForStudents(_ context.Context, studentIDs []string) (map[string]*models.SubjectCombination, error) {
	out := make(map[string]*models.SubjectCombination)
	for _, id := range studentIDs {
		if combination, ok := s.combinations[id]; ok {
			out[id] = combination
		}
	}
	return out, nil
}
