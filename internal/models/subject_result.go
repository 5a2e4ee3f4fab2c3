package models

import "time"

// SubjectResult stores the marks of one student for one subject in one exam.
// Grade and Points are derived from MarksObtained and kept denormalised.
type SubjectResult struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	ExamID         string         `db:"exam_id" json:"exam_id"`
	SubjectID      string         `db:"subject_id" json:"subject_id"`
	SubjectCode    string         `db:"subject_code" json:"subject_code,omitempty"`
	SubjectName    string         `db:"subject_name" json:"subject_name,omitempty"`
	EducationLevel EducationLevel `db:"education_level" json:"education_level"`
	MarksObtained  *float64       `db:"marks_obtained" json:"marks_obtained,omitempty"`
	Grade          *string        `db:"grade" json:"grade,omitempty"`
	Points         *int           `db:"points" json:"points,omitempty"`
	IsPrincipal    *bool          `db:"is_principal" json:"is_principal,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// SubjectResultFilter scopes result lookups. Empty fields are ignored and a zero
// Limit returns every matching row.
type SubjectResultFilter struct {
	StudentID      string
	ExamID         string
	SubjectID      string
	EducationLevel EducationLevel
	Limit          int
	Offset         int
}

// SubjectResultUpdate lists the columns to overwrite. Nil fields are left untouched.
type SubjectResultUpdate struct {
	MarksObtained *float64
	Grade         *string
	Points        *int
	IsPrincipal   *bool
}

// Empty reports whether the update carries no column.
func (u SubjectResultUpdate) Empty() bool {
	return u.MarksObtained == nil && u.Grade == nil && u.Points == nil && u.IsPrincipal == nil
}

// DuplicateKey identifies a (student, exam, subject) group.
type DuplicateKey struct {
	StudentID string `db:"student_id" json:"student_id"`
	ExamID    string `db:"exam_id" json:"exam_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}

// Less orders keys lexicographically by student, exam then subject.
func (k DuplicateKey) Less(other DuplicateKey) bool {
	if k.StudentID != other.StudentID {
		return k.StudentID < other.StudentID
	}
	if k.ExamID != other.ExamID {
		return k.ExamID < other.ExamID
	}
	return k.SubjectID < other.SubjectID
}
