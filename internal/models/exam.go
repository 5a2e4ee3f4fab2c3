package models

import "time"

// Exam scopes a cohort together with a class.
type Exam struct {
	ID             string     `db:"id" json:"id"`
	AcademicYearID string     `db:"academic_year_id" json:"academic_year_id"`
	Name           string     `db:"name" json:"name"`
	StartsOn       *time.Time `db:"starts_on" json:"starts_on,omitempty"`
	EndsOn         *time.Time `db:"ends_on" json:"ends_on,omitempty"`
}
