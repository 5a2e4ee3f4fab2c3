package models

// Class represents a teaching group such as "Form 5 PCM".
type Class struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	EducationLevel EducationLevel `db:"education_level" json:"education_level"`
	Form           string         `db:"form" json:"form"`
}
