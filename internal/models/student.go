package models

// Student is the read model of a learner as the results engine sees it.
type Student struct {
	ID             string         `db:"id" json:"id"`
	AdmissionNo    string         `db:"admission_no" json:"admission_no"`
	FullName       string         `db:"full_name" json:"full_name"`
	EducationLevel EducationLevel `db:"education_level" json:"education_level"`
	ClassID        string         `db:"class_id" json:"class_id"`
	Form           string         `db:"form" json:"form"`
}
