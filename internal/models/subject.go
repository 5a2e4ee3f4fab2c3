package models

import "github.com/lib/pq"

// Subject is an academic subject. PrincipalEligible only matters for Advanced-Level.
type Subject struct {
	ID                string `db:"id" json:"id"`
	Code              string `db:"code" json:"code"`
	Name              string `db:"name" json:"name"`
	PrincipalEligible bool   `db:"principal_eligible" json:"principal_eligible"`
}

// SubjectCombination is the declared subject set of an Advanced-Level student.
type SubjectCombination struct {
	ID                   string         `db:"id" json:"id"`
	StudentID            string         `db:"student_id" json:"student_id"`
	Code                 string         `db:"code" json:"code"`
	PrincipalSubjectIDs  pq.StringArray `db:"principal_subject_ids" json:"principal_subject_ids"`
	SubsidiarySubjectIDs pq.StringArray `db:"subsidiary_subject_ids" json:"subsidiary_subject_ids"`
}

// HasPrincipal reports whether the subject is declared as principal.
func (c *SubjectCombination) HasPrincipal(subjectID string) bool {
	if c == nil {
		return false
	}
	for _, id := range c.PrincipalSubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}
