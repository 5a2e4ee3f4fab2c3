package models

// DuplicateFinding lists every member of a (student, exam, subject) group with more than one row.
// ResultIDs are ordered oldest first; the first one is the survivor on repair.
type DuplicateFinding struct {
	DuplicateKey
	ResultIDs []string `json:"result_ids"`
}

// DerivationFinding is a row whose stored grade/points disagree with its marks.
type DerivationFinding struct {
	ResultID       string         `json:"result_id"`
	EducationLevel EducationLevel `json:"education_level"`
	Marks          float64        `json:"marks"`
	StoredGrade    *string        `json:"stored_grade,omitempty"`
	StoredPoints   *int           `json:"stored_points,omitempty"`
	ExpectedGrade  string         `json:"expected_grade,omitempty"`
	ExpectedPoints int            `json:"expected_points,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}

// Repairable reports whether an expected derivation could be computed.
func (f DerivationFinding) Repairable() bool {
	return f.ExpectedGrade != ""
}

// MissingFieldsFinding names the required columns a row lacks.
type MissingFieldsFinding struct {
	ResultID string   `json:"result_id"`
	Fields   []string `json:"fields"`
}

// OrphanFinding is a row whose student no longer exists.
type OrphanFinding struct {
	ResultID  string `json:"result_id"`
	StudentID string `json:"student_id"`
}

// DuplicateCheck is the outcome of the duplicate scan.
type DuplicateCheck struct {
	Findings []DuplicateFinding `json:"findings"`
	Count    int                `json:"count"`
}

// DerivationCheck is the outcome of the derivation scan.
type DerivationCheck struct {
	Findings []DerivationFinding `json:"findings"`
	Count    int                 `json:"count"`
}

// MissingFieldsCheck is the outcome of the required-field scan.
type MissingFieldsCheck struct {
	Findings []MissingFieldsFinding `json:"findings"`
	Count    int                    `json:"count"`
}

// OrphanCheck is the outcome of the orphan scan.
type OrphanCheck struct {
	Findings []OrphanFinding `json:"findings"`
	Count    int             `json:"count"`
}

// ConsistencyReport bundles the four checks.
type ConsistencyReport struct {
	Duplicates           DuplicateCheck     `json:"duplicates"`
	IncorrectDerivations DerivationCheck    `json:"incorrect_derivations"`
	MissingFields        MissingFieldsCheck `json:"missing_fields"`
	Orphans              OrphanCheck        `json:"orphans"`
	TotalIssues          int                `json:"total_issues"`
}

// RepairFailure records one record the repairer could not fix.
type RepairFailure struct {
	Step     string `json:"step"`
	ResultID string `json:"result_id"`
	Reason   string `json:"reason"`
}

// RepairStep is the outcome of one repair policy.
type RepairStep struct {
	Fixed    int             `json:"fixed"`
	Failed   int             `json:"failed"`
	Failures []RepairFailure `json:"failures,omitempty"`
}

// RepairReport summarises a repair run. Partial results are returned on cancellation.
type RepairReport struct {
	FixedDuplicates  int             `json:"fixed_duplicates"`
	FixedDerivations int             `json:"fixed_derivations"`
	FixedOrphans     int             `json:"fixed_orphans"`
	TotalFixed       int             `json:"total_fixed"`
	TotalFailed      int             `json:"total_failed"`
	Failures         []RepairFailure `json:"failures,omitempty"`
	DryRun           bool            `json:"dry_run"`
	Cancelled        bool            `json:"cancelled"`
}
