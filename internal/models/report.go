package models

// ClassificationKind records how a result was classified as principal or subsidiary.
type ClassificationKind string

const (
	// ClassificationExplicit means the result row carried the principal flag.
	ClassificationExplicit ClassificationKind = "EXPLICIT"
	// ClassificationInferred means the flag was taken from the student's subject combination.
	ClassificationInferred ClassificationKind = "INFERRED"
	// ClassificationUnclassified means neither source was available; treated as subsidiary.
	ClassificationUnclassified ClassificationKind = "UNCLASSIFIED"
	// ClassificationNotApplicable is used for Ordinary-Level results.
	ClassificationNotApplicable ClassificationKind = "NOT_APPLICABLE"
)

// Classification is resolved once per report build.
type Classification struct {
	Kind      ClassificationKind `json:"kind"`
	Principal bool               `json:"principal"`
}

// ScoredSubject is a result with its derivation and classification resolved.
type ScoredSubject struct {
	ResultID       string         `json:"result_id"`
	SubjectID      string         `json:"subject_id"`
	SubjectCode    string         `json:"subject_code"`
	SubjectName    string         `json:"subject_name"`
	Marks          float64        `json:"marks"`
	Grade          string         `json:"grade"`
	Points         int            `json:"points"`
	Classification Classification `json:"classification"`
	InBestSubset   bool           `json:"in_best_subset"`
}

// Warning codes attached to reports.
const (
	WarningMissingCombination     = "MISSING_SUBJECT_COMBINATION"
	WarningInsufficientPrincipals = "INSUFFICIENT_PRINCIPAL_SUBJECTS"
	WarningMissingMarks           = "MISSING_MARKS"
	WarningInvalidMarks           = "INVALID_MARKS"
)

// DataQualityWarning accompanies a best-effort report; it never blocks one.
type DataQualityWarning struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	StudentID string `json:"student_id,omitempty"`
	ResultID  string `json:"result_id,omitempty"`
}

// ReportSummary is derived on every request and never persisted.
type ReportSummary struct {
	SubjectCount      int            `json:"subject_count"`
	TotalMarks        float64        `json:"total_marks"`
	AverageMarks      float64        `json:"average_marks"`
	TotalPoints       int            `json:"total_points"`
	BestNPoints       int            `json:"best_n_points"`
	BestNCount        int            `json:"best_n_count"`
	MissingSlots      int            `json:"missing_slots"`
	Division          string         `json:"division"`
	Rank              int            `json:"rank"`
	TotalStudents     int            `json:"total_students"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

// StudentReport is the per-student result sheet for one exam.
type StudentReport struct {
	StudentID      string               `json:"student_id"`
	StudentName    string               `json:"student_name"`
	AdmissionNo    string               `json:"admission_no"`
	ClassID        string               `json:"class_id"`
	ClassName      string               `json:"class_name"`
	ExamID         string               `json:"exam_id"`
	ExamName       string               `json:"exam_name"`
	EducationLevel EducationLevel       `json:"education_level"`
	Empty          bool                 `json:"empty"`
	Subjects       []ScoredSubject      `json:"subjects"`
	Summary        ReportSummary        `json:"summary"`
	Warnings       []DataQualityWarning `json:"warnings,omitempty"`
}

// ClassReportRow is one student's line in a class report.
type ClassReportRow struct {
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	AdmissionNo string        `json:"admission_no"`
	Summary     ReportSummary `json:"summary"`
	Error       string        `json:"error,omitempty"`
}

// SubjectStatistics aggregates marks for one subject across a class.
type SubjectStatistics struct {
	SubjectID   string  `json:"subject_id"`
	SubjectCode string  `json:"subject_code"`
	SubjectName string  `json:"subject_name"`
	Students    int     `json:"students"`
	MeanMarks   float64 `json:"mean_marks"`
	MinMarks    float64 `json:"min_marks"`
	MaxMarks    float64 `json:"max_marks"`
}

// ClassStatistics holds class-wide aggregates.
type ClassStatistics struct {
	ClassAverage         float64        `json:"class_average"`
	StudentsWithResults  int            `json:"students_with_results"`
	TotalStudents        int            `json:"total_students"`
	DivisionDistribution map[string]int `json:"division_distribution"`
}

// ClassReport aggregates every student in a class for one exam.
type ClassReport struct {
	ClassID        string               `json:"class_id"`
	ClassName      string               `json:"class_name"`
	ExamID         string               `json:"exam_id"`
	ExamName       string               `json:"exam_name"`
	EducationLevel EducationLevel       `json:"education_level"`
	Students       []ClassReportRow     `json:"students"`
	Statistics     ClassStatistics      `json:"statistics"`
	Subjects       []SubjectStatistics  `json:"subjects"`
	Warnings       []DataQualityWarning `json:"warnings,omitempty"`
}
