package models

import "time"

// EducationLevel identifies the curriculum a student sits for.
type EducationLevel string

const (
	// LevelOrdinary is the Ordinary-Level curriculum (best 7 subjects).
	LevelOrdinary EducationLevel = "O_LEVEL"
	// LevelAdvanced is the Advanced-Level curriculum (best 3 principal subjects).
	LevelAdvanced EducationLevel = "A_LEVEL"
)

// EducationLevels lists every supported curriculum in display order.
var EducationLevels = []EducationLevel{LevelOrdinary, LevelAdvanced}

// Valid reports whether the level is one of the supported curricula.
func (l EducationLevel) Valid() bool {
	return l == LevelOrdinary || l == LevelAdvanced
}

const (
	// DivisionFail is the terminal division band.
	DivisionFail = "0"
	// DivisionNotApplicable is reported when a student has no results yet.
	DivisionNotApplicable = "N/A"
)

// GradeBand maps an inclusive marks range to a grade letter and point value.
type GradeBand struct {
	EducationLevel EducationLevel `db:"education_level" json:"education_level,omitempty"`
	Grade          string         `db:"grade" json:"grade" validate:"required,max=2"`
	MinMarks       int            `db:"min_marks" json:"min_marks" validate:"gte=0,lte=100"`
	MaxMarks       int            `db:"max_marks" json:"max_marks" validate:"gte=0,lte=100"`
	Points         int            `db:"points" json:"points" validate:"gte=1"`
	Position       int            `db:"position" json:"-"`
}

// DivisionBand maps an inclusive point-total range to a division code.
type DivisionBand struct {
	EducationLevel EducationLevel `db:"education_level" json:"education_level,omitempty"`
	Division       string         `db:"division" json:"division" validate:"required,max=4"`
	MinPoints      int            `db:"min_points" json:"min_points" validate:"gte=0"`
	MaxPoints      int            `db:"max_points" json:"max_points" validate:"gte=0"`
	Position       int            `db:"position" json:"-"`
}

// GradeTable is the ordered set of grade bands for one education level.
type GradeTable struct {
	Level EducationLevel `json:"education_level"`
	Bands []GradeBand    `json:"bands"`
}

// DivisionTable is the ordered set of division bands for one education level.
type DivisionTable struct {
	Level EducationLevel `json:"education_level"`
	Bands []DivisionBand `json:"bands"`
}

// GradingTables is the read view of the active grading configuration.
type GradingTables struct {
	Version   int64           `json:"version"`
	LoadedAt  time.Time       `json:"loaded_at"`
	Grades    []GradeTable    `json:"grades"`
	Divisions []DivisionTable `json:"divisions"`
}

// Derivation is the grade and point value derived from a mark.
type Derivation struct {
	Grade  string `json:"grade"`
	Points int    `json:"points"`
}
