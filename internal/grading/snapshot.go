package grading

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// Snapshot is an immutable view of the grade and division tables. Every
// calculation receives a snapshot; updates build a new one instead of editing bands.
type Snapshot struct {
	version   int64
	loadedAt  time.Time
	grades    map[models.EducationLevel][]models.GradeBand
	divisions map[models.EducationLevel][]models.DivisionBand
}

// NewSnapshot copies the given tables into a new snapshot. Tables are trusted
// as given; validation belongs to whoever accepts a table from an operator.
func NewSnapshot(grades []models.GradeTable, divisions []models.DivisionTable) *Snapshot {
	snap := &Snapshot{
		loadedAt:  time.Now().UTC(),
		grades:    make(map[models.EducationLevel][]models.GradeBand, len(grades)),
		divisions: make(map[models.EducationLevel][]models.DivisionBand, len(divisions)),
	}
	for _, table := range grades {
		snap.grades[table.Level] = normaliseGradeBands(table)
	}
	for _, table := range divisions {
		snap.divisions[table.Level] = normaliseDivisionBands(table)
	}
	return snap
}

// DefaultSnapshot holds the built-in tables for every level.
func DefaultSnapshot() *Snapshot {
	grades := make([]models.GradeTable, 0, len(models.EducationLevels))
	divisions := make([]models.DivisionTable, 0, len(models.EducationLevels))
	for _, level := range models.EducationLevels {
		grades = append(grades, DefaultGradeTable(level))
		divisions = append(divisions, DefaultDivisionTable(level))
	}
	return NewSnapshot(grades, divisions)
}

// Version is incremented by the registry on every swap.
func (s *Snapshot) Version() int64 { return s.version }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// GradeTable returns a copy of the grade table for level.
func (s *Snapshot) GradeTable(level models.EducationLevel) (models.GradeTable, bool) {
	bands, ok := s.grades[level]
	if !ok {
		return models.GradeTable{}, false
	}
	out := make([]models.GradeBand, len(bands))
	copy(out, bands)
	return models.GradeTable{Level: level, Bands: out}, true
}

// DivisionTable returns a copy of the division table for level.
func (s *Snapshot) DivisionTable(level models.EducationLevel) (models.DivisionTable, bool) {
	bands, ok := s.divisions[level]
	if !ok {
		return models.DivisionTable{}, false
	}
	out := make([]models.DivisionBand, len(bands))
	copy(out, bands)
	return models.DivisionTable{Level: level, Bands: out}, true
}

// WithGradeTable returns a new snapshot where the table for its level is replaced.
func (s *Snapshot) WithGradeTable(table models.GradeTable) *Snapshot {
	next := s.clone()
	next.grades[table.Level] = normaliseGradeBands(table)
	return next
}

// WithDivisionTable returns a new snapshot where the table for its level is replaced.
func (s *Snapshot) WithDivisionTable(table models.DivisionTable) *Snapshot {
	next := s.clone()
	next.divisions[table.Level] = normaliseDivisionBands(table)
	return next
}

// WorstPoints is the highest point value in the level's grade table.
func (s *Snapshot) WorstPoints(level models.EducationLevel) (int, bool) {
	bands, ok := s.grades[level]
	if !ok || len(bands) == 0 {
		return 0, false
	}
	worst := 0
	for _, band := range bands {
		if band.Points > worst {
			worst = band.Points
		}
	}
	return worst, true
}

// View renders the snapshot for API consumers.
func (s *Snapshot) View() models.GradingTables {
	view := models.GradingTables{Version: s.version, LoadedAt: s.loadedAt}
	for _, level := range s.levels() {
		if table, ok := s.GradeTable(level); ok {
			view.Grades = append(view.Grades, table)
		}
		if table, ok := s.DivisionTable(level); ok {
			view.Divisions = append(view.Divisions, table)
		}
	}
	return view
}

func (s *Snapshot) levels() []models.EducationLevel {
	seen := make(map[models.EducationLevel]bool)
	var levels []models.EducationLevel
	for level := range s.grades {
		seen[level] = true
		levels = append(levels, level)
	}
	for level := range s.divisions {
		if !seen[level] {
			levels = append(levels, level)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		loadedAt:  time.Now().UTC(),
		grades:    make(map[models.EducationLevel][]models.GradeBand, len(s.grades)),
		divisions: make(map[models.EducationLevel][]models.DivisionBand, len(s.divisions)),
	}
	// Band slices are never mutated after construction, so sharing them is safe.
	for level, bands := range s.grades {
		next.grades[level] = bands
	}
	for level, bands := range s.divisions {
		next.divisions[level] = bands
	}
	return next
}

// normaliseGradeBands orders bands best first (highest marks) and stamps level and position.
func normaliseGradeBands(table models.GradeTable) []models.GradeBand {
	bands := sortedGradeBands(table.Bands)
	out := make([]models.GradeBand, len(bands))
	for i := range bands {
		band := bands[len(bands)-1-i]
		band.EducationLevel = table.Level
		band.Position = i + 1
		out[i] = band
	}
	return out
}

// normaliseDivisionBands orders bands best first (lowest points) and stamps level and position.
func normaliseDivisionBands(table models.DivisionTable) []models.DivisionBand {
	bands := sortedDivisionBands(table.Bands)
	for i := range bands {
		bands[i].EducationLevel = table.Level
		bands[i].Position = i + 1
	}
	return bands
}

// Registry publishes the current snapshot. Readers never observe a half-replaced table.
type Registry struct {
	current atomic.Pointer[Snapshot]
	version atomic.Int64
}

// NewRegistry starts a registry at initial, or the defaults when nil.
func NewRegistry(initial *Snapshot) *Registry {
	r := &Registry{}
	if initial == nil {
		initial = DefaultSnapshot()
	}
	r.Swap(initial)
	return r
}

// Current returns the active snapshot.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Swap installs next and returns the snapshot it replaced.
func (r *Registry) Swap(next *Snapshot) *Snapshot {
	next.version = r.version.Add(1)
	return r.current.Swap(next)
}

// Version returns the version of the active snapshot.
func (r *Registry) Version() int64 {
	return r.Current().Version()
}
