package grading

import (
	"sort"

	"github.com/noah-isme/sma-results-api/internal/models"
)

const (
	advancedBestCount = 3
	ordinaryBestCount = 7
)

// RequiredCount is the number of subjects counted toward the aggregate for a level.
func RequiredCount(level models.EducationLevel) int {
	if level == models.LevelAdvanced {
		return advancedBestCount
	}
	return ordinaryBestCount
}

// SelectBestSubset picks the subjects that make up the aggregate point total.
// Advanced-Level considers principal subjects only. The returned slice is ordered
// best first; missing is how many slots could not be filled.
func SelectBestSubset(subjects []models.ScoredSubject, level models.EducationLevel) (selected []models.ScoredSubject, missing int) {
	candidates := make([]models.ScoredSubject, 0, len(subjects))
	for _, subject := range subjects {
		if level == models.LevelAdvanced && !subject.Classification.Principal {
			continue
		}
		candidates = append(candidates, subject)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return betterSubject(candidates[i], candidates[j])
	})

	required := RequiredCount(level)
	if len(candidates) < required {
		return candidates, required - len(candidates)
	}
	return candidates[:required], 0
}

// betterSubject orders by points ascending, then marks descending, then subject code
// and id so the outcome never depends on the order rows came back from the store.
func betterSubject(a, b models.ScoredSubject) bool {
	if a.Points != b.Points {
		return a.Points < b.Points
	}
	if a.Marks != b.Marks {
		return a.Marks > b.Marks
	}
	if a.SubjectCode != b.SubjectCode {
		return a.SubjectCode < b.SubjectCode
	}
	return a.SubjectID < b.SubjectID
}

// SumPoints adds the points of the given subjects.
func SumPoints(subjects []models.ScoredSubject) int {
	total := 0
	for _, subject := range subjects {
		total += subject.Points
	}
	return total
}
