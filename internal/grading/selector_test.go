package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func principal(code string, marks float64, points int) models.ScoredSubject {
	return models.ScoredSubject{
		SubjectID:      "sub-" + code,
		SubjectCode:    code,
		Marks:          marks,
		Points:         points,
		Classification: models.Classification{Kind: models.ClassificationExplicit, Principal: true},
	}
}

func subsidiary(code string, marks float64, points int) models.ScoredSubject {
	s := principal(code, marks, points)
	s.Classification.Principal = false
	return s
}

func ordinary(code string, marks float64, points int) models.ScoredSubject {
	s := principal(code, marks, points)
	s.Classification = models.Classification{Kind: models.ClassificationNotApplicable}
	return s
}

func codes(subjects []models.ScoredSubject) []string {
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, s.SubjectCode)
	}
	return out
}

func TestSelectBestSubsetAdvancedLevel(t *testing.T) {
	subjects := []models.ScoredSubject{
		principal("CHE", 50, 4),
		principal("PHY", 92, 1),
		subsidiary("BAM", 99, 1),
		principal("MAT", 65, 3),
		principal("BIO", 78, 2),
	}

	selected, missing := SelectBestSubset(subjects, models.LevelAdvanced)
	assert.Equal(t, 0, missing)
	assert.Equal(t, []string{"PHY", "BIO", "MAT"}, codes(selected))
	assert.Equal(t, 6, SumPoints(selected))
}

func TestSelectBestSubsetTieBreaks(t *testing.T) {
	subjects := []models.ScoredSubject{
		ordinary("KIS", 70, 2),
		ordinary("ENG", 72, 2),
		ordinary("BIO", 70, 2),
	}
	selected, _ := SelectBestSubset(subjects, models.LevelOrdinary)
	assert.Equal(t, []string{"ENG", "BIO", "KIS"}, codes(selected))

	// Input order must not matter.
	reversed := []models.ScoredSubject{subjects[2], subjects[1], subjects[0]}
	again, _ := SelectBestSubset(reversed, models.LevelOrdinary)
	assert.Equal(t, codes(selected), codes(again))
}

func TestSelectBestSubsetOrdinaryTakesSeven(t *testing.T) {
	var subjects []models.ScoredSubject
	for i, code := range []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8", "S9"} {
		subjects = append(subjects, ordinary(code, float64(90-i*5), 1+i/2))
	}
	selected, missing := SelectBestSubset(subjects, models.LevelOrdinary)
	assert.Equal(t, 0, missing)
	require.Len(t, selected, 7)
	assert.Equal(t, []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7"}, codes(selected))
}

func TestSelectBestSubsetDegenerate(t *testing.T) {
	subjects := []models.ScoredSubject{principal("PHY", 80, 1), subsidiary("GS", 90, 1)}
	selected, missing := SelectBestSubset(subjects, models.LevelAdvanced)
	assert.Len(t, selected, 1)
	assert.Equal(t, 2, missing)

	selected, missing = SelectBestSubset(nil, models.LevelOrdinary)
	assert.Empty(t, selected)
	assert.Equal(t, 7, missing)
}

func TestSelectBestSubsetNoExcludedSubjectIsBetter(t *testing.T) {
	points := []int{5, 3, 1, 4, 2, 5, 3, 1, 2, 4}
	var subjects []models.ScoredSubject
	for i, p := range points {
		subjects = append(subjects, ordinary(string(rune('A'+i)), float64(40+i), p))
	}
	selected, _ := SelectBestSubset(subjects, models.LevelOrdinary)
	require.Len(t, selected, 7)

	chosen := make(map[string]bool)
	worstIncluded := 0
	for _, s := range selected {
		chosen[s.SubjectCode] = true
		if s.Points > worstIncluded {
			worstIncluded = s.Points
		}
	}
	for _, s := range subjects {
		if !chosen[s.SubjectCode] {
			assert.GreaterOrEqual(t, s.Points, worstIncluded)
		}
	}
}

func TestClassify(t *testing.T) {
	yes := true
	combo := &models.SubjectCombination{PrincipalSubjectIDs: []string{"phy"}}

	explicit := Classify(models.SubjectResult{EducationLevel: models.LevelAdvanced, SubjectID: "bam", IsPrincipal: &yes}, combo)
	assert.Equal(t, models.Classification{Kind: models.ClassificationExplicit, Principal: true}, explicit)

	inferred := Classify(models.SubjectResult{EducationLevel: models.LevelAdvanced, SubjectID: "phy"}, combo)
	assert.Equal(t, models.Classification{Kind: models.ClassificationInferred, Principal: true}, inferred)

	notDeclared := Classify(models.SubjectResult{EducationLevel: models.LevelAdvanced, SubjectID: "gs"}, combo)
	assert.Equal(t, models.Classification{Kind: models.ClassificationInferred}, notDeclared)

	unclassified := Classify(models.SubjectResult{EducationLevel: models.LevelAdvanced, SubjectID: "phy"}, nil)
	assert.Equal(t, models.Classification{Kind: models.ClassificationUnclassified}, unclassified)

	ordinaryLevel := Classify(models.SubjectResult{EducationLevel: models.LevelOrdinary, IsPrincipal: &yes}, combo)
	assert.Equal(t, models.ClassificationNotApplicable, ordinaryLevel.Kind)
}
