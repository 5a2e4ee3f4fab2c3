package grading

import "github.com/noah-isme/sma-results-api/internal/models"

// Classify resolves whether a result counts as principal. The result's own flag wins,
// then the student's declared combination; without either the result is subsidiary.
func Classify(result models.SubjectResult, combination *models.SubjectCombination) models.Classification {
	if result.EducationLevel != models.LevelAdvanced {
		return models.Classification{Kind: models.ClassificationNotApplicable}
	}
	if result.IsPrincipal != nil {
		return models.Classification{Kind: models.ClassificationExplicit, Principal: *result.IsPrincipal}
	}
	if combination != nil {
		return models.Classification{Kind: models.ClassificationInferred, Principal: combination.HasPrincipal(result.SubjectID)}
	}
	return models.Classification{Kind: models.ClassificationUnclassified}
}
