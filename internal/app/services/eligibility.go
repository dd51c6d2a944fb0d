package services

import (
	"math"

	"github.com/campusgpt/admission/internal/app/models"
)

// EvaluateEligibility scores an education record against a program's thresholds.
// The score is the mean of the FSc and matric percentages rounded to two
// decimals. The verdict holds when each percentage meets its own minimum.
// A missing record or missing criteria yields (0, false).
func EvaluateEligibility(edu *models.EducationRecord, criteria *models.AdmissionCriteria) (score float64, meetsCriteria bool) {
	if edu == nil || criteria == nil {
		return 0, false
	}

	score = round2((edu.FscPercentage + edu.MatricPercentage) / 2)
	meetsCriteria = edu.FscPercentage >= criteria.MinFscPercentage &&
		edu.MatricPercentage >= criteria.MinMatricPercentage
	return score, meetsCriteria
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
