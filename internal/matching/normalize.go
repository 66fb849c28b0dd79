// Package matching implements the care matching engine: normalization of raw
// assessments, hard-constraint filtering, pluggable scoring strategies and
// deterministic ranking.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"carematch/internal/common/config"
	"carematch/internal/common/errors"
	"carematch/internal/models"
)

// Normalizer converts a raw CareAssessment into a CareNeedSummary. It is a
// pure function of the four ADL levels and the LTCI grade: deterministic, and
// monotonic as long as every configured weight is non-negative.
type Normalizer struct {
	weights config.NeedWeights
}

func NewNormalizer(weights config.NeedWeights) *Normalizer {
	return &Normalizer{weights: weights}
}

// Normalize computes the care-need score, severity label and the specialties
// the need implies. Returns INVALID_ASSESSMENT when an ADL level or the LTCI
// grade is out of range.
func (n *Normalizer) Normalize(a *models.CareAssessment) (models.CareNeedSummary, error) {
	if err := a.Validate(); err != nil {
		return models.CareNeedSummary{}, errors.NewInvalidAssessmentError(err.Error())
	}

	score := 0.0
	score += n.weights.Mobility * float64(a.Mobility-1)
	score += n.weights.Eating * float64(a.Eating-1)
	score += n.weights.Toileting * float64(a.Toileting-1)
	score += n.weights.Communication * float64(a.Communication-1)

	if a.LTCIGrade != nil {
		// Grade 1 is the most severe; invert so severity adds.
		score += n.weights.LTCIGrade * float64(7-*a.LTCIGrade)
	}

	score += n.weights.ChronicDisease * float64(len(a.ChronicDiseases))

	if a.CognitiveDifficulty {
		score += n.weights.Cognitive
	}

	return models.CareNeedSummary{
		Score:               score,
		SeverityLabel:       severityLabel(score),
		RequiredSpecialties: n.requiredSpecialties(a),
	}, nil
}

// severityLabel maps the score onto a display grade. For display only; the
// scoring logic never reads it.
func severityLabel(score float64) string {
	switch {
	case score < 50:
		return "minimal care"
	case score < 100:
		return "light care"
	case score < 150:
		return "moderate care"
	case score < 220:
		return "severe care"
	default:
		return "critical care"
	}
}

// requiredSpecialties derives the specialty tags the need implies. Sorted so
// the summary is byte-stable for identical inputs.
func (n *Normalizer) requiredSpecialties(a *models.CareAssessment) []string {
	set := map[string]bool{}

	if a.Mobility >= models.ADLPartialAssistance {
		set["mobility-support"] = true
	}
	if a.Eating >= models.ADLPartialAssistance || a.MealType == models.MealTube {
		set["nutrition-care"] = true
	}
	if a.Toileting >= models.ADLPartialAssistance {
		set["daily-care"] = true
	}
	if a.Communication >= models.ADLPartialAssistance || a.CognitiveDifficulty {
		set["cognitive-care"] = true
	}

	for _, d := range a.ChronicDiseases {
		switch strings.ToLower(d) {
		case "dementia", "alzheimer":
			set["dementia-care"] = true
		case "stroke", "hemiplegia":
			set["rehabilitation"] = true
		default:
			set["chronic-care"] = true
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// FormatSeverity renders a short display line such as "moderate care (125.0)".
func FormatSeverity(s models.CareNeedSummary) string {
	return fmt.Sprintf("%s (%.1f)", s.SeverityLabel, s.Score)
}
