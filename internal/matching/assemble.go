package matching

import (
	"sort"

	"carematch/internal/models"
)

// scoredCandidate pairs a candidate with its strategy output before assembly.
type scoredCandidate struct {
	candidate models.MatchCandidate
	score     float64
	reason    string
}

// Assemble sorts scored candidates into the final ranked page. Order: score
// descending, ties by experience years (rating strategy: evaluation score)
// descending, then candidate id ascending. The id tie-break makes the result
// fully deterministic regardless of scoring order.
func Assemble(scored []scoredCandidate, maxResults int, kind StrategyKind) []models.MatchResult {
	sorted := make([]scoredCandidate, len(scored))
	copy(sorted, scored)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if kind == StrategyRating {
			if a.candidate.EvaluationScore != b.candidate.EvaluationScore {
				return a.candidate.EvaluationScore > b.candidate.EvaluationScore
			}
		} else if a.candidate.ExperienceYears != b.candidate.ExperienceYears {
			return a.candidate.ExperienceYears > b.candidate.ExperienceYears
		}
		return a.candidate.ID < b.candidate.ID
	})

	if maxResults > 0 && len(sorted) > maxResults {
		sorted = sorted[:maxResults]
	}

	results := make([]models.MatchResult, 0, len(sorted))
	for _, sc := range sorted {
		results = append(results, toResult(sc))
	}
	return results
}

func toResult(sc scoredCandidate) models.MatchResult {
	c := sc.candidate
	return models.MatchResult{
		CandidateID:        c.ID,
		Kind:               c.Kind,
		Name:               c.Name,
		Score:              sc.score,
		Score5:             sc.score * 5,
		Score100:           sc.score * 100,
		Reason:             sc.reason,
		WorkloadRatio:      c.WorkloadRatio(),
		Specialties:        append([]string(nil), c.Specialties...),
		Regions:            append([]string(nil), c.Regions...),
		Languages:          append([]models.LanguageSkill(nil), c.Languages...),
		WeekendAvailable:   c.WeekendAvailable,
		EmergencyAvailable: c.EmergencyAvailable,
		ExperienceYears:    c.ExperienceYears,
		EvaluationScore:    c.EvaluationScore,
		MonthlyFee:         c.MonthlyFee,
	}
}
