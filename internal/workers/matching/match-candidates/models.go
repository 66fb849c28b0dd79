package matchcandidates

import "carematch/internal/models"

type Input struct {
	AssessmentID string                    `json:"assessmentId"`
	Strategy     string                    `json:"strategy,omitempty"`
	Preference   models.MatchingPreference `json:"preference"`
}

type Output struct {
	Results  []models.MatchResult `json:"results"`
	Count    int                  `json:"count"`
	Strategy string               `json:"strategy"`
}
