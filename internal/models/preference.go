package models

import "fmt"

// MatchingPreference carries the caller's hard constraints and paging for a
// single match request. Request-scoped and immutable.
type MatchingPreference struct {
	PreferredLanguage string `json:"preferredLanguage,omitempty"`
	PreferredRegion   string `json:"preferredRegion,omitempty"`

	MinSatisfaction float64 `json:"minSatisfaction"`

	NeedsWeekendAvailability     bool `json:"needsWeekendAvailability"`
	NeedsEmergencyAvailability   bool `json:"needsEmergencyAvailability"`
	NeedsProfessionalConsultancy bool `json:"needsProfessionalConsultancy"`

	// Facility-only constraints
	MaxMonthlyFee    *int64 `json:"maxMonthlyFee,omitempty"`
	MinFacilityGrade string `json:"minFacilityGrade,omitempty"`

	MaxResults int `json:"maxResults"`

	// Location anchors the distance-based strategy.
	Location *GeoPoint `json:"location,omitempty"`
}

// Validate rejects malformed preferences before any filtering or scoring runs.
func (p *MatchingPreference) Validate() error {
	if p.MaxResults <= 0 {
		return fmt.Errorf("maxResults must be > 0, got %d", p.MaxResults)
	}
	if p.MinSatisfaction < 0 || p.MinSatisfaction > 5 {
		return fmt.Errorf("minSatisfaction %.2f outside [0, 5]", p.MinSatisfaction)
	}
	if p.MaxMonthlyFee != nil && *p.MaxMonthlyFee < 0 {
		return fmt.Errorf("maxMonthlyFee must be non-negative")
	}
	if p.MinFacilityGrade != "" {
		if _, ok := gradeRank[p.MinFacilityGrade]; !ok {
			return fmt.Errorf("minFacilityGrade %q not in A..E", p.MinFacilityGrade)
		}
	}
	return nil
}

// MatchResult is one ranked recommendation returned to the caller. Candidate
// display fields are copied so the result stays stable after the pool moves on.
type MatchResult struct {
	CandidateID string        `json:"candidateId"`
	Kind        CandidateKind `json:"kind"`
	Name        string        `json:"name"`

	// Score is the normalized 0..1 match score; Score5 and Score100 are the
	// same computation on the two presentation scales.
	Score    float64 `json:"score"`
	Score5   float64 `json:"score5"`
	Score100 float64 `json:"score100"`

	Reason        string  `json:"reason"`
	WorkloadRatio float64 `json:"workloadRatio"`

	Specialties        []string        `json:"specialties"`
	Regions            []string        `json:"regions"`
	Languages          []LanguageSkill `json:"languages"`
	WeekendAvailable   bool            `json:"weekendAvailable"`
	EmergencyAvailable bool            `json:"emergencyAvailable"`
	ExperienceYears    int             `json:"experienceYears"`
	EvaluationScore    float64         `json:"evaluationScore,omitempty"`
	MonthlyFee         int64           `json:"monthlyFee,omitempty"`
}
