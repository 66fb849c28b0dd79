package models

import "strings"

// CandidateKind distinguishes the two match-candidate variants.
type CandidateKind string

const (
	KindCoordinator CandidateKind = "COORDINATOR"
	KindFacility    CandidateKind = "FACILITY"
)

// LanguageSkill is one (language code, proficiency) entry.
type LanguageSkill struct {
	Code        string `json:"code"`
	Proficiency string `json:"proficiency"`
}

// GeoPoint is a WGS84 coordinate used by the distance strategy.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MatchCandidate is a point-in-time snapshot of a care coordinator or care
// facility. Capacity fields are mutated externally by case-assignment systems;
// the matching engine only reads.
type MatchCandidate struct {
	Kind CandidateKind `json:"kind"`
	ID   string        `json:"id"`
	Name string        `json:"name"`

	// Capability
	Specialties []string        `json:"specialties"`
	Regions     []string        `json:"regions"`
	Languages   []LanguageSkill `json:"languages"`

	// Availability
	WeekendAvailable   bool `json:"weekendAvailable"`
	EmergencyAvailable bool `json:"emergencyAvailable"`

	// Capacity: active cases / max cases for coordinators, occupancy /
	// total capacity for facilities.
	CurrentLoad int `json:"currentLoad"`
	MaxLoad     int `json:"maxLoad"`

	// Quality
	ExperienceYears int     `json:"experienceYears"`
	SuccessfulCases int     `json:"successfulCases"`
	Satisfaction    float64 `json:"satisfaction"` // 0.0 - 5.0

	// Facility-only quality fields
	EvaluationGrade string  `json:"evaluationGrade,omitempty"` // A (best) .. E
	EvaluationScore float64 `json:"evaluationScore,omitempty"` // 0 - 100
	MonthlyFee      int64   `json:"monthlyFee,omitempty"`

	Location *GeoPoint `json:"location,omitempty"`
}

// WorkloadRatio is currentLoad / maxLoad; above 1.0 means fully booked.
func (c *MatchCandidate) WorkloadRatio() float64 {
	if c.MaxLoad <= 0 {
		return 1.0
	}
	return float64(c.CurrentLoad) / float64(c.MaxLoad)
}

// SpeaksLanguage reports whether the candidate has a skill entry with the
// exact language code.
func (c *MatchCandidate) SpeaksLanguage(code string) bool {
	for _, l := range c.Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// ServesRegion reports whether the candidate's serviced-region set contains
// the region.
func (c *MatchCandidate) ServesRegion(region string) bool {
	for _, r := range c.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// grade ordering for the A (best) .. E (worst) evaluation scale.
var gradeRank = map[string]int{"A": 5, "B": 4, "C": 3, "D": 2, "E": 1}

// GradeAtLeast reports whether the candidate's evaluation grade is at least
// as good as min on the A>B>C>D>E scale. Candidates without a grade fail any
// floor.
func (c *MatchCandidate) GradeAtLeast(min string) bool {
	have, ok := gradeRank[strings.ToUpper(c.EvaluationGrade)]
	if !ok {
		return false
	}
	want, ok := gradeRank[strings.ToUpper(min)]
	if !ok {
		return false
	}
	return have >= want
}

// GradeScore maps the ordinal grade onto 0..1 for rating-based scoring when
// no numeric evaluation score is present.
func (c *MatchCandidate) GradeScore() float64 {
	rank, ok := gradeRank[strings.ToUpper(c.EvaluationGrade)]
	if !ok {
		return 0
	}
	return float64(rank-1) / 4.0
}
