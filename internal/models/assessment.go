package models

import (
	"fmt"
	"time"
)

// ADLLevel is an ordinal severity level for one activity-of-daily-living
// domain: 1 independent, 2 partial assistance, 3 full assistance.
type ADLLevel int

const (
	ADLIndependent       ADLLevel = 1
	ADLPartialAssistance ADLLevel = 2
	ADLFullAssistance    ADLLevel = 3
)

func (l ADLLevel) Valid() bool {
	return l >= ADLIndependent && l <= ADLFullAssistance
}

// MealType describes how the subject takes meals.
type MealType string

const (
	MealRegular MealType = "REGULAR"
	MealSoft    MealType = "SOFT"
	MealTube    MealType = "TUBE"
)

// CareTarget states who the care subject is relative to the requesting
// account.
type CareTarget string

const (
	CareTargetSelf   CareTarget = "SELF"
	CareTargetParent CareTarget = "PARENT"
	CareTargetSpouse CareTarget = "SPOUSE"
	CareTargetOther  CareTarget = "OTHER"
)

// CareAssessment is a raw health assessment of a care subject. Immutable once
// created; a new evaluation is a new record.
type CareAssessment struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`

	// ADL domain levels
	Mobility      ADLLevel `json:"mobility"`
	Eating        ADLLevel `json:"eating"`
	Toileting     ADLLevel `json:"toileting"`
	Communication ADLLevel `json:"communication"`

	// LTCIGrade is the long-term-care-insurance grade, 1 (most severe) to 6,
	// or nil when the subject has no grade.
	LTCIGrade *int `json:"ltciGrade,omitempty"`

	CareTarget          CareTarget `json:"careTarget,omitempty"`
	MealType            MealType   `json:"mealType,omitempty"`
	ChronicDiseases     []string   `json:"chronicDiseases,omitempty"`
	CognitiveDifficulty bool       `json:"cognitiveDifficulty"`

	CreatedAt time.Time `json:"createdAt"`

	// Derived, cached on the record by the normalizer.
	CareNeedScore     float64 `json:"careNeedScore"`
	CareSeverityLabel string  `json:"careSeverityLabel"`
}

// Validate checks the ordinal ranges of the raw inputs.
func (a *CareAssessment) Validate() error {
	for name, l := range map[string]ADLLevel{
		"mobility":      a.Mobility,
		"eating":        a.Eating,
		"toileting":     a.Toileting,
		"communication": a.Communication,
	} {
		if !l.Valid() {
			return fmt.Errorf("%s level %d outside {1,2,3}", name, l)
		}
	}
	if a.LTCIGrade != nil && (*a.LTCIGrade < 1 || *a.LTCIGrade > 6) {
		return fmt.Errorf("ltci grade %d outside {1..6}", *a.LTCIGrade)
	}
	return nil
}

// CareNeedSummary is the normalized, deterministic care-need representation
// the scoring pipeline works with.
type CareNeedSummary struct {
	Score               float64  `json:"score"`
	SeverityLabel       string   `json:"severityLabel"`
	RequiredSpecialties []string `json:"requiredSpecialties"`
}
