package models

import (
	"encoding/json"
	"time"
)

// MatchOutcome is the terminal state of a recommendation.
type MatchOutcome string

const (
	OutcomePending    MatchOutcome = "PENDING"
	OutcomeSuccessful MatchOutcome = "SUCCESSFUL"
	OutcomeFailed     MatchOutcome = "FAILED"
	OutcomeCancelled  MatchOutcome = "CANCELLED"
)

func (o MatchOutcome) Terminal() bool {
	return o == OutcomeSuccessful || o == OutcomeFailed || o == OutcomeCancelled
}

func (o MatchOutcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeSuccessful, OutcomeFailed, OutcomeCancelled:
		return true
	}
	return false
}

// EngagementEvent is a monotonic lifecycle step on a shown recommendation.
type EngagementEvent string

const (
	EventViewed    EngagementEvent = "VIEWED"
	EventContacted EngagementEvent = "CONTACTED"
	EventVisited   EngagementEvent = "VISITED"
	EventSelected  EngagementEvent = "SELECTED"
)

func (e EngagementEvent) Valid() bool {
	switch e {
	case EventViewed, EventContacted, EventVisited, EventSelected:
		return true
	}
	return false
}

// MatchingHistory is one shown recommendation and its lifecycle. Rows are
// append-only: engagement flags only ever move false -> true, and the outcome
// is set at most once.
type MatchingHistory struct {
	ID           string `json:"id"`
	BatchID      string `json:"batchId"`
	AssessmentID string `json:"assessmentId"`
	CandidateID  string `json:"candidateId"`

	Rank         int     `json:"rank"`
	InitialScore float64 `json:"initialScore"`

	// CandidateSnapshot and CriteriaSnapshot freeze the candidate and the
	// filter criteria as they were at recommendation time.
	CandidateSnapshot json.RawMessage `json:"candidateSnapshot"`
	CriteriaSnapshot  json.RawMessage `json:"criteriaSnapshot"`

	EstimatedCost int64 `json:"estimatedCost"`

	Viewed    bool `json:"viewed"`
	Contacted bool `json:"contacted"`
	Visited   bool `json:"visited"`
	Selected  bool `json:"selected"`

	Outcome              MatchOutcome `json:"outcome"`
	ActualCost           *int64       `json:"actualCost,omitempty"`
	SatisfactionScore    *float64     `json:"satisfactionScore,omitempty"`    // 0 - 5
	RecommendWillingness *int         `json:"recommendWillingness,omitempty"` // 1 - 5
	Feedback             string       `json:"feedback,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
}

// OutcomeRecord carries the terminal-state fields of recordOutcome.
type OutcomeRecord struct {
	Outcome              MatchOutcome `json:"outcome"`
	ActualCost           *int64       `json:"actualCost,omitempty"`
	SatisfactionScore    *float64     `json:"satisfactionScore,omitempty"`
	RecommendWillingness *int         `json:"recommendWillingness,omitempty"`
	Feedback             string       `json:"feedback,omitempty"`
}

// SimulationResult aggregates a synthetic what-if run of the match pipeline.
type SimulationResult struct {
	TotalCandidates   int     `json:"totalCandidates"`
	TotalAssessments  int     `json:"totalAssessments"`
	SuccessfulMatches int     `json:"successfulMatches"`
	AverageScore      float64 `json:"averageScore"`
	SuccessRate       float64 `json:"successRate"`
	ExecutionTimeMs   int64   `json:"executionTimeMs"`
}
