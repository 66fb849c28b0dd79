package simulatematching

import "carematch/internal/models"

type Input struct {
	Candidates  int    `json:"candidates"`
	Assessments int    `json:"assessments"`
	Seed        int64  `json:"seed"`
	Strategy    string `json:"strategy,omitempty"`
	MaxResults  int    `json:"maxResults,omitempty"`
}

type Output struct {
	models.SimulationResult
}
