package recordengagement

type Input struct {
	AssessmentID string `json:"assessmentId"`
	CandidateID  string `json:"candidateId"`
	Event        string `json:"event"`
}

type Output struct {
	Recorded bool   `json:"recorded"`
	Event    string `json:"event"`
}
