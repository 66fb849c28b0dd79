package recordoutcome

type Input struct {
	AssessmentID string `json:"assessmentId"`
	CandidateID  string `json:"candidateId"`

	Outcome              string   `json:"outcome"`
	ActualCost           *int64   `json:"actualCost,omitempty"`
	SatisfactionScore    *float64 `json:"satisfactionScore,omitempty"`
	RecommendWillingness *int     `json:"recommendWillingness,omitempty"`
	Feedback             string   `json:"feedback,omitempty"`

	NotifyEmail string `json:"notifyEmail,omitempty"`
	NotifyPhone string `json:"notifyPhone,omitempty"`
}

type Output struct {
	HistoryID   string `json:"historyId"`
	Outcome     string `json:"outcome"`
	FinalizedAt string `json:"finalizedAt"`
	Notified    bool   `json:"notified"`
}
