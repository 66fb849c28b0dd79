package matchingreport

import "carematch/internal/matching/history"

type Input struct {
	From        string `json:"from"` // RFC 3339 or 2006-01-02
	To          string `json:"to"`
	Granularity string `json:"granularity,omitempty"` // day, week, month
}

type Output struct {
	history.Report
}
