package matchingreport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carematch/internal/common/logger"
	"carematch/internal/matching/history"
	"carematch/internal/models"
)

type fakeLedger struct {
	rows []models.MatchingHistory
}

func (f *fakeLedger) InsertBatch(ctx context.Context, rows []models.MatchingHistory) error {
	return nil
}

func (f *fakeLedger) FindByAssessmentCandidate(ctx context.Context, assessmentID, candidateID string) (*models.MatchingHistory, error) {
	return nil, nil
}

func (f *fakeLedger) MarkEvent(ctx context.Context, historyID string, event models.EngagementEvent) error {
	return nil
}

func (f *fakeLedger) Finalize(ctx context.Context, historyID string, rec models.OutcomeRecord, at time.Time) (bool, error) {
	return false, nil
}

func (f *fakeLedger) ListBetween(ctx context.Context, from, to time.Time) ([]models.MatchingHistory, error) {
	var out []models.MatchingHistory
	for _, row := range f.rows {
		if !row.CreatedAt.Before(from) && row.CreatedAt.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	created := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	finalized := created.Add(time.Hour)

	ledger := &fakeLedger{rows: []models.MatchingHistory{
		{ID: "h-1", Rank: 1, Outcome: models.OutcomeSuccessful, CreatedAt: created, FinalizedAt: &finalized},
		{ID: "h-2", Rank: 4, Outcome: models.OutcomeFailed, CreatedAt: created, FinalizedAt: &finalized},
		{ID: "h-3", Rank: 2, Outcome: models.OutcomePending, CreatedAt: created},
	}}

	analytics := history.NewAnalytics(ledger, []int{1, 3})
	return NewHandler(LoadConfig(), analytics, logger.NewTestLogger(t))
}

func TestExecuteBuildsReport(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		From:        "2026-06-01",
		To:          "2026-07-01",
		Granularity: "day",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, output.TotalShown)
	assert.Equal(t, 2, output.TotalFinalized)
	assert.Equal(t, 1, output.Successful)
	assert.InDelta(t, 0.5, output.SuccessRate, 0.0001)
	require.Len(t, output.Trend, 1)
	assert.Equal(t, "2026-06-10", output.Trend[0].Bucket)
}

func TestExecuteDefaultsToDaily(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		From: "2026-06-01",
		To:   "2026-07-01",
	})
	require.NoError(t, err)
	require.Len(t, output.Trend, 1)
}

func TestExecuteValidation(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name  string
		input Input
	}{
		{name: "missing from", input: Input{To: "2026-07-01"}},
		{name: "bad date", input: Input{From: "June 1st", To: "2026-07-01"}},
		{name: "range too wide", input: Input{From: "2020-01-01", To: "2026-07-01"}},
		{name: "unknown granularity", input: Input{From: "2026-06-01", To: "2026-07-01", Granularity: "quarter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ANALYTICS_QUERY_FAILED")
		})
	}
}
