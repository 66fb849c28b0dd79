package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carematch/internal/models"
)

func seedRow(s *memStore, id string, rank int, createdAt time.Time, outcome models.MatchOutcome, satisfaction float64) {
	row := &models.MatchingHistory{
		ID:           id,
		AssessmentID: "assessment-" + id,
		CandidateID:  "candidate-" + id,
		Rank:         rank,
		Outcome:      models.OutcomePending,
		CreatedAt:    createdAt,
	}
	if outcome != "" {
		at := createdAt.Add(time.Minute)
		row.Outcome = outcome
		row.FinalizedAt = &at
		// A decided outcome implies the user picked this candidate.
		row.Selected = outcome == models.OutcomeSuccessful || outcome == models.OutcomeFailed
		if satisfaction > 0 {
			row.SatisfactionScore = &satisfaction
		}
	}
	s.rows[id] = row
}

func TestBuildReportAggregates(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	seedRow(store, "h-1", 1, base, models.OutcomeSuccessful, 4.0)
	seedRow(store, "h-2", 2, base.Add(time.Hour), models.OutcomeFailed, 2.0)
	seedRow(store, "h-3", 5, base.Add(48*time.Hour), models.OutcomeSuccessful, 5.0)
	seedRow(store, "h-4", 3, base.Add(72*time.Hour), "", 0) // still pending

	analytics := NewAnalytics(store, []int{1, 3})

	report, err := analytics.BuildReport(context.Background(), base.Add(-time.Hour), base.Add(96*time.Hour), TrendDaily)
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalShown)
	assert.Equal(t, 3, report.TotalFinalized)
	assert.Equal(t, 2, report.Successful)
	assert.InDelta(t, 2.0/3.0, report.SuccessRate, 0.0001)
	assert.InDelta(t, (4.0+2.0+5.0)/3.0, report.AverageSatisfaction, 0.0001)
}

func TestBuildReportRankAccuracy(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	// Selections at ranks 1, 2, 7 and 1; the outcome does not matter, only
	// that the user picked the candidate.
	seedRow(store, "h-1", 1, base, models.OutcomeSuccessful, 0)
	seedRow(store, "h-2", 2, base, models.OutcomeSuccessful, 0)
	seedRow(store, "h-3", 7, base, models.OutcomeSuccessful, 0)
	seedRow(store, "h-4", 1, base, models.OutcomeFailed, 0)

	analytics := NewAnalytics(store, []int{1, 3})

	report, err := analytics.BuildReport(context.Background(), base.Add(-time.Hour), base.Add(time.Hour), TrendDaily)
	require.NoError(t, err)

	require.Len(t, report.RankAccuracy, 2)
	assert.Equal(t, 1, report.RankAccuracy[0].K)
	assert.Equal(t, 2, report.RankAccuracy[0].Hits)
	assert.InDelta(t, 0.5, report.RankAccuracy[0].Rate, 0.0001)
	assert.Equal(t, 3, report.RankAccuracy[1].K)
	assert.Equal(t, 3, report.RankAccuracy[1].Hits)
	assert.InDelta(t, 0.75, report.RankAccuracy[1].Rate, 0.0001)
}

func TestBuildReportRankAccuracyCountsFailedSelections(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	// The top-ranked candidate was picked but the engagement fell through;
	// the recommendation itself was still accurate. The cancelled row was
	// never picked and stays out of the denominator.
	seedRow(store, "h-1", 1, base, models.OutcomeFailed, 0)
	seedRow(store, "h-2", 4, base, models.OutcomeCancelled, 0)

	analytics := NewAnalytics(store, []int{1})

	report, err := analytics.BuildReport(context.Background(), base.Add(-time.Hour), base.Add(time.Hour), TrendDaily)
	require.NoError(t, err)

	require.Len(t, report.RankAccuracy, 1)
	assert.Equal(t, 1, report.RankAccuracy[0].Hits)
	assert.InDelta(t, 1.0, report.RankAccuracy[0].Rate, 0.0001)
}

func TestBuildReportExcludesCancelledFromSuccessRate(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	seedRow(store, "h-1", 1, base, models.OutcomeSuccessful, 0)
	seedRow(store, "h-2", 2, base, models.OutcomeFailed, 0)
	seedRow(store, "h-3", 3, base, models.OutcomeCancelled, 0)

	analytics := NewAnalytics(store, nil)

	report, err := analytics.BuildReport(context.Background(), base.Add(-time.Hour), base.Add(time.Hour), TrendDaily)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalFinalized)
	assert.Equal(t, 1, report.Successful)
	assert.InDelta(t, 0.5, report.SuccessRate, 0.0001)

	require.Len(t, report.Trend, 1)
	assert.Equal(t, 3, report.Trend[0].Finalized)
	assert.InDelta(t, 0.5, report.Trend[0].SuccessRate, 0.0001)
}

func TestBuildReportTrendBuckets(t *testing.T) {
	store := newMemStore()

	jan := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)

	seedRow(store, "h-1", 1, jan, models.OutcomeSuccessful, 0)
	seedRow(store, "h-2", 2, jan.Add(time.Hour), models.OutcomeFailed, 0)
	seedRow(store, "h-3", 1, feb, models.OutcomeSuccessful, 0)

	analytics := NewAnalytics(store, nil)

	report, err := analytics.BuildReport(context.Background(), jan.Add(-time.Hour), feb.Add(48*time.Hour), TrendMonthly)
	require.NoError(t, err)

	require.Len(t, report.Trend, 2)
	assert.Equal(t, "2026-01", report.Trend[0].Bucket)
	assert.Equal(t, 2, report.Trend[0].Shown)
	assert.InDelta(t, 0.5, report.Trend[0].SuccessRate, 0.0001)
	assert.Equal(t, "2026-02", report.Trend[1].Bucket)
	assert.InDelta(t, 1.0, report.Trend[1].SuccessRate, 0.0001)
}

func TestBuildReportWeeklyBucketKey(t *testing.T) {
	store := newMemStore()
	// Monday and Sunday of ISO week 11 land in the same bucket.
	seedRow(store, "h-1", 1, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), models.OutcomeSuccessful, 0)
	seedRow(store, "h-2", 1, time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC), models.OutcomeFailed, 0)

	analytics := NewAnalytics(store, nil)

	report, err := analytics.BuildReport(context.Background(),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TrendWeekly)
	require.NoError(t, err)

	require.Len(t, report.Trend, 1)
	assert.Equal(t, "2026-W11", report.Trend[0].Bucket)
	assert.Equal(t, 2, report.Trend[0].Shown)
}

func TestBuildReportRejectsBadInput(t *testing.T) {
	analytics := NewAnalytics(newMemStore(), nil)
	now := time.Now()

	_, err := analytics.BuildReport(context.Background(), now, now, TrendDaily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANALYTICS_QUERY_FAILED")

	_, err = analytics.BuildReport(context.Background(), now.Add(-time.Hour), now, "quarter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANALYTICS_QUERY_FAILED")
}

func TestBuildReportEmptyRange(t *testing.T) {
	analytics := NewAnalytics(newMemStore(), []int{1})
	now := time.Now().UTC()

	report, err := analytics.BuildReport(context.Background(), now.Add(-time.Hour), now, TrendDaily)
	require.NoError(t, err)

	assert.Zero(t, report.TotalShown)
	assert.Zero(t, report.SuccessRate)
	assert.Empty(t, report.Trend)
	require.Len(t, report.RankAccuracy, 1)
	assert.Zero(t, report.RankAccuracy[0].Rate)
}
