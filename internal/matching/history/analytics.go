package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"carematch/internal/common/errors"
	"carematch/internal/models"
)

// TrendGranularity buckets a report time series.
type TrendGranularity string

const (
	TrendDaily   TrendGranularity = "day"
	TrendWeekly  TrendGranularity = "week"
	TrendMonthly TrendGranularity = "month"
)

func (g TrendGranularity) Valid() bool {
	switch g {
	case TrendDaily, TrendWeekly, TrendMonthly:
		return true
	}
	return false
}

// TrendPoint is one time bucket of the report series.
type TrendPoint struct {
	Bucket      string  `json:"bucket"`
	Shown       int     `json:"shown"`
	Finalized   int     `json:"finalized"`
	Successful  int     `json:"successful"`
	SuccessRate float64 `json:"successRate"`
}

// RankAccuracy reports how often the eventually selected candidate appeared
// within the top K of the shown page.
type RankAccuracy struct {
	K    int     `json:"k"`
	Hits int     `json:"hits"`
	Rate float64 `json:"rate"`
}

// Report aggregates a date range of history rows.
type Report struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	TotalShown     int     `json:"totalShown"`
	TotalFinalized int     `json:"totalFinalized"`
	Successful     int     `json:"successful"`
	SuccessRate    float64 `json:"successRate"`

	AverageSatisfaction float64 `json:"averageSatisfaction"`

	RankAccuracy []RankAccuracy `json:"rankAccuracy"`
	Trend        []TrendPoint   `json:"trend"`
}

// Analytics is the read side of the history ledger.
type Analytics struct {
	store Store
	topK  []int
}

// NewAnalytics builds the reader. topK lists the K values for rank accuracy,
// typically {1, 3}.
func NewAnalytics(store Store, topK []int) *Analytics {
	if len(topK) == 0 {
		topK = []int{1, 3}
	}
	ks := append([]int(nil), topK...)
	sort.Ints(ks)
	return &Analytics{store: store, topK: ks}
}

// BuildReport computes success rate, rank accuracy and the trend series over
// [from, to).
func (a *Analytics) BuildReport(ctx context.Context, from, to time.Time, granularity TrendGranularity) (*Report, error) {
	if !granularity.Valid() {
		return nil, errors.NewAnalyticsQueryFailedError(fmt.Errorf("unknown trend granularity %q", granularity))
	}
	if !to.After(from) {
		return nil, errors.NewAnalyticsQueryFailedError(fmt.Errorf("empty date range %s .. %s", from.Format(time.RFC3339), to.Format(time.RFC3339)))
	}

	rows, err := a.store.ListBetween(ctx, from, to)
	if err != nil {
		return nil, errors.NewAnalyticsQueryFailedError(err)
	}

	report := &Report{From: from, To: to}
	report.TotalShown = len(rows)

	var satisfactionSum float64
	var satisfactionCount int
	var failed int
	for _, row := range rows {
		if row.FinalizedAt == nil {
			continue
		}
		report.TotalFinalized++
		switch row.Outcome {
		case models.OutcomeSuccessful:
			report.Successful++
		case models.OutcomeFailed:
			failed++
		}
		if row.SatisfactionScore != nil {
			satisfactionSum += *row.SatisfactionScore
			satisfactionCount++
		}
	}
	// Cancelled engagements never count against the rate.
	if report.Successful+failed > 0 {
		report.SuccessRate = float64(report.Successful) / float64(report.Successful+failed)
	}
	if satisfactionCount > 0 {
		report.AverageSatisfaction = satisfactionSum / float64(satisfactionCount)
	}

	report.RankAccuracy = a.rankAccuracy(rows)
	report.Trend = trendSeries(rows, granularity)
	return report, nil
}

// rankAccuracy counts, per K, the selected rows whose shown rank was within
// the top K, over all selected rows. Selection is what the user acted on, so
// a later FAILED outcome still counts the row.
func (a *Analytics) rankAccuracy(rows []models.MatchingHistory) []RankAccuracy {
	selected := 0
	hits := make(map[int]int, len(a.topK))
	for _, row := range rows {
		if !row.Selected {
			continue
		}
		selected++
		for _, k := range a.topK {
			if row.Rank <= k {
				hits[k]++
			}
		}
	}

	out := make([]RankAccuracy, 0, len(a.topK))
	for _, k := range a.topK {
		acc := RankAccuracy{K: k, Hits: hits[k]}
		if selected > 0 {
			acc.Rate = float64(acc.Hits) / float64(selected)
		}
		out = append(out, acc)
	}
	return out
}

func trendSeries(rows []models.MatchingHistory, granularity TrendGranularity) []TrendPoint {
	buckets := map[string]*TrendPoint{}
	failed := map[string]int{}
	for _, row := range rows {
		key := bucketKey(row.CreatedAt, granularity)
		point, ok := buckets[key]
		if !ok {
			point = &TrendPoint{Bucket: key}
			buckets[key] = point
		}
		point.Shown++
		if row.FinalizedAt != nil {
			point.Finalized++
			switch row.Outcome {
			case models.OutcomeSuccessful:
				point.Successful++
			case models.OutcomeFailed:
				failed[key]++
			}
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		point := buckets[k]
		if decided := point.Successful + failed[k]; decided > 0 {
			point.SuccessRate = float64(point.Successful) / float64(decided)
		}
		out = append(out, *point)
	}
	return out
}

// bucketKey renders a sortable bucket label: 2026-08-31, 2026-W35 or 2026-08.
func bucketKey(t time.Time, granularity TrendGranularity) string {
	t = t.UTC()
	switch granularity {
	case TrendWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case TrendMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
