// Package history records shown recommendations and their lifecycle as
// append-only rows, and computes analytics over them.
package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/common/metrics"
	"carematch/internal/models"
)

// Store persists history rows. Implementations must make Finalize
// conditional: it reports false when the row was already finalized, so
// concurrent outcome submissions resolve to exactly one winner.
type Store interface {
	InsertBatch(ctx context.Context, rows []models.MatchingHistory) error
	FindByAssessmentCandidate(ctx context.Context, assessmentID, candidateID string) (*models.MatchingHistory, error)
	MarkEvent(ctx context.Context, historyID string, event models.EngagementEvent) error
	Finalize(ctx context.Context, historyID string, rec models.OutcomeRecord, at time.Time) (bool, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.MatchingHistory, error)
}

// CacheInvalidator is notified when an outcome changes candidate capacity.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, regions ...string) error
}

// Recorder is the write side of the history ledger. Shown-result batches are
// persisted asynchronously off the match path; engagement and outcome writes
// are synchronous because callers need their errors.
type Recorder struct {
	store        Store
	logger       logger.Logger
	writeTimeout time.Duration
	maxAttempts  int

	queue chan []models.MatchingHistory
	wg    sync.WaitGroup

	mu        sync.RWMutex
	closeOnce sync.Once
	closed    chan struct{}
}

type RecorderOption func(*Recorder)

// WithQueueSize sets the pending-batch buffer. Batches beyond it are dropped
// with a log line rather than blocking a match request.
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) { r.queue = make(chan []models.MatchingHistory, n) }
}

func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.writeTimeout = d }
}

func WithMaxAttempts(n int) RecorderOption {
	return func(r *Recorder) { r.maxAttempts = n }
}

func NewRecorder(store Store, log logger.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:        store,
		logger:       log.WithFields(map[string]interface{}{"component": "history-recorder"}),
		writeTimeout: 10 * time.Second,
		maxAttempts:  3,
		queue:        make(chan []models.MatchingHistory, 256),
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// RecordShown enqueues one row per shown result. Never blocks and never
// fails; a full queue drops the batch and logs it.
func (r *Recorder) RecordShown(assessmentID string, pref models.MatchingPreference, results []models.MatchResult) {
	batchID := uuid.New().String()
	now := time.Now().UTC()

	criteria, err := json.Marshal(pref)
	if err != nil {
		r.logger.WithError(err).Error("marshal criteria snapshot", nil)
		criteria = nil
	}

	rows := make([]models.MatchingHistory, 0, len(results))
	for i, result := range results {
		snapshot, err := json.Marshal(result)
		if err != nil {
			r.logger.WithError(err).Error("marshal candidate snapshot", map[string]interface{}{
				"candidateId": result.CandidateID,
			})
			continue
		}

		rows = append(rows, models.MatchingHistory{
			ID:                uuid.New().String(),
			BatchID:           batchID,
			AssessmentID:      assessmentID,
			CandidateID:       result.CandidateID,
			Rank:              i + 1,
			InitialScore:      result.Score,
			CandidateSnapshot: snapshot,
			CriteriaSnapshot:  criteria,
			EstimatedCost:     result.MonthlyFee,
			Outcome:           models.OutcomePending,
			CreatedAt:         now,
		})
	}
	if len(rows) == 0 {
		return
	}

	// The read lock keeps Close from closing the queue between the closed
	// check and the send.
	r.mu.RLock()
	defer r.mu.RUnlock()

	select {
	case <-r.closed:
		r.logger.Warn("recorder closed, dropping batch", map[string]interface{}{
			"batchId":      batchID,
			"assessmentId": assessmentID,
			"rows":         len(rows),
		})
		return
	default:
	}

	select {
	case r.queue <- rows:
		metrics.HistoryQueueDepth.Set(float64(len(r.queue)))
	default:
		r.logger.Warn("history queue full, dropping batch", map[string]interface{}{
			"batchId":      batchID,
			"assessmentId": assessmentID,
			"rows":         len(rows),
		})
	}
}

// RecordEvent applies a monotonic engagement flag. Re-sending an event that
// is already set is an idempotent no-op.
func (r *Recorder) RecordEvent(ctx context.Context, assessmentID, candidateID string, event models.EngagementEvent) error {
	if !event.Valid() {
		return errors.NewInvalidEngagementEventError(string(event))
	}

	row, err := r.store.FindByAssessmentCandidate(ctx, assessmentID, candidateID)
	if err != nil {
		return err
	}

	if eventAlreadySet(row, event) {
		r.logger.Debug("engagement event already recorded", map[string]interface{}{
			"historyId": row.ID,
			"event":     string(event),
		})
		return nil
	}

	if err := r.store.MarkEvent(ctx, row.ID, event); err != nil {
		return errors.NewHistoryWriteFailedError(err)
	}
	return nil
}

// RecordOutcome finalizes a recommendation exactly once. A second outcome
// for the same row fails with ALREADY_FINALIZED regardless of its content.
func (r *Recorder) RecordOutcome(ctx context.Context, assessmentID, candidateID string, rec models.OutcomeRecord) (*models.MatchingHistory, error) {
	if !rec.Outcome.Valid() || !rec.Outcome.Terminal() {
		return nil, errors.NewInvalidOutcomeError(string(rec.Outcome))
	}
	if rec.SatisfactionScore != nil && (*rec.SatisfactionScore < 0 || *rec.SatisfactionScore > 5) {
		return nil, errors.NewInvalidOutcomeError("satisfactionScore outside [0, 5]")
	}
	if rec.RecommendWillingness != nil && (*rec.RecommendWillingness < 1 || *rec.RecommendWillingness > 5) {
		return nil, errors.NewInvalidOutcomeError("recommendWillingness outside [1, 5]")
	}

	row, err := r.store.FindByAssessmentCandidate(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, err
	}
	if row.FinalizedAt != nil {
		return nil, errors.NewAlreadyFinalizedError(row.ID)
	}

	now := time.Now().UTC()
	applied, err := r.store.Finalize(ctx, row.ID, rec, now)
	if err != nil {
		return nil, errors.NewHistoryWriteFailedError(err)
	}
	if !applied {
		// Lost the race against a concurrent outcome for the same row.
		return nil, errors.NewAlreadyFinalizedError(row.ID)
	}

	row.Outcome = rec.Outcome
	row.ActualCost = rec.ActualCost
	row.SatisfactionScore = rec.SatisfactionScore
	row.RecommendWillingness = rec.RecommendWillingness
	row.Feedback = rec.Feedback
	row.FinalizedAt = &now
	if rec.Outcome == models.OutcomeSuccessful {
		row.Selected = true
	}
	return row, nil
}

// Close stops accepting batches and drains the queue. RecordShown after
// Close drops the batch instead of panicking.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		close(r.closed)
		close(r.queue)
		r.mu.Unlock()
	})
	r.wg.Wait()
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for rows := range r.queue {
		metrics.HistoryQueueDepth.Set(float64(len(r.queue)))
		r.persistBatch(rows)
	}
}

func (r *Recorder) persistBatch(rows []models.MatchingHistory) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		lastErr = r.store.InsertBatch(ctx, rows)
		cancel()

		if lastErr == nil {
			return
		}

		metrics.HistoryWriteRetries.Inc()
		r.logger.WithError(lastErr).Warn("history batch write failed", map[string]interface{}{
			"attempt": attempt,
			"rows":    len(rows),
		})

		select {
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		case <-r.closed:
			// Still finish remaining attempts on shutdown but skip the wait.
		}
	}

	r.logger.WithError(lastErr).Error("dropping history batch after retries", map[string]interface{}{
		"batchId": rows[0].BatchID,
		"rows":    len(rows),
	})
}

func eventAlreadySet(row *models.MatchingHistory, event models.EngagementEvent) bool {
	switch event {
	case models.EventViewed:
		return row.Viewed
	case models.EventContacted:
		return row.Contacted
	case models.EventVisited:
		return row.Visited
	case models.EventSelected:
		return row.Selected
	}
	return false
}
