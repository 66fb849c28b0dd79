package recordoutcome

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "errors"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/matching/history"
	"carematch/internal/models"
)

type fakeHistoryStore struct {
	mu   sync.Mutex
	rows map[string]*models.MatchingHistory
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{rows: map[string]*models.MatchingHistory{}}
}

func (s *fakeHistoryStore) InsertBatch(ctx context.Context, rows []models.MatchingHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range rows {
		row := rows[i]
		s.rows[row.ID] = &row
	}
	return nil
}

func (s *fakeHistoryStore) FindByAssessmentCandidate(ctx context.Context, assessmentID, candidateID string) (*models.MatchingHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.AssessmentID == assessmentID && row.CandidateID == candidateID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, errors.NewHistoryNotFoundError(assessmentID + "/" + candidateID)
}

func (s *fakeHistoryStore) MarkEvent(ctx context.Context, historyID string, event models.EngagementEvent) error {
	return nil
}

func (s *fakeHistoryStore) Finalize(ctx context.Context, historyID string, rec models.OutcomeRecord, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[historyID]
	if row.FinalizedAt != nil {
		return false, nil
	}
	row.Outcome = rec.Outcome
	row.SatisfactionScore = rec.SatisfactionScore
	row.FinalizedAt = &at
	return true, nil
}

func (s *fakeHistoryStore) ListBetween(ctx context.Context, from, to time.Time) ([]models.MatchingHistory, error) {
	return nil, nil
}

type fakeInvalidator struct {
	mu      sync.Mutex
	regions []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, regions ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = append(f.regions, regions...)
	return nil
}

type fakeEmail struct {
	sent int
	fail bool
}

func (f *fakeEmail) SendPlainEmail(ctx context.Context, from, to, subject, body string) error {
	if f.fail {
		return errors.NewNotificationSendFailedError("email", stderrors.New("ses throttled"))
	}
	f.sent++
	return nil
}

type fakeSMS struct {
	sent int
}

func (f *fakeSMS) SendSMS(ctx context.Context, phoneNumber, message string) error {
	f.sent++
	return nil
}

func seededStore(t *testing.T) *fakeHistoryStore {
	t.Helper()
	snapshot, err := json.Marshal(models.MatchResult{
		CandidateID: "c-1",
		Regions:     []string{"north", "east"},
	})
	require.NoError(t, err)

	store := newFakeHistoryStore()
	store.rows["h-1"] = &models.MatchingHistory{
		ID: "h-1", AssessmentID: "assessment-1", CandidateID: "c-1",
		CandidateSnapshot: snapshot,
		Outcome:           models.OutcomePending,
		CreatedAt:         time.Now(),
	}
	return store
}

func newTestHandler(t *testing.T, store *fakeHistoryStore) (*Handler, *fakeInvalidator, *fakeEmail, *fakeSMS) {
	t.Helper()
	recorder := history.NewRecorder(store, logger.NewTestLogger(t))
	t.Cleanup(recorder.Close)

	invalidator := &fakeInvalidator{}
	email := &fakeEmail{}
	sms := &fakeSMS{}
	handler := NewHandler(LoadConfig(), recorder, invalidator, email, sms, logger.NewTestLogger(t))
	return handler, invalidator, email, sms
}

func TestExecuteFinalizesOutcome(t *testing.T) {
	store := seededStore(t)
	handler, invalidator, email, sms := newTestHandler(t, store)

	satisfaction := 4.5
	output, err := handler.Execute(context.Background(), &Input{
		AssessmentID:      "assessment-1",
		CandidateID:       "c-1",
		Outcome:           "successful",
		SatisfactionScore: &satisfaction,
		NotifyEmail:       "seeker@example.com",
		NotifyPhone:       "+81901234567",
	})
	require.NoError(t, err)

	assert.Equal(t, "h-1", output.HistoryID)
	assert.Equal(t, "SUCCESSFUL", output.Outcome)
	assert.NotEmpty(t, output.FinalizedAt)
	assert.True(t, output.Notified)

	assert.NotNil(t, store.rows["h-1"].FinalizedAt)
	assert.Equal(t, []string{"north", "east"}, invalidator.regions)
	assert.Equal(t, 1, email.sent)
	assert.Equal(t, 1, sms.sent)
}

func TestExecuteSecondOutcomeRejected(t *testing.T) {
	store := seededStore(t)
	handler, _, _, _ := newTestHandler(t, store)

	_, err := handler.Execute(context.Background(), &Input{
		AssessmentID: "assessment-1", CandidateID: "c-1", Outcome: "failed",
	})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), &Input{
		AssessmentID: "assessment-1", CandidateID: "c-1", Outcome: "successful",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALREADY_FINALIZED")
}

func TestExecuteFailedOutcomeSkipsInvalidation(t *testing.T) {
	store := seededStore(t)
	handler, invalidator, _, _ := newTestHandler(t, store)

	_, err := handler.Execute(context.Background(), &Input{
		AssessmentID: "assessment-1", CandidateID: "c-1", Outcome: "cancelled",
	})
	require.NoError(t, err)
	assert.Empty(t, invalidator.regions)
}

func TestExecuteNotificationFailureDoesNotVoidOutcome(t *testing.T) {
	store := seededStore(t)
	handler, _, email, _ := newTestHandler(t, store)
	email.fail = true

	output, err := handler.Execute(context.Background(), &Input{
		AssessmentID: "assessment-1",
		CandidateID:  "c-1",
		Outcome:      "successful",
		NotifyEmail:  "seeker@example.com",
	})
	require.NoError(t, err)
	assert.False(t, output.Notified)
	assert.NotNil(t, store.rows["h-1"].FinalizedAt)
}

func TestExecuteValidation(t *testing.T) {
	store := seededStore(t)
	handler, _, _, _ := newTestHandler(t, store)

	tests := []struct {
		name  string
		input Input
	}{
		{name: "missing ids", input: Input{Outcome: "successful"}},
		{name: "pending is not terminal", input: Input{AssessmentID: "assessment-1", CandidateID: "c-1", Outcome: "pending"}},
		{name: "unknown outcome", input: Input{AssessmentID: "assessment-1", CandidateID: "c-1", Outcome: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "INVALID_OUTCOME")
		})
	}
}
