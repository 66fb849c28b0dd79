package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "errors"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/models"
)

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, logger.NewTestLogger(t)), mock
}

func assessmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject_id", "mobility", "eating", "toileting", "communication",
		"ltci_grade", "care_target", "meal_type", "chronic_diseases",
		"cognitive_difficulty", "created_at",
	})
}

func TestGetAssessment(t *testing.T) {
	store, mock := newTestStore(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, subject_id").
		WithArgs("assessment-1").
		WillReturnRows(assessmentRows().AddRow(
			"assessment-1", "subject-1", 2, 1, 2, 1,
			3, "PARENT", "SOFT", "{diabetes,dementia}",
			true, created,
		))

	got, err := store.GetAssessment(context.Background(), "assessment-1")
	require.NoError(t, err)

	assert.Equal(t, "assessment-1", got.ID)
	assert.Equal(t, models.ADLPartialAssistance, got.Mobility)
	require.NotNil(t, got.LTCIGrade)
	assert.Equal(t, 3, *got.LTCIGrade)
	assert.Equal(t, models.CareTargetParent, got.CareTarget)
	assert.Equal(t, []string{"diabetes", "dementia"}, got.ChronicDiseases)
	assert.True(t, got.CognitiveDifficulty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAssessmentNotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, subject_id").
		WithArgs("assessment-missing").
		WillReturnRows(assessmentRows())

	_, err := store.GetAssessment(context.Background(), "assessment-missing")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrAssessmentNotFound))
}

func candidateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"kind", "id", "name", "specialties", "regions", "languages",
		"weekend_available", "emergency_available",
		"current_load", "max_load",
		"experience_years", "successful_cases", "satisfaction",
		"evaluation_grade", "evaluation_score", "monthly_fee",
		"latitude", "longitude",
	})
}

func TestListCandidatesByRegion(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("FROM care_coordinators").
		WithArgs("north").
		WillReturnRows(candidateRows().
			AddRow(
				"COORDINATOR", "c-1", "Coordinator One",
				"{mobility-support}", "{north}", []byte(`[{"code":"en","proficiency":"fluent"}]`),
				true, false, 2, 8, 6, 40, 4.3,
				nil, nil, nil, nil, nil,
			).
			AddRow(
				"FACILITY", "f-1", "Facility One",
				"{dementia-care}", "{north,east}", nil,
				false, true, 20, 50, 12, 150, 3.9,
				"B", 78.5, int64(2800), 35.68, 139.76,
			))

	got, err := store.ListCandidatesByRegion(context.Background(), "north")
	require.NoError(t, err)
	require.Len(t, got, 2)

	coordinator := got[0]
	assert.Equal(t, models.KindCoordinator, coordinator.Kind)
	assert.Equal(t, []string{"mobility-support"}, coordinator.Specialties)
	require.Len(t, coordinator.Languages, 1)
	assert.Equal(t, "en", coordinator.Languages[0].Code)
	assert.Nil(t, coordinator.Location)

	facility := got[1]
	assert.Equal(t, models.KindFacility, facility.Kind)
	assert.Equal(t, "B", facility.EvaluationGrade)
	assert.Equal(t, int64(2800), facility.MonthlyFee)
	require.NotNil(t, facility.Location)
	assert.InDelta(t, 35.68, facility.Location.Lat, 0.0001)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchTransactional(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()

	rows := []models.MatchingHistory{
		{ID: "h-1", BatchID: "b-1", AssessmentID: "a-1", CandidateID: "c-1", Rank: 1, InitialScore: 0.9, Outcome: models.OutcomePending, CreatedAt: now},
		{ID: "h-2", BatchID: "b-1", AssessmentID: "a-1", CandidateID: "c-2", Rank: 2, InitialScore: 0.8, Outcome: models.OutcomePending, CreatedAt: now},
	}

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("INSERT INTO matching_history")
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.InsertBatch(context.Background(), rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchRollsBackOnFailure(t *testing.T) {
	store, mock := newTestStore(t)

	rows := []models.MatchingHistory{{ID: "h-1", Outcome: models.OutcomePending, CreatedAt: time.Now()}}

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("INSERT INTO matching_history")
	prepared.ExpectExec().WillReturnError(stderrors.New("disk full"))
	mock.ExpectRollback()

	err := store.InsertBatch(context.Background(), rows)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEvent(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE matching_history SET contacted = TRUE").
		WithArgs("h-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkEvent(context.Background(), "h-1", models.EventContacted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEventUnknownRow(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE matching_history SET viewed = TRUE").
		WithArgs("h-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkEvent(context.Background(), "h-missing", models.EventViewed)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrHistoryNotFound))
}

func TestFinalizeConditional(t *testing.T) {
	store, mock := newTestStore(t)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE matching_history").
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := store.Finalize(context.Background(), "h-1", models.OutcomeRecord{Outcome: models.OutcomeSuccessful}, at)
	require.NoError(t, err)
	assert.True(t, applied)

	mock.ExpectExec("UPDATE matching_history").
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = store.Finalize(context.Background(), "h-1", models.OutcomeRecord{Outcome: models.OutcomeFailed}, at)
	require.NoError(t, err)
	assert.False(t, applied, "second finalize must lose the conditional update")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBetween(t *testing.T) {
	store, mock := newTestStore(t)
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	finalized := from.Add(36 * time.Hour)

	mock.ExpectQuery("FROM matching_history").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "batch_id", "assessment_id", "candidate_id",
			"rank", "initial_score",
			"viewed", "contacted", "visited", "selected",
			"outcome", "satisfaction_score", "created_at", "finalized_at",
		}).
			AddRow("h-1", "b-1", "a-1", "c-1", 1, 0.92, true, true, false, true, "SUCCESSFUL", 4.5, from.Add(time.Hour), finalized).
			AddRow("h-2", "b-1", "a-1", "c-2", 2, 0.85, true, false, false, false, "PENDING", nil, from.Add(time.Hour), nil))

	got, err := store.ListBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.OutcomeSuccessful, got[0].Outcome)
	require.NotNil(t, got[0].SatisfactionScore)
	assert.InDelta(t, 4.5, *got[0].SatisfactionScore, 0.0001)
	assert.Nil(t, got[1].FinalizedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
