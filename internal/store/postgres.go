// Package store provides the PostgreSQL and Elasticsearch backends for
// assessments, candidates and matching history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/models"
)

// candidateColumns is the shared projection of the coordinators/facilities
// union. Facility-only columns come back NULL for coordinators.
const candidateColumns = `
	kind, id, name, specialties, regions, languages,
	weekend_available, emergency_available,
	current_load, max_load,
	experience_years, successful_cases, satisfaction,
	evaluation_grade, evaluation_score, monthly_fee,
	latitude, longitude`

const candidateUnion = `
	SELECT 'COORDINATOR' AS kind, id, name, specialties, regions, languages,
	       weekend_available, emergency_available,
	       current_load, max_load,
	       experience_years, successful_cases, satisfaction,
	       NULL AS evaluation_grade, NULL AS evaluation_score, NULL AS monthly_fee,
	       latitude, longitude
	FROM care_coordinators
	UNION ALL
	SELECT 'FACILITY' AS kind, id, name, specialties, regions, languages,
	       weekend_available, emergency_available,
	       current_load, max_load,
	       experience_years, successful_cases, satisfaction,
	       evaluation_grade, evaluation_score, monthly_fee,
	       latitude, longitude
	FROM care_facilities`

// PostgresStore backs the matching engine and the history ledger.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

// GetAssessment loads one care assessment by id.
func (s *PostgresStore) GetAssessment(ctx context.Context, id string) (*models.CareAssessment, error) {
	var a models.CareAssessment
	var ltciGrade sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, mobility, eating, toileting, communication,
		       ltci_grade, care_target, meal_type, chronic_diseases,
		       cognitive_difficulty, created_at
		FROM care_assessments
		WHERE id = $1`, id).Scan(
		&a.ID, &a.SubjectID,
		&a.Mobility, &a.Eating, &a.Toileting, &a.Communication,
		&ltciGrade, &a.CareTarget, &a.MealType,
		pq.Array(&a.ChronicDiseases),
		&a.CognitiveDifficulty, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewAssessmentNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment %s: %w", id, err)
	}

	if ltciGrade.Valid {
		grade := int(ltciGrade.Int64)
		a.LTCIGrade = &grade
	}
	return &a, nil
}

// ListAllCandidates returns every coordinator and facility.
func (s *PostgresStore) ListAllCandidates(ctx context.Context) ([]models.MatchCandidate, error) {
	rows, err := s.db.QueryContext(ctx, candidateUnion+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// ListCandidatesByRegion returns candidates whose service regions include the
// given region.
func (s *PostgresStore) ListCandidatesByRegion(ctx context.Context, region string) ([]models.MatchCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT * FROM (`+candidateUnion+`) c WHERE $1 = ANY(c.regions) ORDER BY id`, region)
	if err != nil {
		return nil, fmt.Errorf("query candidates for region %s: %w", region, err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func scanCandidates(rows *sql.Rows) ([]models.MatchCandidate, error) {
	var out []models.MatchCandidate
	for rows.Next() {
		var c models.MatchCandidate
		var languages []byte
		var evalGrade sql.NullString
		var evalScore sql.NullFloat64
		var fee sql.NullInt64
		var lat, lon sql.NullFloat64

		err := rows.Scan(
			&c.Kind, &c.ID, &c.Name,
			pq.Array(&c.Specialties), pq.Array(&c.Regions), &languages,
			&c.WeekendAvailable, &c.EmergencyAvailable,
			&c.CurrentLoad, &c.MaxLoad,
			&c.ExperienceYears, &c.SuccessfulCases, &c.Satisfaction,
			&evalGrade, &evalScore, &fee,
			&lat, &lon,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		if len(languages) > 0 {
			if err := json.Unmarshal(languages, &c.Languages); err != nil {
				return nil, fmt.Errorf("decode languages for %s: %w", c.ID, err)
			}
		}
		c.EvaluationGrade = evalGrade.String
		c.EvaluationScore = evalScore.Float64
		c.MonthlyFee = fee.Int64
		if lat.Valid && lon.Valid {
			c.Location = &models.GeoPoint{Lat: lat.Float64, Lon: lon.Float64}
		}

		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- history ledger ----

// InsertBatch writes one shown batch in a single transaction.
func (s *PostgresStore) InsertBatch(ctx context.Context, records []models.MatchingHistory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matching_history (
			id, batch_id, assessment_id, candidate_id,
			rank, initial_score, candidate_snapshot, criteria_snapshot,
			estimated_cost, outcome, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.ID, r.BatchID, r.AssessmentID, r.CandidateID,
			r.Rank, r.InitialScore,
			[]byte(r.CandidateSnapshot), []byte(r.CriteriaSnapshot),
			r.EstimatedCost, string(r.Outcome), r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert history row %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// FindByAssessmentCandidate returns the most recently shown row for the pair.
func (s *PostgresStore) FindByAssessmentCandidate(ctx context.Context, assessmentID, candidateID string) (*models.MatchingHistory, error) {
	var h models.MatchingHistory
	var finalizedAt sql.NullTime
	var actualCost sql.NullInt64
	var satisfaction sql.NullFloat64
	var willingness sql.NullInt64
	var feedback sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, batch_id, assessment_id, candidate_id,
		       rank, initial_score, candidate_snapshot, criteria_snapshot,
		       estimated_cost, viewed, contacted, visited, selected,
		       outcome, actual_cost, satisfaction_score, recommend_willingness,
		       feedback, created_at, finalized_at
		FROM matching_history
		WHERE assessment_id = $1 AND candidate_id = $2
		ORDER BY created_at DESC
		LIMIT 1`, assessmentID, candidateID).Scan(
		&h.ID, &h.BatchID, &h.AssessmentID, &h.CandidateID,
		&h.Rank, &h.InitialScore, &h.CandidateSnapshot, &h.CriteriaSnapshot,
		&h.EstimatedCost, &h.Viewed, &h.Contacted, &h.Visited, &h.Selected,
		&h.Outcome, &actualCost, &satisfaction, &willingness,
		&feedback, &h.CreatedAt, &finalizedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewHistoryNotFoundError(assessmentID + "/" + candidateID)
	}
	if err != nil {
		return nil, fmt.Errorf("query history for %s/%s: %w", assessmentID, candidateID, err)
	}

	if finalizedAt.Valid {
		h.FinalizedAt = &finalizedAt.Time
	}
	if actualCost.Valid {
		h.ActualCost = &actualCost.Int64
	}
	if satisfaction.Valid {
		h.SatisfactionScore = &satisfaction.Float64
	}
	if willingness.Valid {
		w := int(willingness.Int64)
		h.RecommendWillingness = &w
	}
	h.Feedback = feedback.String
	return &h, nil
}

var eventColumns = map[models.EngagementEvent]string{
	models.EventViewed:    "viewed",
	models.EventContacted: "contacted",
	models.EventVisited:   "visited",
	models.EventSelected:  "selected",
}

// MarkEvent flips one engagement flag to true. Already-true is a no-op at
// the SQL level, which keeps the write idempotent under retries.
func (s *PostgresStore) MarkEvent(ctx context.Context, historyID string, event models.EngagementEvent) error {
	column, ok := eventColumns[event]
	if !ok {
		return errors.NewInvalidEngagementEventError(string(event))
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE matching_history SET %s = TRUE WHERE id = $1`, column), historyID)
	if err != nil {
		return fmt.Errorf("mark %s on history %s: %w", column, historyID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark %s on history %s: %w", column, historyID, err)
	}
	if affected == 0 {
		return errors.NewHistoryNotFoundError(historyID)
	}
	return nil
}

// Finalize sets the terminal outcome exactly once. The WHERE guard makes
// concurrent finalizations resolve to a single winner; losers see false.
func (s *PostgresStore) Finalize(ctx context.Context, historyID string, rec models.OutcomeRecord, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE matching_history
		SET outcome = $2, actual_cost = $3, satisfaction_score = $4,
		    recommend_willingness = $5, feedback = $6, finalized_at = $7,
		    selected = selected OR ($2 = 'SUCCESSFUL')
		WHERE id = $1 AND finalized_at IS NULL`,
		historyID, string(rec.Outcome), rec.ActualCost, rec.SatisfactionScore,
		rec.RecommendWillingness, rec.Feedback, at)
	if err != nil {
		return false, fmt.Errorf("finalize history %s: %w", historyID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finalize history %s: %w", historyID, err)
	}
	return affected == 1, nil
}

// ListBetween returns history rows created in [from, to).
func (s *PostgresStore) ListBetween(ctx context.Context, from, to time.Time) ([]models.MatchingHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, assessment_id, candidate_id,
		       rank, initial_score,
		       viewed, contacted, visited, selected,
		       outcome, satisfaction_score, created_at, finalized_at
		FROM matching_history
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query history range: %w", err)
	}
	defer rows.Close()

	var out []models.MatchingHistory
	for rows.Next() {
		var h models.MatchingHistory
		var satisfaction sql.NullFloat64
		var finalizedAt sql.NullTime

		err := rows.Scan(
			&h.ID, &h.BatchID, &h.AssessmentID, &h.CandidateID,
			&h.Rank, &h.InitialScore,
			&h.Viewed, &h.Contacted, &h.Visited, &h.Selected,
			&h.Outcome, &satisfaction, &h.CreatedAt, &finalizedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if satisfaction.Valid {
			h.SatisfactionScore = &satisfaction.Float64
		}
		if finalizedAt.Valid {
			h.FinalizedAt = &finalizedAt.Time
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
