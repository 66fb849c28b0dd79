package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carematch/internal/common/config"
	"carematch/internal/models"
)

func testMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		NeedWeights: testNeedWeights(),
		ScoreWeights: config.ScoreWeights{
			Specialty:    0.30,
			Experience:   0.25,
			Satisfaction: 0.25,
			Availability: 0.10,
			Workload:     0.10,
		},
		MaxDistanceKm:   50,
		ParallelScoring: 200,
		ScoringWorkers:  8,
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    StrategyKind
		wantErr bool
	}{
		{name: "empty defaults to health", input: "", want: StrategyHealth},
		{name: "health", input: "health", want: StrategyHealth},
		{name: "health-based suffix", input: "health-based", want: StrategyHealth},
		{name: "distance", input: "distance", want: StrategyDistance},
		{name: "rating-based", input: "rating-based", want: StrategyRating},
		{name: "unknown rejected", input: "astrology", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "UNKNOWN_STRATEGY")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealthStrategyScoreBounds(t *testing.T) {
	strategy, err := NewStrategy(StrategyHealth, testMatchingConfig())
	require.NoError(t, err)

	sctx := ScoringContext{
		Need: models.CareNeedSummary{
			Score:               120,
			SeverityLabel:       "moderate care",
			RequiredSpecialties: []string{"mobility-support", "nutrition-care"},
		},
		Preference: models.MatchingPreference{MaxResults: 10},
	}

	tests := []struct {
		name      string
		candidate models.MatchCandidate
	}{
		{
			name: "perfect candidate stays within 1",
			candidate: models.MatchCandidate{
				ID:              "c-best",
				Specialties:     []string{"mobility-support", "nutrition-care"},
				ExperienceYears: 30,
				SuccessfulCases: 500,
				Satisfaction:    5.0,
				CurrentLoad:     0,
				MaxLoad:         10,
			},
		},
		{
			name:      "empty candidate stays at or above 0",
			candidate: models.MatchCandidate{ID: "c-empty", CurrentLoad: 10, MaxLoad: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reason := strategy.Score(&tt.candidate, sctx)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			assert.NotEmpty(t, reason)
		})
	}
}

// Two coordinators with identical specialty and experience profiles: the one
// with higher satisfaction wins even though its workload is slightly higher.
func TestHealthStrategySatisfactionOutweighsWorkload(t *testing.T) {
	strategy, err := NewStrategy(StrategyHealth, testMatchingConfig())
	require.NoError(t, err)

	sctx := ScoringContext{
		Need: models.CareNeedSummary{
			RequiredSpecialties: []string{"mobility-support"},
		},
		Preference: models.MatchingPreference{MaxResults: 10},
	}

	higherSatisfaction := models.MatchCandidate{
		ID:              "c-a",
		Specialties:     []string{"mobility-support"},
		ExperienceYears: 8,
		SuccessfulCases: 80,
		Satisfaction:    4.2,
		CurrentLoad:     3,
		MaxLoad:         8,
	}
	lowerSatisfaction := higherSatisfaction
	lowerSatisfaction.ID = "c-b"
	lowerSatisfaction.Satisfaction = 3.8
	lowerSatisfaction.CurrentLoad = 2
	lowerSatisfaction.MaxLoad = 6

	scoreA, _ := strategy.Score(&higherSatisfaction, sctx)
	scoreB, _ := strategy.Score(&lowerSatisfaction, sctx)

	assert.Greater(t, scoreA, scoreB)
}

func TestHealthStrategyNeutralWithoutRequiredSpecialties(t *testing.T) {
	strategy, err := NewStrategy(StrategyHealth, testMatchingConfig())
	require.NoError(t, err)

	sctx := ScoringContext{Preference: models.MatchingPreference{MaxResults: 10}}

	specialist := models.MatchCandidate{
		ID:          "c-spec",
		Specialties: []string{"dementia-care"},
		MaxLoad:     10,
	}
	generalist := models.MatchCandidate{ID: "c-gen", MaxLoad: 10}

	scoreSpec, _ := strategy.Score(&specialist, sctx)
	scoreGen, _ := strategy.Score(&generalist, sctx)

	// No need-implied specialties: the component is neutral for both.
	assert.InDelta(t, scoreSpec, scoreGen, 0.001)
}

func TestHealthStrategyReasonNamesDominantFactor(t *testing.T) {
	strategy, err := NewStrategy(StrategyHealth, testMatchingConfig())
	require.NoError(t, err)

	sctx := ScoringContext{
		Need:       models.CareNeedSummary{RequiredSpecialties: []string{"rehabilitation"}},
		Preference: models.MatchingPreference{MaxResults: 10},
	}

	candidate := models.MatchCandidate{
		ID:          "c-1",
		Specialties: []string{"rehabilitation"},
		MaxLoad:     10,
	}

	_, reason := strategy.Score(&candidate, sctx)
	assert.Contains(t, reason, "specialty match")
}

func TestDistanceStrategy(t *testing.T) {
	strategy, err := NewStrategy(StrategyDistance, testMatchingConfig())
	require.NoError(t, err)

	here := &models.GeoPoint{Lat: 35.6812, Lon: 139.7671}

	tests := []struct {
		name     string
		location *models.GeoPoint
		prefLoc  *models.GeoPoint
		check    func(t *testing.T, score float64, reason string)
	}{
		{
			name:     "same point scores full",
			location: &models.GeoPoint{Lat: 35.6812, Lon: 139.7671},
			prefLoc:  here,
			check: func(t *testing.T, score float64, reason string) {
				assert.InDelta(t, 1.0, score, 0.001)
			},
		},
		{
			name:     "beyond max distance scores zero",
			location: &models.GeoPoint{Lat: 34.6937, Lon: 135.5023}, // ~400 km away
			prefLoc:  here,
			check: func(t *testing.T, score float64, reason string) {
				assert.Zero(t, score)
			},
		},
		{
			name:     "missing candidate location scores zero",
			location: nil,
			prefLoc:  here,
			check: func(t *testing.T, score float64, reason string) {
				assert.Zero(t, score)
				assert.Equal(t, "no location data", reason)
			},
		},
		{
			name:     "missing preference location scores zero",
			location: &models.GeoPoint{Lat: 35.0, Lon: 139.0},
			prefLoc:  nil,
			check: func(t *testing.T, score float64, reason string) {
				assert.Zero(t, score)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := models.MatchCandidate{ID: "c-1", MaxLoad: 10, Location: tt.location}
			sctx := ScoringContext{Preference: models.MatchingPreference{MaxResults: 10, Location: tt.prefLoc}}

			score, reason := strategy.Score(&c, sctx)
			tt.check(t, score, reason)
		})
	}
}

func TestRatingStrategy(t *testing.T) {
	strategy, err := NewStrategy(StrategyRating, testMatchingConfig())
	require.NoError(t, err)

	tests := []struct {
		name      string
		candidate models.MatchCandidate
		wantScore float64
	}{
		{
			name:      "evaluation score preferred",
			candidate: models.MatchCandidate{ID: "f-1", Kind: models.KindFacility, EvaluationScore: 95, EvaluationGrade: "C", MaxLoad: 10},
			wantScore: 0.95,
		},
		{
			name:      "low evaluation score",
			candidate: models.MatchCandidate{ID: "f-2", Kind: models.KindFacility, EvaluationScore: 45, MaxLoad: 10},
			wantScore: 0.45,
		},
		{
			name:      "grade fallback",
			candidate: models.MatchCandidate{ID: "f-3", Kind: models.KindFacility, EvaluationGrade: "A", MaxLoad: 10},
			wantScore: 1.0,
		},
		{
			name:      "worst grade floors at zero",
			candidate: models.MatchCandidate{ID: "f-4", Kind: models.KindFacility, EvaluationGrade: "E", MaxLoad: 10},
			wantScore: 0.0,
		},
		{
			name:      "coordinator satisfaction fallback",
			candidate: models.MatchCandidate{ID: "c-1", Kind: models.KindCoordinator, Satisfaction: 4.0, MaxLoad: 10},
			wantScore: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reason := strategy.Score(&tt.candidate, ScoringContext{})
			assert.InDelta(t, tt.wantScore, score, 0.001)
			assert.NotEmpty(t, reason)
		})
	}
}

// Ranking order is preserved when two scores land on the 0 - 100 scale: a 95
// must outrank a 45 after conversion, not just before.
func TestRatingScalePreservesOrder(t *testing.T) {
	strategy, err := NewStrategy(StrategyRating, testMatchingConfig())
	require.NoError(t, err)

	high := models.MatchCandidate{ID: "f-high", Kind: models.KindFacility, EvaluationScore: 95, MaxLoad: 10}
	low := models.MatchCandidate{ID: "f-low", Kind: models.KindFacility, EvaluationScore: 45, MaxLoad: 10}

	scoreHigh, reasonHigh := strategy.Score(&high, ScoringContext{})
	scoreLow, _ := strategy.Score(&low, ScoringContext{})

	results := Assemble([]scoredCandidate{
		{candidate: low, score: scoreLow, reason: "evaluation score 45"},
		{candidate: high, score: scoreHigh, reason: reasonHigh},
	}, 10, StrategyRating)

	assert.Equal(t, "f-high", results[0].CandidateID)
	assert.InDelta(t, 95.0, results[0].Score100, 0.001)
	assert.InDelta(t, 45.0, results[1].Score100, 0.001)
}
