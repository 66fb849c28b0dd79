package matching

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"carematch/internal/common/errors"
	"carematch/internal/models"
)

// SimulationParams bound a synthetic matching run. Identical params with the
// same Seed reproduce an identical report.
type SimulationParams struct {
	Candidates  int
	Assessments int
	Seed        int64
	Strategy    StrategyKind
	MaxResults  int
}

var simRegions = []string{"north", "south", "east", "west", "central"}

var simSpecialties = []string{
	"mobility-support", "nutrition-care", "daily-care",
	"cognitive-care", "dementia-care", "rehabilitation", "chronic-care",
}

var simDiseases = []string{"diabetes", "hypertension", "dementia", "stroke", "arthritis"}

// Simulator exercises the full pipeline against generated data. No store,
// cache or history involved; everything stays in memory.
type Simulator struct {
	engine *Engine
}

func NewSimulator(engine *Engine) *Simulator {
	return &Simulator{engine: engine}
}

// Run generates a candidate pool and a batch of assessments from the seed,
// matches every assessment against the pool and aggregates the outcome.
func (s *Simulator) Run(ctx context.Context, params SimulationParams) (*models.SimulationResult, error) {
	if params.Candidates <= 0 || params.Assessments <= 0 {
		return nil, errors.NewSimulationFailedError(fmt.Errorf("candidates and assessments must be positive, got %d and %d", params.Candidates, params.Assessments))
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 10
	}
	if params.Strategy == "" {
		params.Strategy = StrategyHealth
	}

	rng := rand.New(rand.NewSource(params.Seed))
	pool := GeneratePool(rng, params.Candidates)
	engine := s.engine.withStore(staticPool(pool))

	start := time.Now()
	var matched int
	var scoreSum float64

	for i := 0; i < params.Assessments; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewSimulationFailedError(err)
		}

		assessment := GenerateAssessment(rng, i)
		pref := models.MatchingPreference{
			MaxResults:      params.MaxResults,
			PreferredRegion: simRegions[rng.Intn(len(simRegions))],
		}

		results, err := engine.MatchAssessment(ctx, assessment, pref, params.Strategy)
		if err != nil {
			return nil, errors.NewSimulationFailedError(err)
		}
		if len(results) > 0 {
			matched++
			scoreSum += results[0].Score
		}
	}

	result := &models.SimulationResult{
		TotalCandidates:   params.Candidates,
		TotalAssessments:  params.Assessments,
		SuccessfulMatches: matched,
		ExecutionTimeMs:   time.Since(start).Milliseconds(),
	}
	if matched > 0 {
		result.AverageScore = scoreSum / float64(matched)
	}
	if params.Assessments > 0 {
		result.SuccessRate = float64(matched) / float64(params.Assessments)
	}
	return result, nil
}

// withStore clones the engine with a different candidate source and no cache
// or recorder, keeping the original configuration and strategy weights.
func (e *Engine) withStore(store CandidateStore) *Engine {
	return &Engine{
		cfg:        e.cfg,
		normalizer: e.normalizer,
		source:     e.source,
		store:      store,
		logger:     e.logger,
	}
}

// staticPool serves a fixed in-memory candidate slice.
type staticPool []models.MatchCandidate

func (p staticPool) ListAllCandidates(ctx context.Context) ([]models.MatchCandidate, error) {
	return p, nil
}

func (p staticPool) ListCandidatesByRegion(ctx context.Context, region string) ([]models.MatchCandidate, error) {
	var out []models.MatchCandidate
	for _, c := range p {
		if c.ServesRegion(region) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GeneratePool builds n synthetic candidates from the given source. Roughly
// one in four is a facility; every candidate serves two regions so regional
// pools stay populated at small n.
func GeneratePool(rng *rand.Rand, n int) []models.MatchCandidate {
	pool := make([]models.MatchCandidate, 0, n)
	for i := 0; i < n; i++ {
		kind := models.KindCoordinator
		if i%4 == 3 {
			kind = models.KindFacility
		}

		specs := make([]string, 0, 2)
		specs = append(specs, simSpecialties[rng.Intn(len(simSpecialties))])
		if rng.Intn(2) == 0 {
			specs = append(specs, simSpecialties[rng.Intn(len(simSpecialties))])
		}

		maxLoad := 5 + rng.Intn(20)
		c := models.MatchCandidate{
			ID:              fmt.Sprintf("sim-%04d", i),
			Kind:            kind,
			Name:            fmt.Sprintf("Simulated %s %d", kind, i),
			Specialties:     specs,
			ExperienceYears: rng.Intn(25),
			SuccessfulCases: rng.Intn(200),
			Satisfaction:    2.5 + rng.Float64()*2.5,
			CurrentLoad:     rng.Intn(maxLoad),
			MaxLoad:         maxLoad,
			Regions: []string{
				simRegions[i%len(simRegions)],
				simRegions[(i+1)%len(simRegions)],
			},
			WeekendAvailable:   rng.Intn(2) == 0,
			EmergencyAvailable: rng.Intn(3) == 0,
			Languages:          []models.LanguageSkill{{Code: "en", Proficiency: "fluent"}},
		}
		if kind == models.KindFacility {
			c.MonthlyFee = int64(1500 + rng.Intn(4000))
			c.EvaluationGrade = string('A' + rune(rng.Intn(5)))
			c.EvaluationScore = 40 + rng.Float64()*60
		}
		pool = append(pool, c)
	}
	return pool
}

// GenerateAssessment builds a synthetic assessment with ADL levels skewed
// toward light care, matching the shape of real intake data.
func GenerateAssessment(rng *rand.Rand, seq int) *models.CareAssessment {
	level := func() models.ADLLevel {
		switch rng.Intn(6) {
		case 0:
			return models.ADLFullAssistance
		case 1, 2:
			return models.ADLPartialAssistance
		default:
			return models.ADLIndependent
		}
	}

	a := &models.CareAssessment{
		ID:            fmt.Sprintf("sim-assessment-%04d", seq),
		SubjectID:     fmt.Sprintf("sim-subject-%04d", seq),
		Mobility:      level(),
		Eating:        level(),
		Toileting:     level(),
		Communication: level(),
		CareTarget:    models.CareTargetSelf,
		MealType:      models.MealRegular,
		CreatedAt:     time.Now(),
	}
	if rng.Intn(2) == 0 {
		grade := 1 + rng.Intn(5)
		a.LTCIGrade = &grade
	}
	if rng.Intn(3) == 0 {
		a.ChronicDiseases = []string{simDiseases[rng.Intn(len(simDiseases))]}
	}
	a.CognitiveDifficulty = rng.Intn(5) == 0
	return a
}
