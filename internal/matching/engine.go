package matching

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"carematch/internal/common/config"
	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/common/metrics"
	"carematch/internal/models"
)

// AssessmentSource resolves an assessment id to its record.
type AssessmentSource interface {
	GetAssessment(ctx context.Context, id string) (*models.CareAssessment, error)
}

// CandidateStore serves point-in-time candidate pool snapshots.
type CandidateStore interface {
	ListCandidatesByRegion(ctx context.Context, region string) ([]models.MatchCandidate, error)
	ListAllCandidates(ctx context.Context) ([]models.MatchCandidate, error)
}

// PoolCache is an optional region-keyed snapshot cache in front of the store.
// Misses and cache failures fall through to the store.
type PoolCache interface {
	Get(ctx context.Context, region string) ([]models.MatchCandidate, bool)
	Set(ctx context.Context, region string, pool []models.MatchCandidate)
	Invalidate(ctx context.Context, regions ...string) error
}

// ShownRecorder receives shown result sets for asynchronous persistence.
// Implementations must never block the match path.
type ShownRecorder interface {
	RecordShown(assessmentID string, pref models.MatchingPreference, results []models.MatchResult)
}

// MatchObserver traces and meters each pipeline run.
type MatchObserver interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordMatch(ctx context.Context, strategy, status string)
	RecordMatchDuration(ctx context.Context, duration time.Duration, strategy string)
}

// Engine orchestrates normalize -> filter -> score -> assemble for a single
// request. Stateless across requests; safe for concurrent use.
type Engine struct {
	cfg        config.MatchingConfig
	normalizer *Normalizer
	source     AssessmentSource
	store      CandidateStore
	cache      PoolCache
	recorder   ShownRecorder
	observer   MatchObserver
	logger     logger.Logger
}

type EngineOption func(*Engine)

// WithPoolCache adds a region-keyed snapshot cache.
func WithPoolCache(cache PoolCache) EngineOption {
	return func(e *Engine) { e.cache = cache }
}

// WithRecorder adds asynchronous history recording of shown results.
func WithRecorder(r ShownRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithObserver adds a span plus request and duration instruments per run.
func WithObserver(o MatchObserver) EngineOption {
	return func(e *Engine) { e.observer = o }
}

func NewEngine(cfg config.MatchingConfig, source AssessmentSource, store CandidateStore, log logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.NeedWeights),
		source:     source,
		store:      store,
		logger:     log.WithFields(map[string]interface{}{"component": "matching-engine"}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match resolves the assessment and runs the full pipeline. The returned
// slice is ordered, bounded by pref.MaxResults, and may be empty (not an
// error). History recording happens after the result is computed and cannot
// fail the call.
func (e *Engine) Match(ctx context.Context, assessmentID string, pref models.MatchingPreference, strategyName string) ([]models.MatchResult, error) {
	kind, err := ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	if err := pref.Validate(); err != nil {
		return nil, errors.NewInvalidPreferenceError(err.Error())
	}

	assessment, err := e.source.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	results, err := e.MatchAssessment(ctx, assessment, pref, kind)
	if err != nil {
		return nil, err
	}

	if e.recorder != nil && len(results) > 0 {
		e.recorder.RecordShown(assessmentID, pref, results)
	}

	return results, nil
}

// MatchAssessment runs the pipeline against an already-loaded assessment.
// Used by Match, the simulator and calibration tooling; performs the same
// validation but records no history.
func (e *Engine) MatchAssessment(ctx context.Context, assessment *models.CareAssessment, pref models.MatchingPreference, kind StrategyKind) ([]models.MatchResult, error) {
	start := time.Now()

	status := "error"
	if e.observer != nil {
		var span trace.Span
		ctx, span = e.observer.StartSpan(ctx, "matching.match")
		defer span.End()
		defer func() {
			e.observer.RecordMatch(ctx, string(kind), status)
			e.observer.RecordMatchDuration(ctx, time.Since(start), string(kind))
		}()
	}

	if err := pref.Validate(); err != nil {
		return nil, errors.NewInvalidPreferenceError(err.Error())
	}

	strategy, err := NewStrategy(kind, e.cfg)
	if err != nil {
		return nil, err
	}

	sctx := ScoringContext{Preference: pref}
	if kind == StrategyHealth {
		need, err := e.normalizer.Normalize(assessment)
		if err != nil {
			return nil, err
		}
		sctx.Need = need
	}

	pool, err := e.snapshotPool(ctx, pref.PreferredRegion)
	if err != nil {
		return nil, err
	}

	eligible := Filter(pool, pref)
	metrics.CandidatesFiltered.WithLabelValues(string(kind)).Add(float64(len(pool) - len(eligible)))
	metrics.CandidatesScored.WithLabelValues(string(kind)).Add(float64(len(eligible)))

	scored := e.scoreAll(eligible, strategy, sctx)
	results := Assemble(scored, pref.MaxResults, kind)

	status = "ok"
	metrics.MatchRequests.WithLabelValues(string(kind)).Inc()
	metrics.MatchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	e.logger.Debug("match pipeline complete", map[string]interface{}{
		"strategy":   string(kind),
		"poolSize":   len(pool),
		"eligible":   len(eligible),
		"returned":   len(results),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return results, nil
}

// snapshotPool reads the candidate pool, by region when one is preferred,
// through the cache when configured.
func (e *Engine) snapshotPool(ctx context.Context, region string) ([]models.MatchCandidate, error) {
	if region != "" && e.cache != nil {
		if pool, ok := e.cache.Get(ctx, region); ok {
			metrics.PoolCacheHits.WithLabelValues("hit").Inc()
			return pool, nil
		}
		metrics.PoolCacheHits.WithLabelValues("miss").Inc()
	}

	var pool []models.MatchCandidate
	var err error
	if region != "" {
		pool, err = e.store.ListCandidatesByRegion(ctx, region)
	} else {
		pool, err = e.store.ListAllCandidates(ctx)
	}
	if err != nil {
		return nil, errors.NewCandidateQueryFailedError(err)
	}

	if region != "" && e.cache != nil {
		e.cache.Set(ctx, region, pool)
	}

	return pool, nil
}

// scoreAll scores eligible candidates, in parallel for large pools. Results
// land in index-addressed slots so parallel order cannot leak into the
// output; Assemble re-sorts deterministically anyway.
func (e *Engine) scoreAll(eligible []models.MatchCandidate, strategy Strategy, sctx ScoringContext) []scoredCandidate {
	scored := make([]scoredCandidate, len(eligible))

	if len(eligible) < e.cfg.ParallelScoring || e.cfg.ScoringWorkers <= 1 {
		for i := range eligible {
			score, reason := strategy.Score(&eligible[i], sctx)
			scored[i] = scoredCandidate{candidate: eligible[i], score: score, reason: reason}
		}
		return scored
	}

	var wg sync.WaitGroup
	chunk := (len(eligible) + e.cfg.ScoringWorkers - 1) / e.cfg.ScoringWorkers
	for w := 0; w < e.cfg.ScoringWorkers; w++ {
		lo := w * chunk
		if lo >= len(eligible) {
			break
		}
		hi := lo + chunk
		if hi > len(eligible) {
			hi = len(eligible)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				score, reason := strategy.Score(&eligible[i], sctx)
				scored[i] = scoredCandidate{candidate: eligible[i], score: score, reason: reason}
			}
		}(lo, hi)
	}
	wg.Wait()

	return scored
}
