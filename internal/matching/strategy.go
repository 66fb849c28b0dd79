package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"carematch/internal/common/config"
	"carematch/internal/common/errors"
	"carematch/internal/models"
)

// StrategyKind selects the scoring computation for a request.
type StrategyKind string

const (
	StrategyHealth   StrategyKind = "health"
	StrategyDistance StrategyKind = "distance"
	StrategyRating   StrategyKind = "rating"
)

// ParseStrategy maps a request value onto a StrategyKind. Empty defaults to
// health-based.
func ParseStrategy(name string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "health", "health-based":
		return StrategyHealth, nil
	case "distance", "distance-based":
		return StrategyDistance, nil
	case "rating", "rating-based":
		return StrategyRating, nil
	default:
		return "", errors.NewUnknownStrategyError(name)
	}
}

// ScoringContext carries the per-request inputs every strategy scores against.
type ScoringContext struct {
	Need       models.CareNeedSummary
	Preference models.MatchingPreference
}

// Strategy computes a normalized 0..1 match score and a short reason naming
// the dominant contributing factors. Implementations must be pure functions
// of their inputs.
type Strategy interface {
	Kind() StrategyKind
	Score(c *models.MatchCandidate, sctx ScoringContext) (float64, string)
}

// NewStrategy builds the strategy for a kind using the configured weights.
func NewStrategy(kind StrategyKind, cfg config.MatchingConfig) (Strategy, error) {
	switch kind {
	case StrategyHealth:
		return &healthStrategy{weights: cfg.ScoreWeights}, nil
	case StrategyDistance:
		return &distanceStrategy{maxKm: cfg.MaxDistanceKm}, nil
	case StrategyRating:
		return &ratingStrategy{}, nil
	default:
		return nil, errors.NewUnknownStrategyError(string(kind))
	}
}

// ---- health-based (default) ----

type healthStrategy struct {
	weights config.ScoreWeights
}

func (s *healthStrategy) Kind() StrategyKind { return StrategyHealth }

// contribution is one weighted component, kept for reason rendering.
type contribution struct {
	label    string
	weighted float64
}

func (s *healthStrategy) Score(c *models.MatchCandidate, sctx ScoringContext) (float64, string) {
	w := s.weights

	specialty := specialtyOverlap(c.Specialties, sctx.Need.RequiredSpecialties)
	experience := experienceComponent(c.ExperienceYears, c.SuccessfulCases)
	satisfaction := clamp01(c.Satisfaction / 5.0)
	availability := availabilityComponent(c, sctx.Preference)
	load := clamp01(1.0 - c.WorkloadRatio())

	contribs := []contribution{
		{"specialty match", w.Specialty * specialty},
		{"strong experience", w.Experience * experience},
		{"high satisfaction", w.Satisfaction * satisfaction},
		{"availability fit", w.Availability * availability},
		{"low workload", w.Workload * load},
	}

	total := w.Specialty + w.Experience + w.Satisfaction + w.Availability + w.Workload
	if total <= 0 {
		return 0, "no scoring weights configured"
	}

	sum := 0.0
	for _, ct := range contribs {
		sum += ct.weighted
	}

	return clamp01(sum / total), renderReason(contribs)
}

// specialtyOverlap is the fraction of need-implied specialties the candidate
// covers. Neutral 0.5 when the need implies none.
func specialtyOverlap(have, required []string) float64 {
	if len(required) == 0 {
		return 0.5
	}
	set := make(map[string]bool, len(have))
	for _, s := range have {
		set[strings.ToLower(s)] = true
	}
	matched := 0
	for _, r := range required {
		if set[strings.ToLower(r)] {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// experienceComponent blends years and successful cases, each saturating.
func experienceComponent(years, cases int) float64 {
	y := clamp01(float64(years) / 10.0)
	c := clamp01(float64(cases) / 100.0)
	return 0.6*y + 0.4*c
}

// availabilityComponent rewards candidates that satisfy required availability
// flags; neutral when nothing was required.
func availabilityComponent(c *models.MatchCandidate, pref models.MatchingPreference) float64 {
	required := 0
	satisfied := 0
	if pref.NeedsWeekendAvailability {
		required++
		if c.WeekendAvailable {
			satisfied++
		}
	}
	if pref.NeedsEmergencyAvailability {
		required++
		if c.EmergencyAvailable {
			satisfied++
		}
	}
	if required == 0 {
		return 0.5
	}
	return float64(satisfied) / float64(required)
}

// renderReason names the one or two dominant weighted components.
func renderReason(contribs []contribution) string {
	sorted := make([]contribution, len(contribs))
	copy(sorted, contribs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].weighted > sorted[j].weighted
	})

	if len(sorted) == 0 || sorted[0].weighted <= 0 {
		return "baseline fit"
	}
	if len(sorted) > 1 && sorted[1].weighted >= 0.6*sorted[0].weighted {
		return sorted[0].label + " and " + sorted[1].label
	}
	return sorted[0].label
}

// ---- distance-based ----

type distanceStrategy struct {
	maxKm float64
}

func (s *distanceStrategy) Kind() StrategyKind { return StrategyDistance }

func (s *distanceStrategy) Score(c *models.MatchCandidate, sctx ScoringContext) (float64, string) {
	if sctx.Preference.Location == nil || c.Location == nil {
		return 0, "no location data"
	}

	km := haversineKm(*sctx.Preference.Location, *c.Location)
	score := clamp01(1.0 - km/s.maxKm)
	return score, fmt.Sprintf("within %.1f km", km)
}

// haversineKm is the great-circle distance between two WGS84 points.
func haversineKm(a, b models.GeoPoint) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// ---- rating-based ----

type ratingStrategy struct{}

func (s *ratingStrategy) Kind() StrategyKind { return StrategyRating }

func (s *ratingStrategy) Score(c *models.MatchCandidate, _ ScoringContext) (float64, string) {
	if c.EvaluationScore > 0 {
		return clamp01(c.EvaluationScore / 100.0), fmt.Sprintf("evaluation score %.0f", c.EvaluationScore)
	}
	if c.EvaluationGrade != "" {
		return c.GradeScore(), fmt.Sprintf("evaluation grade %s", strings.ToUpper(c.EvaluationGrade))
	}
	// Coordinators have no evaluation grade; fall back to satisfaction.
	return clamp01(c.Satisfaction / 5.0), fmt.Sprintf("satisfaction %.1f", c.Satisfaction)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
