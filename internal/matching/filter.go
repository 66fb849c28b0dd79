package matching

import "carematch/internal/models"

// Filter applies the hard constraints from the preference, independently and
// conjunctively. An empty result is valid. Filtering never errors; the
// preference is validated by the engine before it gets here.
func Filter(candidates []models.MatchCandidate, pref models.MatchingPreference) []models.MatchCandidate {
	eligible := make([]models.MatchCandidate, 0, len(candidates))

	for _, c := range candidates {
		if !eligibleCandidate(&c, pref) {
			continue
		}
		eligible = append(eligible, c)
	}

	return eligible
}

func eligibleCandidate(c *models.MatchCandidate, pref models.MatchingPreference) bool {
	// Fully booked candidates are always excluded, independent of preference.
	if c.WorkloadRatio() > 1.0 {
		return false
	}

	if pref.PreferredLanguage != "" && !c.SpeaksLanguage(pref.PreferredLanguage) {
		return false
	}

	if pref.PreferredRegion != "" && !c.ServesRegion(pref.PreferredRegion) {
		return false
	}

	if c.Satisfaction < pref.MinSatisfaction {
		return false
	}

	if pref.NeedsWeekendAvailability && !c.WeekendAvailable {
		return false
	}

	if pref.NeedsEmergencyAvailability && !c.EmergencyAvailable {
		return false
	}

	// Facility-only constraints; coordinators pass through.
	if c.Kind == models.KindFacility {
		if pref.MaxMonthlyFee != nil && c.MonthlyFee > *pref.MaxMonthlyFee {
			return false
		}
		if pref.MinFacilityGrade != "" && !c.GradeAtLeast(pref.MinFacilityGrade) {
			return false
		}
	}

	return true
}
