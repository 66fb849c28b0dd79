package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"carematch/internal/common/config"
)

// LoadRegistry reads and validates a profile registry file.
func LoadRegistry(path string) (*ProfileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reg ProfileRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse profile registry %s: %w", path, err)
	}

	if err := reg.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile registry %s: %w", path, err)
	}
	return &reg, nil
}

func (r *ProfileRegistry) validate() error {
	seen := map[string]bool{}
	for _, p := range r.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profile with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true

		for label, w := range map[string]float64{
			"mobility":       p.NeedWeights.Mobility,
			"eating":         p.NeedWeights.Eating,
			"toileting":      p.NeedWeights.Toileting,
			"communication":  p.NeedWeights.Communication,
			"ltciGrade":      p.NeedWeights.LTCIGrade,
			"chronicDisease": p.NeedWeights.ChronicDisease,
			"cognitive":      p.NeedWeights.Cognitive,
			"specialty":      p.ScoreWeights.Specialty,
			"experience":     p.ScoreWeights.Experience,
			"satisfaction":   p.ScoreWeights.Satisfaction,
			"availability":   p.ScoreWeights.Availability,
			"workload":       p.ScoreWeights.Workload,
		} {
			if w < 0 {
				return fmt.Errorf("profile %q: %s weight is negative", p.Name, label)
			}
		}

		total := p.ScoreWeights.Specialty + p.ScoreWeights.Experience +
			p.ScoreWeights.Satisfaction + p.ScoreWeights.Availability + p.ScoreWeights.Workload
		if total <= 0 {
			return fmt.Errorf("profile %q: score weights sum to zero", p.Name)
		}
	}
	return nil
}

// Find returns the named profile.
func (r *ProfileRegistry) Find(name string) (*Profile, bool) {
	for i := range r.Profiles {
		if r.Profiles[i].Name == name {
			return &r.Profiles[i], true
		}
	}
	return nil, false
}

// Apply overlays the profile's weights onto a matching configuration.
func (p *Profile) Apply(cfg *config.MatchingConfig) {
	cfg.NeedWeights = config.NeedWeights{
		Mobility:       p.NeedWeights.Mobility,
		Eating:         p.NeedWeights.Eating,
		Toileting:      p.NeedWeights.Toileting,
		Communication:  p.NeedWeights.Communication,
		LTCIGrade:      p.NeedWeights.LTCIGrade,
		ChronicDisease: p.NeedWeights.ChronicDisease,
		Cognitive:      p.NeedWeights.Cognitive,
	}
	cfg.ScoreWeights = config.ScoreWeights{
		Specialty:    p.ScoreWeights.Specialty,
		Experience:   p.ScoreWeights.Experience,
		Satisfaction: p.ScoreWeights.Satisfaction,
		Availability: p.ScoreWeights.Availability,
		Workload:     p.ScoreWeights.Workload,
	}
}
