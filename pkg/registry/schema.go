// Package registry loads named scoring-weight profiles from a JSON file so
// deployments can switch weight sets without a rebuild.
package registry

// ProfileRegistry is the on-disk registry of scoring profiles.
type ProfileRegistry struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated"`
	Profiles    []Profile `json:"profiles"`
}

// Profile is one named weight set. Need weights shape the care-need score;
// score weights shape the health-based match score.
type Profile struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	NeedWeights struct {
		Mobility       float64 `json:"mobility"`
		Eating         float64 `json:"eating"`
		Toileting      float64 `json:"toileting"`
		Communication  float64 `json:"communication"`
		LTCIGrade      float64 `json:"ltciGrade"`
		ChronicDisease float64 `json:"chronicDisease"`
		Cognitive      float64 `json:"cognitive"`
	} `json:"needWeights"`

	ScoreWeights struct {
		Specialty    float64 `json:"specialty"`
		Experience   float64 `json:"experience"`
		Satisfaction float64 `json:"satisfaction"`
		Availability float64 `json:"availability"`
		Workload     float64 `json:"workload"`
	} `json:"scoreWeights"`
}
