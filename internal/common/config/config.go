package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
	URL        string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Matching Configuration ---

// MatchingConfig holds the tunable parameters of the matching engine. The
// numeric weights are deliberately configuration, not code: the engine only
// guarantees determinism, monotonicity and bounded scales, never specific
// constants.
type MatchingConfig struct {
	NeedWeights     NeedWeights  `mapstructure:"need_weights"`
	ScoreWeights    ScoreWeights `mapstructure:"score_weights"`
	MaxDistanceKm   float64      `mapstructure:"max_distance_km"`
	PoolCacheTTL    int          `mapstructure:"pool_cache_ttl"` // seconds
	ParallelScoring int          `mapstructure:"parallel_scoring_threshold"`
	ScoringWorkers  int          `mapstructure:"scoring_workers"`
	TopKAccuracy    []int        `mapstructure:"top_k_accuracy"`
	WeightsRegistry string       `mapstructure:"weights_registry"` // optional JSON profile file
}

// NeedWeights converts ADL levels and the LTCI grade into the care-need score.
// All weights must be non-negative so the score stays monotonic in severity.
type NeedWeights struct {
	Mobility       float64 `mapstructure:"mobility"`
	Eating         float64 `mapstructure:"eating"`
	Toileting      float64 `mapstructure:"toileting"`
	Communication  float64 `mapstructure:"communication"`
	LTCIGrade      float64 `mapstructure:"ltci_grade"`
	ChronicDisease float64 `mapstructure:"chronic_disease"`
	Cognitive      float64 `mapstructure:"cognitive"`
}

// ScoreWeights combines the soft criteria into the health-based match score.
type ScoreWeights struct {
	Specialty    float64 `mapstructure:"specialty"`
	Experience   float64 `mapstructure:"experience"`
	Satisfaction float64 `mapstructure:"satisfaction"`
	Availability float64 `mapstructure:"availability"`
	Workload     float64 `mapstructure:"workload"`
}

// NotificationConfig holds settings for outcome notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
