package matchcandidates

import "time"

type Config struct {
	Timeout         time.Duration
	DefaultStrategy string
	MaxResultsCap   int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         15 * time.Second,
		DefaultStrategy: "health",
		MaxResultsCap:   100,
	}
}
