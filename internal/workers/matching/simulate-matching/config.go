package simulatematching

import "time"

type Config struct {
	Timeout        time.Duration
	MaxCandidates  int
	MaxAssessments int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		MaxCandidates:  10000,
		MaxAssessments: 1000,
	}
}
