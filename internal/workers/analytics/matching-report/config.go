package matchingreport

import "time"

type Config struct {
	Timeout      time.Duration
	MaxRangeDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		MaxRangeDays: 366,
	}
}
