package recordoutcome

import "time"

type Config struct {
	Timeout   time.Duration
	FromEmail string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   15 * time.Second,
		FromEmail: "noreply@carematch.example",
	}
}
