package fetchtoppickcandidates

import (
	"time"

	"toppick-workers/internal/catalog"
)

type Config struct {
	Timeout        time.Duration
	CandidateLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		CandidateLimit: catalog.MaxCandidates,
	}
}
