package selecttoppick

import (
	"time"

	"toppick-workers/internal/catalog"
)

type Config struct {
	Timeout        time.Duration
	CandidateLimit int
	// Now is the evaluation clock used when the job carries no evaluatedAt.
	Now func() time.Time
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		CandidateLimit: catalog.MaxCandidates,
		Now:            time.Now,
	}
}
