package managecatalogproduct

import (
	"time"

	"github.com/google/uuid"
)

type Config struct {
	Timeout time.Duration
	Now     func() time.Time
	NewID   func() string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}
