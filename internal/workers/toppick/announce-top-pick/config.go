package announcetoppick

import "time"

type Config struct {
	Enabled  bool
	TopicARN string
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
