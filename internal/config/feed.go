package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// FeedConfig configures the change feed follower.
type FeedConfig struct {
	RedisURL string `env:"REDIS_URL,required"`

	// Stream ID to start after: "$" for new events only, "0-0" to replay.
	From string `env:"FEED_FROM" envDefault:"$"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadFeed parses environment variables and returns a FeedConfig.
func LoadFeed() (*FeedConfig, error) {
	cfg := &FeedConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	return cfg, nil
}
