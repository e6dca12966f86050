// Package config loads tool settings from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/netflix/go-env"
)

// Config holds everything the tool reads from the environment. Token,
// channel and user are required; the rest have workable defaults.
type Config struct {
	Token     string `env:"SLACK_TOKEN"`
	ChannelID string `env:"SLACK_CHANNEL_ID"`
	UserID    string `env:"SLACK_USER_ID"`

	HTTPTimeout   time.Duration `env:"SLACK_HTTP_TIMEOUT,default=30s"`
	RatePerSecond float64       `env:"SLACK_RATE_PER_SECOND,default=1"`
	RateBurst     int           `env:"SLACK_RATE_BURST,default=1"`
}

// Load reads configuration from environment variables and validates it. The
// error for missing variables names every one of them so a first-time setup
// can be fixed in one pass.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	var missing []string
	if cfg.Token == "" {
		missing = append(missing, "SLACK_TOKEN (Slack API token, xoxp-... or xoxb-...)")
	}
	if cfg.ChannelID == "" {
		missing = append(missing, "SLACK_CHANNEL_ID (channel to read, e.g. C1234567890)")
	}
	if cfg.UserID == "" {
		missing = append(missing, "SLACK_USER_ID (user whose messages to fetch, e.g. U1234567890)")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables:\n  %s", strings.Join(missing, "\n  "))
	}

	// Clamp pacing settings to safe ranges.
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.RatePerSecond > 50 {
		cfg.RatePerSecond = 50
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = 1
	}

	return &cfg, nil
}
