package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.Quota.DailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_DAILY_LIMIT must be positive, got %d", c.Quota.DailyLimit))
	}
	if c.Quota.ResetPolicy != "manual" && c.Quota.ResetPolicy != "rolling" {
		errs = append(errs, fmt.Sprintf("QUOTA_RESET_POLICY must be %q or %q, got %q", "manual", "rolling", c.Quota.ResetPolicy))
	}

	if c.Discovery.VideoPages < 1 {
		errs = append(errs, fmt.Sprintf("DISCOVERY_VIDEO_PAGES must be positive, got %d", c.Discovery.VideoPages))
	}
	if c.Discovery.ChannelPages < 1 {
		errs = append(errs, fmt.Sprintf("DISCOVERY_CHANNEL_PAGES must be positive, got %d", c.Discovery.ChannelPages))
	}
	if c.Discovery.RelatedDepth < 0 {
		errs = append(errs, fmt.Sprintf("DISCOVERY_RELATED_DEPTH must be non-negative, got %d", c.Discovery.RelatedDepth))
	}
	if c.Discovery.CacheTTLHours < 1 {
		errs = append(errs, fmt.Sprintf("DISCOVERY_CACHE_TTL_HOURS must be positive, got %d", c.Discovery.CacheTTLHours))
	}

	if c.Trending.MaxPages < 1 {
		errs = append(errs, fmt.Sprintf("TRENDING_MAX_PAGES must be positive, got %d", c.Trending.MaxPages))
	}

	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, fmt.Sprintf("RATELIMIT_MAX_REQUESTS must be positive, got %d", c.RateLimit.MaxRequests))
	}
	if c.RateLimit.WindowSec < 1 {
		errs = append(errs, fmt.Sprintf("RATELIMIT_WINDOW_SEC must be positive, got %d", c.RateLimit.WindowSec))
	}

	for _, key := range c.YouTube.APIKeys {
		if strings.ContainsAny(key, " \t\n") {
			errs = append(errs, fmt.Sprintf("YOUTUBE_API_KEYS contains a key with whitespace: %q", key))
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
