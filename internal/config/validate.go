package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Supabase.validate(); err != nil {
		return fmt.Errorf("supabase: %w", err)
	}

	if err := c.Economy.validate(); err != nil {
		return fmt.Errorf("economy: %w", err)
	}

	if c.Notify.DedupWindow < 0 {
		return fmt.Errorf("notify: dedup_window must be >= 0 (got %s)", c.Notify.DedupWindow)
	}
	if c.Notify.SeenCacheSize <= 0 {
		return fmt.Errorf("notify: seen_cache_size must be > 0 (got %d)", c.Notify.SeenCacheSize)
	}

	if c.Realtime.ReconnectMin <= 0 || c.Realtime.ReconnectMax < c.Realtime.ReconnectMin {
		return fmt.Errorf("realtime: reconnect window %s..%s is invalid", c.Realtime.ReconnectMin, c.Realtime.ReconnectMax)
	}

	if c.RateLimit.SpendPerMinute > 0 && c.RateLimit.MaxClients <= 0 {
		return fmt.Errorf("rate_limit: max_clients must be > 0 when limiting (got %d)", c.RateLimit.MaxClients)
	}
	if c.Database.LockTimeout < 0 || c.Database.StatementTimeout < 0 {
		return fmt.Errorf("database: timeouts must be >= 0")
	}

	return nil
}

// RequireServerSecrets checks the settings only the HTTP server needs.
func (c *Config) RequireServerSecrets() error {
	if len(c.Supabase.JWTSecret) < 32 {
		return fmt.Errorf("supabase.jwt_secret must be at least 32 characters (got %d)", len(c.Supabase.JWTSecret))
	}
	return nil
}

func (s *SupabaseConfig) validate() error {
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q is not an absolute URL", s.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https (got %s)", u.Scheme)
	}
	s.URL = strings.TrimRight(s.URL, "/")
	if s.AnonKey == "" {
		return fmt.Errorf("anon_key is required")
	}
	return nil
}

func (e *EconomyConfig) validate() error {
	if e.FeedCost <= 0 {
		return fmt.Errorf("feed_cost must be > 0 (got %d)", e.FeedCost)
	}
	if e.DegenerationDays <= 0 {
		return fmt.Errorf("degeneration_days must be > 0 (got %d)", e.DegenerationDays)
	}
	if e.LevelUpDelay < 0 {
		return fmt.Errorf("level_up_delay must be >= 0 (got %s)", e.LevelUpDelay)
	}
	if e.DegenerationBatch <= 0 {
		e.DegenerationBatch = 200
	}
	if e.DegenerationJobs <= 0 {
		e.DegenerationJobs = 1
	}

	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", e.Timezone, err)
	}
	e.Location = loc

	return nil
}
