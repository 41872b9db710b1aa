package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Supabase: SupabaseConfig{
			URL:     "https://abc.supabase.co",
			AnonKey: "anon-key",
		},
		Economy: EconomyConfig{
			FeedCost:          10,
			DegenerationDays:  3,
			LevelUpDelay:      1500 * time.Millisecond,
			Timezone:          "Asia/Seoul",
			DegenerationBatch: 200,
			DegenerationJobs:  4,
		},
		Notify: NotifyConfig{
			DedupWindow:   3 * time.Second,
			SeenCacheSize: 512,
			BufferSize:    16,
		},
		Realtime: RealtimeConfig{
			HeartbeatInterval: 25 * time.Second,
			ReconnectMin:      time.Second,
			ReconnectMax:      30 * time.Second,
		},
	}
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"
  shutdown_timeout: "5s"

supabase:
  url: "https://abc.supabase.co/"
  anon_key: "anon"
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"

economy:
  feed_cost: 15
  degeneration_days: 5
  level_up_delay: "2s"
  timezone: "UTC"

notify:
  dedup_window: "4s"
  seen_cache_size: 64

nats:
  url: "nats://localhost:4222"

log:
  level: "debug"
  format: "text"
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Server
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server.read_timeout = %v, want %v", cfg.Server.ReadTimeout, 5*time.Second)
	}

	// Supabase
	if cfg.Supabase.URL != "https://abc.supabase.co" {
		t.Errorf("supabase.url = %q, trailing slash should be trimmed", cfg.Supabase.URL)
	}
	if err := cfg.RequireServerSecrets(); err != nil {
		t.Errorf("RequireServerSecrets: %v", err)
	}

	// Economy
	if cfg.Economy.FeedCost != 15 {
		t.Errorf("economy.feed_cost = %d, want 15", cfg.Economy.FeedCost)
	}
	if cfg.Economy.DegenerationDays != 5 {
		t.Errorf("economy.degeneration_days = %d, want 5", cfg.Economy.DegenerationDays)
	}
	if cfg.Economy.LevelUpDelay != 2*time.Second {
		t.Errorf("economy.level_up_delay = %v, want 2s", cfg.Economy.LevelUpDelay)
	}
	if cfg.Economy.Location == nil || cfg.Economy.Location.String() != "UTC" {
		t.Errorf("economy.location = %v, want UTC", cfg.Economy.Location)
	}

	// Notify
	if cfg.Notify.DedupWindow != 4*time.Second {
		t.Errorf("notify.dedup_window = %v, want 4s", cfg.Notify.DedupWindow)
	}
	if cfg.Notify.BufferSize != 16 {
		t.Errorf("notify.buffer_size = %d, want 16 (default)", cfg.Notify.BufferSize)
	}

	// NATS
	if cfg.NATS.Bucket != "hideout" {
		t.Errorf("nats.bucket = %q, want default", cfg.NATS.Bucket)
	}

	// Log
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log.format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("ECONOMY_FEED_COST", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("server.port = %d, want 3000 (ENV override)", cfg.Server.Port)
	}
	if cfg.Economy.FeedCost != 7 {
		t.Errorf("economy.feed_cost = %d, want 7 (ENV override)", cfg.Economy.FeedCost)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Economy.FeedCost != 10 {
		t.Errorf("economy.feed_cost = %d, want 10 (default)", cfg.Economy.FeedCost)
	}
	if cfg.Economy.Timezone != "Asia/Seoul" {
		t.Errorf("economy.timezone = %q, want Asia/Seoul", cfg.Economy.Timezone)
	}
	if cfg.Notify.DedupWindow != 3*time.Second {
		t.Errorf("notify.dedup_window = %v, want 3s", cfg.Notify.DedupWindow)
	}
	if cfg.Realtime.HeartbeatInterval != 25*time.Second {
		t.Errorf("realtime.heartbeat_interval = %v, want 25s", cfg.Realtime.HeartbeatInterval)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Economy.Location == nil {
		t.Fatal("location should be resolved")
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"relative url", func(c *Config) { c.Supabase.URL = "abc.supabase.co" }},
		{"ftp url", func(c *Config) { c.Supabase.URL = "ftp://abc.supabase.co" }},
		{"empty anon key", func(c *Config) { c.Supabase.AnonKey = "" }},
		{"zero feed cost", func(c *Config) { c.Economy.FeedCost = 0 }},
		{"negative degeneration days", func(c *Config) { c.Economy.DegenerationDays = -1 }},
		{"negative level up delay", func(c *Config) { c.Economy.LevelUpDelay = -time.Second }},
		{"unknown timezone", func(c *Config) { c.Economy.Timezone = "Mars/Olympus" }},
		{"negative dedup window", func(c *Config) { c.Notify.DedupWindow = -time.Second }},
		{"zero seen cache", func(c *Config) { c.Notify.SeenCacheSize = 0 }},
		{"inverted reconnect window", func(c *Config) { c.Realtime.ReconnectMax = 0 }},
		{"limiter without clients", func(c *Config) { c.RateLimit = RateLimitConfig{SpendPerMinute: 30} }},
		{"negative lock timeout", func(c *Config) { c.Database.LockTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRequireServerSecrets_ShortSecret(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Supabase.JWTSecret = "short"

	if err := cfg.RequireServerSecrets(); err == nil {
		t.Fatal("expected error for short JWT secret")
	}
}

func TestDescribe_ListsEnvVars(t *testing.T) {
	t.Parallel()

	text, err := Describe()
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	for _, name := range []string{"SUPABASE_URL", "ECONOMY_FEED_COST", "DATABASE_LOCK_TIMEOUT", "RATE_LIMIT_MAX_CLIENTS"} {
		if !strings.Contains(text, name) {
			t.Errorf("description is missing %s", name)
		}
	}
}
