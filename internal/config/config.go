package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Supabase  SupabaseConfig  `yaml:"supabase"`
	Database  DatabaseConfig  `yaml:"database"`
	Economy   EconomyConfig   `yaml:"economy"`
	Notify    NotifyConfig    `yaml:"notify"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Session   SessionConfig   `yaml:"session"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	NATS      NATSConfig      `yaml:"nats"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"0s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// SupabaseConfig holds the Backend-as-a-Service endpoints and keys.
// JWTSecret is only needed by the HTTP server, which verifies access tokens locally.
type SupabaseConfig struct {
	URL            string        `yaml:"url"              env:"SUPABASE_URL"              env-required:"true"`
	AnonKey        string        `yaml:"anon_key"         env:"SUPABASE_ANON_KEY"         env-required:"true"`
	ServiceRoleKey string        `yaml:"service_role_key" env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret      string        `yaml:"jwt_secret"       env:"SUPABASE_JWT_SECRET"`
	RequestTimeout time.Duration `yaml:"request_timeout"  env:"SUPABASE_REQUEST_TIMEOUT"  env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings for batch jobs that
// talk to the database directly (service role).
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"               env:"DATABASE_DSN"`
	MaxConns         int32         `yaml:"max_conns"         env:"DATABASE_MAX_CONNS"         env-default:"8"`
	LockTimeout      time.Duration `yaml:"lock_timeout"      env:"DATABASE_LOCK_TIMEOUT"      env-default:"5s"`
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"DATABASE_STATEMENT_TIMEOUT" env-default:"30s"`
}

// EconomyConfig holds point-economy and pet rules.
type EconomyConfig struct {
	FeedCost          int           `yaml:"feed_cost"          env:"ECONOMY_FEED_COST"          env-default:"10"`
	DegenerationDays  int           `yaml:"degeneration_days"  env:"ECONOMY_DEGENERATION_DAYS"  env-default:"3"`
	LevelUpDelay      time.Duration `yaml:"level_up_delay"     env:"ECONOMY_LEVEL_UP_DELAY"     env-default:"1500ms"`
	Timezone          string        `yaml:"timezone"           env:"ECONOMY_TIMEZONE"           env-default:"Asia/Seoul"`
	DegenerationBatch int           `yaml:"degeneration_batch" env:"ECONOMY_DEGENERATION_BATCH" env-default:"200"`
	DegenerationJobs  int           `yaml:"degeneration_jobs"  env:"ECONOMY_DEGENERATION_JOBS"  env-default:"4"`

	// Location is parsed from Timezone during validation.
	Location *time.Location `yaml:"-" env:"-"`
}

// NotifyConfig holds notification listener settings.
type NotifyConfig struct {
	DedupWindow   time.Duration `yaml:"dedup_window"    env:"NOTIFY_DEDUP_WINDOW"    env-default:"3s"`
	SeenCacheSize int           `yaml:"seen_cache_size" env:"NOTIFY_SEEN_CACHE_SIZE" env-default:"512"`
	BufferSize    int           `yaml:"buffer_size"     env:"NOTIFY_BUFFER_SIZE"     env-default:"16"`
}

// RealtimeConfig holds websocket subscription settings.
type RealtimeConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"REALTIME_HEARTBEAT_INTERVAL" env-default:"25s"`
	ReconnectMin      time.Duration `yaml:"reconnect_min"      env:"REALTIME_RECONNECT_MIN"      env-default:"1s"`
	ReconnectMax      time.Duration `yaml:"reconnect_max"      env:"REALTIME_RECONNECT_MAX"      env-default:"30s"`
	LedgerTable       string        `yaml:"ledger_table"       env:"REALTIME_LEDGER_TABLE"       env-default:"point_logs"`
	SubmissionTable   string        `yaml:"submission_table"   env:"REALTIME_SUBMISSION_TABLE"   env-default:"student_posts"`
}

// SessionConfig holds per-student mirror session settings.
type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"   env:"SESSION_IDLE_TIMEOUT"   env-default:"10m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
	OpenTimeout   time.Duration `yaml:"open_timeout"   env:"SESSION_OPEN_TIMEOUT"   env-default:"15s"`
}

// CatalogConfig points to the shop catalog file. An empty path uses the built-in catalog.
type CatalogConfig struct {
	Path  string `yaml:"path"  env:"CATALOG_PATH"`
	Watch bool   `yaml:"watch" env:"CATALOG_WATCH" env-default:"true"`
}

// NATSConfig configures the optional JetStream key-value store. An empty URL
// selects the in-memory store.
type NATSConfig struct {
	URL    string `yaml:"url"    env:"NATS_URL"`
	Bucket string `yaml:"bucket" env:"NATS_KV_BUCKET" env-default:"hideout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RateLimitConfig limits spend requests per client.
type RateLimitConfig struct {
	SpendPerMinute int `yaml:"spend_per_minute" env:"RATE_LIMIT_SPEND_PER_MINUTE" env-default:"30"`
	MaxClients     int `yaml:"max_clients"      env:"RATE_LIMIT_MAX_CLIENTS"      env-default:"10000"`
}
