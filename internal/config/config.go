package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"development"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
	Authz     AuthzConfig     `yaml:"authz"`
	Chat      ChatConfig      `yaml:"chat"`
	Remote    RemoteConfig    `yaml:"remote"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Local     LocalConfig     `yaml:"local"`
}

// IsProduction reports whether secrets are mandatory.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings. Only the API server
// needs a DSN.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"labassist"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RateLimitConfig holds per-client HTTP rate limits.
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"              env-default:"10"`
	Burst             int           `yaml:"burst"               env:"RATE_LIMIT_BURST"            env-default:"20"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"    env:"RATE_LIMIT_CLEANUP_INTERVAL" env-default:"1m"`
}

// AuditConfig holds audit logger settings.
type AuditConfig struct {
	HMACSecret    string        `yaml:"hmac_secret"    env:"AUDIT_HMAC_SECRET"`
	BatchSize     int           `yaml:"batch_size"     env:"AUDIT_BATCH_SIZE"     env-default:"100"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"AUDIT_FLUSH_INTERVAL" env-default:"5s"`
	RingSize      int           `yaml:"ring_size"      env:"AUDIT_RING_SIZE"      env-default:"1000"`
	Debug         bool          `yaml:"debug"          env:"AUDIT_DEBUG"          env-default:"false"`
	// Sink selects where the API server sends its own audit entries:
	// "postgres" or "amqp".
	Sink string `yaml:"sink" env:"AUDIT_SINK" env-default:"postgres"`
}

// AuthzConfig holds authorization cache and business hours settings.
type AuthzConfig struct {
	CacheTTL   time.Duration `yaml:"cache_ttl"   env:"AUTHZ_CACHE_TTL"   env-default:"60s"`
	CacheSize  int           `yaml:"cache_size"  env:"AUTHZ_CACHE_SIZE"  env-default:"4096"`
	HoursStart int           `yaml:"hours_start" env:"AUTHZ_HOURS_START" env-default:"7"`
	HoursEnd   int           `yaml:"hours_end"   env:"AUTHZ_HOURS_END"   env-default:"19"`
	Timezone   string        `yaml:"timezone"    env:"AUTHZ_TIMEZONE"    env-default:"UTC"`

	// Location is parsed from Timezone during validation.
	Location *time.Location `yaml:"-" env:"-"`
}

// ChatConfig holds thread store settings.
type ChatConfig struct {
	MaxThreads      int           `yaml:"max_threads"      env:"CHAT_MAX_THREADS"      env-default:"50"`
	MaxMessages     int           `yaml:"max_messages"     env:"CHAT_MAX_MESSAGES"     env-default:"100"`
	ArchiveAfter    time.Duration `yaml:"archive_after"    env:"CHAT_ARCHIVE_AFTER"    env-default:"720h"`
	ArchiveInterval time.Duration `yaml:"archive_interval" env:"CHAT_ARCHIVE_INTERVAL" env-default:"1h"`
	SaveDebounce    time.Duration `yaml:"save_debounce"    env:"CHAT_SAVE_DEBOUNCE"    env-default:"0s"`
	LoadPageSize    int           `yaml:"load_page_size"   env:"CHAT_LOAD_PAGE_SIZE"   env-default:"50"`
	LabData         bool          `yaml:"lab_data"         env:"CHAT_LAB_DATA"         env-default:"false"`
	StreamDelay     time.Duration `yaml:"stream_delay"     env:"CHAT_STREAM_DELAY"     env-default:"30ms"`
}

// RemoteConfig points the CLI at the persistence endpoint.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" env:"REMOTE_BASE_URL" env-default:"http://localhost:8080/api/v1"`
	Token   string        `yaml:"token"    env:"REMOTE_TOKEN"`
	Timeout time.Duration `yaml:"timeout"  env:"REMOTE_TIMEOUT"  env-default:"10s"`
}

// AMQPConfig holds RabbitMQ settings for the audit publisher.
type AMQPConfig struct {
	URL        string `yaml:"url"         env:"AMQP_URL"`
	Exchange   string `yaml:"exchange"    env:"AMQP_EXCHANGE"    env-default:"labassist.audit"`
	RoutingKey string `yaml:"routing_key" env:"AMQP_ROUTING_KEY" env-default:"audit.batch"`
}

// LocalConfig holds the CLI's local snapshot settings.
type LocalConfig struct {
	Path string `yaml:"path" env:"LOCAL_SNAPSHOT_PATH" env-default:"labchat.db"`
}
