// Package config loads server and CLI settings from an optional YAML file with
// PROVENANT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

const envPrefix = "PROVENANT_"

type Config struct {
	Env       string `koanf:"env"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	Server     Server
	Database   Database
	Redis      Redis
	Kafka      Kafka
	Tracing    Tracing
	Ledger     Ledger
	BreakGlass BreakGlass
	Compliance Compliance
	Identity   Identity
	Admin      Admin
}

type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Database is optional in development; without a URL the server runs on the
// in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type Redis struct {
	URL           string
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	EnrollmentTTL time.Duration
}

// Kafka is optional; without brokers accepted events stay in the outbox.
type Kafka struct {
	Brokers           []string
	Topic             string
	Partitions        int
	ReplicationFactor int
	ClientID          string
	RelayInterval     time.Duration
	RelayBatchSize    int
}

type Tracing struct {
	Exporter    string
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	ServiceName string
}

type Ledger struct {
	EnforceImmutability bool
}

type BreakGlass struct {
	MaxDuration      time.Duration
	MinJustification int
	SweepSchedule    string
}

type Compliance struct {
	Schedule string
}

type Identity struct {
	SigningKey string
	Issuer     string
	Audience   string
}

type Admin struct {
	TokenHash string
}

const (
	DefaultEnv              = "development"
	DefaultAddr             = ":8080"
	DefaultTopic            = "provenant.ledger.events"
	DefaultEnrollmentTTL    = 30 * time.Second
	DefaultMaxBreakGlass    = 24 * time.Hour
	DefaultMinJustification = 20
	DefaultSweepSchedule    = "@every 1m"
	DefaultAuditSchedule    = "0 2 * * *"
	DefaultServiceName      = "provenant"
	devSigningKey           = "dev-signing-key-change-in-production"
)

var (
	ErrMissingDatabaseURL   = errors.New("PROVENANT_DATABASE_URL is required in production")
	ErrMissingSigningKey    = errors.New("PROVENANT_IDENTITY_SIGNING_KEY is required in production")
	ErrMissingAdminToken    = errors.New("PROVENANT_ADMIN_TOKEN_HASH is required in production")
	ErrImmutabilityDisabled = errors.New("ledger.enforce_immutability cannot be disabled in production")
	ErrInvalidLogLevel      = errors.New("log_level must be one of debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("log_format must be json or text")
	ErrInvalidExporter      = errors.New("tracing.exporter must be none, otlp-http or otlp-grpc")
	ErrInvalidSampleRatio   = errors.New("tracing.sample_ratio must be within [0, 1]")
	ErrInvalidBreakGlass    = errors.New("breakglass.max_duration must be within (0, 24h]")
	ErrInvalidJustification = errors.New("breakglass.min_justification must be at least 20")
)

// Load reads path (optional) and applies environment overrides. All problems
// are returned together; a nil config means the file itself was unreadable.
func Load(path string) (*Config, []error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", path, err)}
		}
	}
	l := &loader{k: k}

	cfg := &Config{
		Env:       l.stringMulti([]string{envPrefix + "ENV", "ENVIRONMENT"}, "env", DefaultEnv),
		LogLevel:  l.string("log_level", "info"),
		LogFormat: l.string("log_format", ""),
		Server: Server{
			Addr:            l.string("server.addr", DefaultAddr),
			ReadTimeout:     l.duration("server.read_timeout", 15*time.Second),
			WriteTimeout:    l.duration("server.write_timeout", 30*time.Second),
			ShutdownTimeout: l.duration("server.shutdown_timeout", 20*time.Second),
		},
		Database: Database{
			URL:             l.string("database.url", ""),
			MaxOpenConns:    l.int("database.max_open_conns", 20),
			MaxIdleConns:    l.int("database.max_idle_conns", 5),
			ConnMaxLifetime: l.duration("database.conn_max_lifetime", 30*time.Minute),
			AutoMigrate:     l.bool("database.auto_migrate", true),
		},
		Redis: Redis{
			URL:           l.string("redis.url", ""),
			PoolSize:      l.int("redis.pool_size", 10),
			MinIdleConns:  l.int("redis.min_idle_conns", 2),
			DialTimeout:   l.duration("redis.dial_timeout", 5*time.Second),
			ReadTimeout:   l.duration("redis.read_timeout", 3*time.Second),
			WriteTimeout:  l.duration("redis.write_timeout", 3*time.Second),
			EnrollmentTTL: l.duration("redis.enrollment_ttl", DefaultEnrollmentTTL),
		},
		Kafka: Kafka{
			Brokers:           l.list("kafka.brokers"),
			Topic:             l.string("kafka.topic", DefaultTopic),
			Partitions:        l.int("kafka.partitions", 6),
			ReplicationFactor: l.int("kafka.replication_factor", 1),
			ClientID:          l.string("kafka.client_id", DefaultServiceName),
			RelayInterval:     l.duration("kafka.relay_interval", time.Second),
			RelayBatchSize:    l.int("kafka.relay_batch_size", 100),
		},
		Tracing: Tracing{
			Exporter:    l.string("tracing.exporter", "none"),
			Endpoint:    l.string("tracing.endpoint", ""),
			Insecure:    l.bool("tracing.insecure", false),
			SampleRatio: l.float("tracing.sample_ratio", 1),
			ServiceName: l.string("tracing.service_name", DefaultServiceName),
		},
		Ledger: Ledger{
			EnforceImmutability: l.bool("ledger.enforce_immutability", true),
		},
		BreakGlass: BreakGlass{
			MaxDuration:      l.duration("breakglass.max_duration", DefaultMaxBreakGlass),
			MinJustification: l.int("breakglass.min_justification", DefaultMinJustification),
			SweepSchedule:    l.string("breakglass.sweep_schedule", DefaultSweepSchedule),
		},
		Compliance: Compliance{
			Schedule: l.string("compliance.schedule", DefaultAuditSchedule),
		},
		Identity: Identity{
			SigningKey: l.string("identity.signing_key", ""),
			Issuer:     l.string("identity.issuer", ""),
			Audience:   l.string("identity.audience", ""),
		},
		Admin: Admin{
			TokenHash: l.string("admin.token_hash", ""),
		},
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}
	if cfg.Identity.SigningKey == "" && !cfg.IsProduction() {
		cfg.Identity.SigningKey = devSigningKey
	}

	return cfg, append(l.errs, cfg.Validate()...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasDatabase reports whether the postgres stores are configured.
func (c *Config) HasDatabase() bool { return c.Database.URL != "" }

// SlogLevel maps LogLevel to a slog level; unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate collects every configuration problem. Production refuses insecure
// defaults and disabled immutability enforcement.
func (c *Config) Validate() []error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ErrInvalidLogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, ErrInvalidLogFormat)
	}
	switch c.Tracing.Exporter {
	case "none", "otlp-http", "otlp-grpc":
	default:
		errs = append(errs, ErrInvalidExporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, ErrInvalidSampleRatio)
	}
	if c.BreakGlass.MaxDuration <= 0 || c.BreakGlass.MaxDuration > DefaultMaxBreakGlass {
		errs = append(errs, ErrInvalidBreakGlass)
	}
	if c.BreakGlass.MinJustification < DefaultMinJustification {
		errs = append(errs, ErrInvalidJustification)
	}
	for name, spec := range map[string]string{
		"compliance.schedule":       c.Compliance.Schedule,
		"breakglass.sweep_schedule": c.BreakGlass.SweepSchedule,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s is not a valid cron schedule: %w", name, err))
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}

	if c.IsProduction() {
		if c.Database.URL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
		if c.Identity.SigningKey == "" || c.Identity.SigningKey == devSigningKey {
			errs = append(errs, ErrMissingSigningKey)
		}
		if c.Admin.TokenHash == "" {
			errs = append(errs, ErrMissingAdminToken)
		}
		if !c.Ledger.EnforceImmutability {
			errs = append(errs, ErrImmutabilityDisabled)
		}
	}
	return errs
}

// LogSummary returns the effective settings with secrets masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"env":                  c.Env,
		"addr":                 c.Server.Addr,
		"database_url":         maskURL(c.Database.URL),
		"redis_url":            maskURL(c.Redis.URL),
		"kafka_brokers":        strings.Join(c.Kafka.Brokers, ","),
		"kafka_topic":          c.Kafka.Topic,
		"tracing_exporter":     c.Tracing.Exporter,
		"enforce_immutability": strconv.FormatBool(c.Ledger.EnforceImmutability),
		"compliance_schedule":  c.Compliance.Schedule,
		"signing_key":          maskSecret(c.Identity.SigningKey),
		"admin_token_hash":     maskSecret(c.Admin.TokenHash),
	}
}

// loader resolves one key from the environment first, then the file, then
// the default. Parse failures are collected.
type loader struct {
	k    *koanf.Koanf
	errs []error
}

// envKey maps "database.max_open_conns" to PROVENANT_DATABASE_MAX_OPEN_CONNS.
func envKey(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (l *loader) raw(key string) (string, bool) {
	if v := os.Getenv(envKey(key)); v != "" {
		return v, true
	}
	if l.k.Exists(key) {
		return l.k.String(key), true
	}
	return "", false
}

func (l *loader) string(key, def string) string {
	if v, ok := l.raw(key); ok && v != "" {
		return v
	}
	return def
}

func (l *loader) stringMulti(envKeys []string, key, def string) string {
	for _, e := range envKeys {
		if v := os.Getenv(e); v != "" {
			return v
		}
	}
	return l.string(key, def)
}

func (l *loader) int(key string, def int) int {
	v, ok := l.raw(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s must be an integer: %w", key, err))
		return def
	}
	return i
}

func (l *loader) float(key string, def float64) float64 {
	v, ok := l.raw(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s must be a number: %w", key, err))
		return def
	}
	return f
}

func (l *loader) bool(key string, def bool) bool {
	v, ok := l.raw(key)
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	l.errs = append(l.errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	return def
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v, ok := l.raw(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s must be a duration: %w", key, err))
		return def
	}
	return d
}

// list accepts a comma-separated env value or a YAML sequence.
func (l *loader) list(key string) []string {
	if v := os.Getenv(envKey(key)); v != "" {
		return compact(strings.Split(v, ","))
	}
	return compact(l.k.Strings(key))
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	if raw == "" {
		return "<not set>"
	}
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	creds := raw[scheme+3 : at]
	if user, _, found := strings.Cut(creds, ":"); found {
		return raw[:scheme+3] + user + ":****" + raw[at:]
	}
	return raw
}
