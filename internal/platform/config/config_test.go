package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, errs := Load("")
	require.Empty(t, errs)

	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.Ledger.EnforceImmutability)
	assert.False(t, cfg.HasDatabase())
	assert.Equal(t, DefaultEnrollmentTTL, cfg.Redis.EnrollmentTTL)
	assert.Equal(t, DefaultMaxBreakGlass, cfg.BreakGlass.MaxDuration)
	assert.NotEmpty(t, cfg.Identity.SigningKey)
}

func TestLoadFileWithEnvOverrides(t *testing.T) {
	t.Setenv("PROVENANT_SERVER_ADDR", ":7070")
	t.Setenv("PROVENANT_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("PROVENANT_REDIS_ENROLLMENT_TTL", "45s")

	cfg, errs := Load(filepath.Join("testdata", "provenant.yaml"))
	require.Empty(t, errs)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 40, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Second, cfg.Redis.EnrollmentTTL)
	assert.Equal(t, "30 1 * * *", cfg.Compliance.Schedule)
	assert.Equal(t, "postgres://provenant:****@db:5432/provenant?sslmode=disable", cfg.LogSummary()["database_url"])
}

func TestLoadCollectsParseErrors(t *testing.T) {
	t.Setenv("PROVENANT_DATABASE_MAX_OPEN_CONNS", "many")
	t.Setenv("PROVENANT_LEDGER_ENFORCE_IMMUTABILITY", "maybe")
	t.Setenv("PROVENANT_COMPLIANCE_SCHEDULE", "every night")

	_, errs := Load("")
	assert.Len(t, errs, 3)
}

func TestMissingFileFails(t *testing.T) {
	cfg, errs := Load(filepath.Join("testdata", "missing.yaml"))
	assert.Nil(t, cfg)
	assert.Len(t, errs, 1)
}

func TestProductionRefusesInsecureDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PROVENANT_LEDGER_ENFORCE_IMMUTABILITY", "false")

	cfg, errs := Load("")
	require.NotNil(t, cfg)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.ErrorIs(t, errs[0], ErrMissingDatabaseURL)
	assert.Contains(t, errs, ErrMissingSigningKey)
	assert.Contains(t, errs, ErrMissingAdminToken)
	assert.Contains(t, errs, ErrImmutabilityDisabled)
}

func TestValidateRanges(t *testing.T) {
	cfg, errs := Load("")
	require.Empty(t, errs)

	cfg.BreakGlass.MaxDuration = 48 * time.Hour
	cfg.BreakGlass.MinJustification = 5
	cfg.Tracing.Exporter = "zipkin"
	cfg.Tracing.SampleRatio = 2
	cfg.LogLevel = "loud"

	errs = cfg.Validate()
	assert.Contains(t, errs, ErrInvalidBreakGlass)
	assert.Contains(t, errs, ErrInvalidJustification)
	assert.Contains(t, errs, ErrInvalidExporter)
	assert.Contains(t, errs, ErrInvalidSampleRatio)
	assert.Contains(t, errs, ErrInvalidLogLevel)
}
