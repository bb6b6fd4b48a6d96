package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.BadgerPath)
	assert.Equal(t, 30, cfg.School.ReportWindowDays)
	assert.Equal(t, 3, cfg.Resilience.MaxAttempts)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, "school:", cfg.Redis.KeyPrefix)
	assert.True(t, cfg.Features.UniqueGradesPerAssignment())
	assert.False(t, cfg.Features.StrictAttendanceRoster())
	assert.True(t, cfg.Features.SelfRegistration())
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	env := "STORAGE_BACKEND=memory\nSCHOOL_REPORT_WINDOW_DAYS=14\nFEATURE_ATTENDANCE_STRICT_ROSTER=true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	// Real environment wins over .env.
	t.Setenv("SCHOOL_REPORT_WINDOW_DAYS", "7")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_BACKEND")
		os.Unsetenv("FEATURE_ATTENDANCE_STRICT_ROSTER")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 7, cfg.School.ReportWindowDays)
	assert.True(t, cfg.Features.StrictAttendanceRoster())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("STORE_MAX_ATTEMPTS", "three")
	t.Setenv("STORE_CB_TIMEOUT", "10")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `STORE_MAX_ATTEMPTS="three"`)
	assert.Contains(t, err.Error(), `STORE_CB_TIMEOUT="10"`)
}

func TestDatabaseURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "records")
	t.Setenv("DB_PASSWORD", "s3cret")

	assert.Equal(t, "postgres://records:s3cret@db:5432/school?sslmode=disable", databaseURL(&envReader{}))

	t.Setenv("DB_HOST", "")
	assert.Empty(t, databaseURL(&envReader{}))
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := &Config{
		Storage:       StorageConfig{Backend: "floppy"},
		School:        SchoolConfig{ReportWindowDays: -1},
		Resilience:    ResilienceConfig{MaxAttempts: 0},
		Observability: ObservabilityConfig{LogFormat: "xml"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "SCHOOL_REPORT_WINDOW_DAYS")
	assert.Contains(t, err.Error(), "STORE_MAX_ATTEMPTS")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := &Config{
		Storage:       StorageConfig{Backend: BackendPostgres},
		Resilience:    ResilienceConfig{MaxAttempts: 1},
		Observability: ObservabilityConfig{LogFormat: "json"},
	}
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg.Database.URL = "postgres://localhost/school"
	assert.NoError(t, cfg.Validate())
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_GRADING_UNIQUE_PER_ASSIGNMENT", "false")
	ff := LoadFeatureFlags()
	assert.False(t, ff.UniqueGradesPerAssignment())

	require.NoError(t, ff.SetEnabled(FeatureGradingUniquePerAssignment, true))
	assert.True(t, ff.UniqueGradesPerAssignment())

	require.NoError(t, ff.SetEnabled(FeatureAttendanceStrictRoster, true))
	assert.True(t, ff.IsEnabled(FeatureAttendanceStrictRoster))
	assert.True(t, ff.StrictAttendanceRoster())

	assert.ErrorIs(t, ff.SetEnabled("nope", true), ErrFeatureNotFound)
	assert.False(t, ff.IsEnabled("nope"))
	assert.Len(t, ff.GetAllFeatures(), 3)
}
