package admission

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a config with no minimum interval so tests can record
// attempts back to back.
func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MinInterval = 0
	cfg.StatePath = filepath.Join(t.TempDir(), "admission_state.json")
	return cfg
}

func newTestController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := NewController(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"zero hourly cap", func(c *Config) { c.MaxPerHour = 0 }, "max_per_hour"},
		{"day below hour", func(c *Config) { c.MaxPerDay = 5; c.MaxPerHour = 10 }, "max_per_day"},
		{"duplicate rate above one", func(c *Config) { c.MaxDuplicateRate = 1.5 }, "max_duplicate_rate"},
		{"negative quality rate", func(c *Config) { c.MaxQualityRejectRate = -0.1 }, "max_quality_reject_rate"},
		{"zero cooldown", func(c *Config) { c.CooldownDuration = 0 }, "cooldown_duration"},
		{"short retention", func(c *Config) { c.HistoryRetention = time.Hour }, "history_retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCanAdmitFreshState(t *testing.T) {
	c := newTestController(t, testConfig(t))

	ok, reason := c.CanAdmit()
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestHourlyCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerHour = 5
	c := newTestController(t, cfg)

	require.NoError(t, c.RecordAttempt(5, 5, 0, 0))

	ok, reason := c.CanAdmit()
	assert.False(t, ok)
	assert.Contains(t, reason, "hourly rate limit")

	stats := c.GetStatistics()
	assert.Equal(t, 5, stats.HourlyAccepted)
	assert.Equal(t, 0, stats.HourlyRemaining)
}

func TestMinInterval(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinInterval = 10 * time.Minute
	c := newTestController(t, cfg)

	require.NoError(t, c.RecordAttempt(3, 1, 1, 1))

	ok, reason := c.CanAdmit()
	assert.False(t, ok)
	assert.Contains(t, reason, "minimum interval")
}

func TestDuplicateRateCooldown(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerHour = 100
	cfg.MaxPerDay = 500
	cfg.MaxDuplicateRate = 0.5
	c := newTestController(t, cfg)

	// Three attempts at 80% duplicates trips the trigger
	for range 3 {
		require.NoError(t, c.RecordAttempt(10, 2, 8, 0))
	}

	before := time.Now()
	ok, reason := c.CanAdmit()
	assert.False(t, ok)
	assert.Contains(t, reason, "duplicate")

	stats := c.GetStatistics()
	assert.True(t, stats.CooldownActive)
	require.NotNil(t, stats.CooldownUntil)
	assert.False(t, stats.CooldownUntil.Before(before))

	// Subsequent calls deny on the active cooldown itself
	ok, reason = c.CanAdmit()
	assert.False(t, ok)
	assert.Contains(t, reason, "cooldown active")
}

func TestQualityRejectRateCooldown(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerHour = 100
	cfg.MaxPerDay = 500
	cfg.MaxQualityRejectRate = 0.5
	c := newTestController(t, cfg)

	for range 3 {
		require.NoError(t, c.RecordAttempt(10, 3, 0, 7))
	}

	ok, reason := c.CanAdmit()
	assert.False(t, ok)
	assert.Contains(t, reason, "quality")
}

func TestRateTriggerNeedsMinAttempts(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerHour = 100
	cfg.MaxDuplicateRate = 0.5
	c := newTestController(t, cfg)

	// Two bad attempts are below the three-attempt floor
	require.NoError(t, c.RecordAttempt(10, 1, 9, 0))
	require.NoError(t, c.RecordAttempt(10, 1, 9, 0))

	ok, _ := c.CanAdmit()
	assert.True(t, ok)
}

func TestResetCooldown(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerHour = 100
	cfg.MaxDuplicateRate = 0.5
	c := newTestController(t, cfg)

	for range 3 {
		require.NoError(t, c.RecordAttempt(10, 2, 8, 0))
	}
	ok, _ := c.CanAdmit()
	require.False(t, ok)
	require.True(t, c.GetStatistics().CooldownActive)

	require.NoError(t, c.ResetCooldown())
	assert.False(t, c.GetStatistics().CooldownActive)

	// Resetting without an active cooldown is a no-op
	assert.NoError(t, c.ResetCooldown())
}

func TestStatePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerHour = 5

	c, err := NewController(cfg)
	require.NoError(t, err)
	require.NoError(t, c.RecordAttempt(5, 5, 0, 0))
	require.NoError(t, c.Close())

	reopened, err := NewController(cfg)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	ok, reason := reopened.CanAdmit()
	assert.False(t, ok)
	assert.Contains(t, reason, "hourly rate limit")

	stats := reopened.GetStatistics()
	assert.Equal(t, 1, stats.TotalAttempts)
	assert.Equal(t, 5, stats.HourlyAccepted)
	require.NotNil(t, stats.LastAttemptAt)
}

func TestCorruptStateFileStartsFresh(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.StatePath, []byte("{not json"), 0644))

	c := newTestController(t, cfg)
	ok, _ := c.CanAdmit()
	assert.True(t, ok)
	assert.Equal(t, 0, c.GetStatistics().TotalAttempts)
}

func TestStateLockExcludesSecondController(t *testing.T) {
	cfg := testConfig(t)

	first, err := NewController(cfg)
	require.NoError(t, err)

	_, err = NewController(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, first.Close())

	second, err := NewController(cfg)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestInMemoryWithoutStatePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinInterval = 0
	cfg.StatePath = ""
	cfg.MaxPerHour = 1

	c := newTestController(t, cfg)
	require.NoError(t, c.RecordAttempt(1, 1, 0, 0))

	ok, _ := c.CanAdmit()
	assert.False(t, ok)
}

func TestGetStatisticsRates(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerHour = 100
	c := newTestController(t, cfg)

	require.NoError(t, c.RecordAttempt(10, 6, 3, 1))
	require.NoError(t, c.RecordAttempt(10, 4, 5, 1))

	stats := c.GetStatistics()
	assert.Equal(t, 2, stats.TotalAttempts)
	assert.InDelta(t, 0.4, stats.DuplicateRate, 1e-12)
	assert.InDelta(t, 0.1, stats.QualityRejectRate, 1e-12)
}

func TestRecordAttemptRejectsInvalidCounts(t *testing.T) {
	c := newTestController(t, testConfig(t))
	assert.Error(t, c.RecordAttempt(-1, 0, 0, 0))
	assert.Error(t, c.RecordAttempt(1, 2, 0, 0))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GK_ADMIT_MAX_PER_HOUR", "3")
	t.Setenv("GK_ADMIT_COOLDOWN_MINUTES", "45")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxPerHour)
	assert.Equal(t, 45*time.Minute, cfg.CooldownDuration)

	t.Setenv("GK_ADMIT_MAX_PER_HOUR", "not-a-number")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}
