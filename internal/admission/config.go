package admission

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds admission controller configuration
type Config struct {
	// MaxPerHour is the maximum number of accepted generations per rolling hour.
	// Default: 10
	MaxPerHour int

	// MaxPerDay is the maximum number of accepted generations per rolling 24h.
	// Default: 50
	MaxPerDay int

	// MaxDuplicateRate is the duplicate rate (0.0-1.0) over the last hour
	// that triggers a cooldown. A high duplicate rate means the generator is
	// re-proposing work the tracker already has.
	// Default: 0.5
	MaxDuplicateRate float64

	// MaxQualityRejectRate is the quality-rejection rate (0.0-1.0) over the
	// last hour that triggers a cooldown.
	// Default: 0.5
	MaxQualityRejectRate float64

	// CooldownDuration is how long admission stays denied after a
	// rejection-rate trigger.
	// Default: 2 hours
	CooldownDuration time.Duration

	// MinInterval is the minimum time between generation attempts.
	// Default: 10 minutes
	MinInterval time.Duration

	// RateTriggerMinAttempts is the minimum number of attempts in the last
	// hour before rejection-rate cooldowns can trigger. Prevents a single
	// bad batch from locking out the generator.
	// Default: 3
	RateTriggerMinAttempts int

	// HistoryRetention is how long recorded attempts are kept before being
	// pruned. Window evaluation never looks further back than this.
	// Default: 7 days
	HistoryRetention time.Duration

	// StatePath is where admission state is persisted. Empty disables
	// persistence (state lives only in memory).
	// Default: .gatekeeper/admission_state.json
	StatePath string
}

// DefaultConfig returns the default admission controller configuration
func DefaultConfig() Config {
	return Config{
		MaxPerHour:             10,
		MaxPerDay:              50,
		MaxDuplicateRate:       0.5,
		MaxQualityRejectRate:   0.5,
		CooldownDuration:       2 * time.Hour,
		MinInterval:            10 * time.Minute,
		RateTriggerMinAttempts: 3,
		HistoryRetention:       7 * 24 * time.Hour,
		StatePath:              ".gatekeeper/admission_state.json",
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxPerHour <= 0 {
		return fmt.Errorf("max_per_hour must be positive (got %d)", c.MaxPerHour)
	}
	if c.MaxPerDay <= 0 {
		return fmt.Errorf("max_per_day must be positive (got %d)", c.MaxPerDay)
	}
	if c.MaxPerDay < c.MaxPerHour {
		return fmt.Errorf("max_per_day (%d) cannot be less than max_per_hour (%d)",
			c.MaxPerDay, c.MaxPerHour)
	}
	if c.MaxDuplicateRate < 0.0 || c.MaxDuplicateRate > 1.0 {
		return fmt.Errorf("max_duplicate_rate must be between 0.0 and 1.0 (got %.2f)", c.MaxDuplicateRate)
	}
	if c.MaxQualityRejectRate < 0.0 || c.MaxQualityRejectRate > 1.0 {
		return fmt.Errorf("max_quality_reject_rate must be between 0.0 and 1.0 (got %.2f)", c.MaxQualityRejectRate)
	}
	if c.CooldownDuration <= 0 {
		return fmt.Errorf("cooldown_duration must be positive (got %v)", c.CooldownDuration)
	}
	if c.CooldownDuration > 7*24*time.Hour {
		return fmt.Errorf("cooldown_duration too large (got %v, max 7 days)", c.CooldownDuration)
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("min_interval cannot be negative (got %v)", c.MinInterval)
	}
	if c.RateTriggerMinAttempts <= 0 {
		return fmt.Errorf("rate_trigger_min_attempts must be positive (got %d)", c.RateTriggerMinAttempts)
	}
	if c.HistoryRetention < 24*time.Hour {
		return fmt.Errorf("history_retention must be at least 24h (got %v)", c.HistoryRetention)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - GK_ADMIT_MAX_PER_HOUR: Accepted generations per hour (default: 10)
//   - GK_ADMIT_MAX_PER_DAY: Accepted generations per day (default: 50)
//   - GK_ADMIT_MAX_DUPLICATE_RATE: Duplicate rate that triggers cooldown (default: 0.5)
//   - GK_ADMIT_MAX_QUALITY_REJECT_RATE: Quality-reject rate that triggers cooldown (default: 0.5)
//   - GK_ADMIT_COOLDOWN_MINUTES: Cooldown length in minutes (default: 120)
//   - GK_ADMIT_MIN_INTERVAL_MINUTES: Minimum minutes between attempts (default: 10)
//   - GK_ADMIT_STATE_PATH: State file location (default: .gatekeeper/admission_state.json)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := parseEnvInt("GK_ADMIT_MAX_PER_HOUR", &cfg.MaxPerHour); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GK_ADMIT_MAX_PER_DAY", &cfg.MaxPerDay); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("GK_ADMIT_MAX_DUPLICATE_RATE", &cfg.MaxDuplicateRate); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("GK_ADMIT_MAX_QUALITY_REJECT_RATE", &cfg.MaxQualityRejectRate); err != nil {
		return cfg, err
	}
	if err := parseEnvDuration("GK_ADMIT_COOLDOWN_MINUTES", &cfg.CooldownDuration, time.Minute); err != nil {
		return cfg, err
	}
	if err := parseEnvDuration("GK_ADMIT_MIN_INTERVAL_MINUTES", &cfg.MinInterval, time.Minute); err != nil {
		return cfg, err
	}
	if path := os.Getenv("GK_ADMIT_STATE_PATH"); path != "" {
		cfg.StatePath = path
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a duration from an environment variable.
// The multiplier converts the numeric value to a duration
// (e.g., for minutes: multiplier = time.Minute).
func parseEnvDuration(key string, dest *time.Duration, multiplier time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * multiplier
	return nil
}
