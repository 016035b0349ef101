package dedup

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds configuration for the duplicate filter
type Config struct {
	// TitleThreshold is the title similarity (0.0-1.0) at which a candidate
	// is a duplicate regardless of body content.
	// Default: 0.75
	TitleThreshold float64

	// CombinedThreshold is the combined similarity (0.0-1.0) at which a
	// candidate is a duplicate.
	// Default: 0.65
	CombinedThreshold float64

	// QualityGateEnabled controls whether candidates must pass the quality
	// gate before similarity is considered. Quality-rejected candidates skip
	// the duplicate check entirely.
	// Default: true
	QualityGateEnabled bool

	// MinTitleLength is the minimum title length to perform duplicate
	// detection. Very short titles lack the content for a meaningful
	// comparison, so they bypass the similarity check.
	// Default: 10 characters
	MinTitleLength int

	// MaxCandidates is the maximum number of existing items each candidate
	// is compared against. Bounds processing time on large trackers.
	// Default: 200
	MaxCandidates int

	// WithinBatchDedup enables duplicate detection among the candidates
	// themselves: when two candidates in one batch duplicate each other,
	// only the first is accepted.
	// Default: true
	WithinBatchDedup bool

	// Parallelism bounds concurrent candidate scoring.
	// Default: 4
	Parallelism int
}

// DefaultConfig returns the default duplicate filter configuration
//
// The thresholds are asymmetric on purpose: a near-identical title is enough
// evidence on its own, while a moderate combined score catches rewordings
// where title and body each shift a little.
func DefaultConfig() Config {
	return Config{
		TitleThreshold:     0.75,
		CombinedThreshold:  0.65,
		QualityGateEnabled: true,
		MinTitleLength:     10,
		MaxCandidates:      200,
		WithinBatchDedup:   true,
		Parallelism:        4,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.TitleThreshold < 0.0 || c.TitleThreshold > 1.0 {
		return fmt.Errorf("title_threshold must be between 0.0 and 1.0 (got %.2f)", c.TitleThreshold)
	}
	if c.CombinedThreshold < 0.0 || c.CombinedThreshold > 1.0 {
		return fmt.Errorf("combined_threshold must be between 0.0 and 1.0 (got %.2f)", c.CombinedThreshold)
	}
	if c.MinTitleLength < 0 {
		return fmt.Errorf("min_title_length cannot be negative (got %d)", c.MinTitleLength)
	}
	if c.MinTitleLength > 500 {
		return fmt.Errorf("min_title_length too large (got %d, max 500)", c.MinTitleLength)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive (got %d)", c.MaxCandidates)
	}
	if c.MaxCandidates > 5000 {
		return fmt.Errorf("max_candidates too large (got %d, max 5000)", c.MaxCandidates)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive (got %d)", c.Parallelism)
	}
	if c.Parallelism > 64 {
		return fmt.Errorf("parallelism too large (got %d, max 64)", c.Parallelism)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{TitleThreshold: %.2f, CombinedThreshold: %.2f, QualityGate: %t, "+
			"MinTitleLen: %d, MaxCandidates: %d, WithinBatch: %t, Parallelism: %d}",
		c.TitleThreshold, c.CombinedThreshold, c.QualityGateEnabled,
		c.MinTitleLength, c.MaxCandidates, c.WithinBatchDedup, c.Parallelism,
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - GK_DEDUP_TITLE_THRESHOLD: Title similarity to mark as duplicate (default: 0.75)
//   - GK_DEDUP_COMBINED_THRESHOLD: Combined similarity to mark as duplicate (default: 0.65)
//   - GK_DEDUP_QUALITY_GATE: Enable the quality gate (default: true)
//   - GK_DEDUP_MIN_TITLE_LENGTH: Minimum title length for dedup (default: 10)
//   - GK_DEDUP_MAX_CANDIDATES: Maximum existing items compared per candidate (default: 200)
//   - GK_DEDUP_WITHIN_BATCH: Enable within-batch deduplication (default: true)
//   - GK_DEDUP_PARALLELISM: Concurrent candidate scoring limit (default: 4)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := parseEnvFloat("GK_DEDUP_TITLE_THRESHOLD", &cfg.TitleThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("GK_DEDUP_COMBINED_THRESHOLD", &cfg.CombinedThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("GK_DEDUP_QUALITY_GATE", &cfg.QualityGateEnabled); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GK_DEDUP_MIN_TITLE_LENGTH", &cfg.MinTitleLength); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GK_DEDUP_MAX_CANDIDATES", &cfg.MaxCandidates); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("GK_DEDUP_WITHIN_BATCH", &cfg.WithinBatchDedup); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GK_DEDUP_PARALLELISM", &cfg.Parallelism); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
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

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
