// Package config loads the optional gatekeeper.yaml file and produces the
// per-component configurations. A missing file is not an error: every
// setting has a default and the file only overrides what it names.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forgeloop/gatekeeper/internal/admission"
	"github.com/forgeloop/gatekeeper/internal/dedup"
	"github.com/forgeloop/gatekeeper/internal/outcomes"
	"github.com/forgeloop/gatekeeper/internal/quality"
)

// DefaultLedgerPath is where the outcome ledger lives when the file does not
// say otherwise
const DefaultLedgerPath = ".gatekeeper/outcomes.db"

// Config is the resolved configuration for every component
type Config struct {
	Admission  admission.Config
	Dedup      dedup.Config
	Quality    quality.Config
	Metrics    outcomes.MetricsConfig
	LedgerPath string
}

// Default returns the all-defaults configuration
func Default() *Config {
	return &Config{
		Admission:  admission.DefaultConfig(),
		Dedup:      dedup.DefaultConfig(),
		Quality:    quality.DefaultConfig(),
		Metrics:    outcomes.DefaultMetricsConfig(),
		LedgerPath: DefaultLedgerPath,
	}
}

// Validate checks every component configuration
func (c *Config) Validate() error {
	if err := c.Admission.Validate(); err != nil {
		return fmt.Errorf("admission: %w", err)
	}
	if err := c.Dedup.Validate(); err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if err := c.Quality.Validate(); err != nil {
		return fmt.Errorf("quality: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("ledger path is required")
	}
	return nil
}

// fileSchema mirrors gatekeeper.yaml. Pointer fields distinguish "absent"
// from zero, so the file overrides only what it sets.
type fileSchema struct {
	Admission struct {
		MaxPerHour             *int     `yaml:"max_per_hour"`
		MaxPerDay              *int     `yaml:"max_per_day"`
		MaxDuplicateRate       *float64 `yaml:"max_duplicate_rate"`
		MaxQualityRejectRate   *float64 `yaml:"max_quality_reject_rate"`
		CooldownMinutes        *int     `yaml:"cooldown_minutes"`
		MinIntervalMinutes     *int     `yaml:"min_interval_minutes"`
		RateTriggerMinAttempts *int     `yaml:"rate_trigger_min_attempts"`
		HistoryRetentionHours  *int     `yaml:"history_retention_hours"`
		StatePath              *string  `yaml:"state_path"`
	} `yaml:"admission"`

	Dedup struct {
		TitleThreshold     *float64 `yaml:"title_threshold"`
		CombinedThreshold  *float64 `yaml:"combined_threshold"`
		QualityGateEnabled *bool    `yaml:"quality_gate_enabled"`
		MinTitleLength     *int     `yaml:"min_title_length"`
		MaxCandidates      *int     `yaml:"max_candidates"`
		WithinBatchDedup   *bool    `yaml:"within_batch_dedup"`
		Parallelism        *int     `yaml:"parallelism"`
	} `yaml:"dedup"`

	Quality struct {
		MinScore *float64 `yaml:"min_score"`
	} `yaml:"quality"`

	Metrics struct {
		SuccessExponent   *float64 `yaml:"success_exponent"`
		ConfidenceSamples *int     `yaml:"confidence_samples"`
		NeutralWeight     *float64 `yaml:"neutral_weight"`
	} `yaml:"metrics"`

	Outcomes struct {
		Path *string `yaml:"path"`
	} `yaml:"outcomes"`
}

// Load reads the yaml file at path over the defaults and validates the
// result. A missing file yields the defaults; a malformed or invalid file is
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileSchema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyFile(cfg, &file)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

func applyFile(cfg *Config, file *fileSchema) {
	a := file.Admission
	setInt(&cfg.Admission.MaxPerHour, a.MaxPerHour)
	setInt(&cfg.Admission.MaxPerDay, a.MaxPerDay)
	setFloat(&cfg.Admission.MaxDuplicateRate, a.MaxDuplicateRate)
	setFloat(&cfg.Admission.MaxQualityRejectRate, a.MaxQualityRejectRate)
	setMinutes(&cfg.Admission.CooldownDuration, a.CooldownMinutes)
	setMinutes(&cfg.Admission.MinInterval, a.MinIntervalMinutes)
	setInt(&cfg.Admission.RateTriggerMinAttempts, a.RateTriggerMinAttempts)
	if a.HistoryRetentionHours != nil {
		cfg.Admission.HistoryRetention = time.Duration(*a.HistoryRetentionHours) * time.Hour
	}
	setString(&cfg.Admission.StatePath, a.StatePath)

	d := file.Dedup
	setFloat(&cfg.Dedup.TitleThreshold, d.TitleThreshold)
	setFloat(&cfg.Dedup.CombinedThreshold, d.CombinedThreshold)
	setBool(&cfg.Dedup.QualityGateEnabled, d.QualityGateEnabled)
	setInt(&cfg.Dedup.MinTitleLength, d.MinTitleLength)
	setInt(&cfg.Dedup.MaxCandidates, d.MaxCandidates)
	setBool(&cfg.Dedup.WithinBatchDedup, d.WithinBatchDedup)
	setInt(&cfg.Dedup.Parallelism, d.Parallelism)

	setFloat(&cfg.Quality.MinScore, file.Quality.MinScore)

	m := file.Metrics
	setFloat(&cfg.Metrics.SuccessExponent, m.SuccessExponent)
	setInt(&cfg.Metrics.ConfidenceSamples, m.ConfidenceSamples)
	setFloat(&cfg.Metrics.NeutralWeight, m.NeutralWeight)

	setString(&cfg.LedgerPath, file.Outcomes.Path)
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setMinutes(dst *time.Duration, src *int) {
	if src != nil {
		*dst = time.Duration(*src) * time.Minute
	}
}
