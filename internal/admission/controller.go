// Package admission gates generation attempts behind rolling rate windows
// and rejection-rate cooldowns.
//
// The controller decides whether a new generation attempt may proceed at
// all, before any candidates are produced. Callers report each attempt's
// filter outcome back via RecordAttempt; those counts drive the next
// decision. State is persisted to a JSON file after every mutation so
// restarts cannot be used to dodge a cooldown, and an advisory lock file
// keeps concurrent processes off the same state.
package admission

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forgeloop/gatekeeper/internal/types"
)

// State is the persisted admission controller state
type State struct {
	// Attempts is the recorded history, pruned to HistoryRetention.
	Attempts []types.GenerationAttempt `json:"attempts"`

	// LastAttemptAt is when the most recent attempt was recorded.
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`

	// CooldownUntil, when set, denies admission until it passes.
	// Invariant: always at or after the timestamp of the attempt that
	// triggered it.
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// Statistics reports admission state for observability
type Statistics struct {
	HourlyAccepted  int `json:"hourly_accepted"`
	HourlyRemaining int `json:"hourly_remaining"`
	DailyAccepted   int `json:"daily_accepted"`
	DailyRemaining  int `json:"daily_remaining"`

	// TotalAttempts counts retained attempts (history is pruned to the
	// retention window, so "lifetime" here means that window).
	TotalAttempts     int     `json:"total_attempts"`
	DuplicateRate     float64 `json:"duplicate_rate"`
	QualityRejectRate float64 `json:"quality_reject_rate"`

	CooldownActive bool       `json:"cooldown_active"`
	CooldownUntil  *time.Time `json:"cooldown_until,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
}

// Controller is the admission gate. Safe for concurrent use within one
// process; cross-process exclusion is enforced by the state lock file.
type Controller struct {
	config   Config
	mu       sync.Mutex
	state    State
	lockPath string
}

// NewController creates an admission controller, loading persisted state.
//
// A missing state file starts fresh; a corrupt one logs a warning and starts
// fresh rather than blocking the caller. The advisory lock is acquired here
// and released by Close.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Controller{config: cfg}

	if cfg.StatePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}

		lockPath, err := acquireStateLock(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		c.lockPath = lockPath

		if err := c.loadState(); err != nil {
			log.Printf("[ADMIT] Warning: failed to load state from %s: %v (starting fresh)",
				cfg.StatePath, err)
			c.state = State{}
		}
	}

	return c, nil
}

// Close releases the state lock. Should be deferred after NewController.
func (c *Controller) Close() error {
	return releaseStateLock(c.lockPath)
}

// CanAdmit decides whether a new generation attempt may proceed now.
// Checks run in fixed order and the first failure is returned as the reason:
// active cooldown, minimum interval, hourly cap, daily cap, duplicate-rate
// trigger, quality-reject-rate trigger.
//
// The rate triggers are the only checks with side effects: tripping one sets
// a cooldown and persists it before denying.
func (c *Controller) CanAdmit() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	// 1. Active cooldown
	if c.state.CooldownUntil != nil && now.Before(*c.state.CooldownUntil) {
		remaining := c.state.CooldownUntil.Sub(now).Round(time.Minute)
		return false, fmt.Sprintf("cooldown active for another %d minutes (until %s)",
			int(remaining.Minutes()), c.state.CooldownUntil.Format(time.RFC3339))
	}

	// 2. Minimum interval between attempts
	if c.state.LastAttemptAt != nil {
		elapsed := now.Sub(*c.state.LastAttemptAt)
		if elapsed < c.config.MinInterval {
			return false, fmt.Sprintf("last attempt was %s ago (minimum interval %s)",
				elapsed.Round(time.Second), c.config.MinInterval)
		}
	}

	// 3. Hourly accepted cap
	hourly := c.sumWindow(now, time.Hour)
	if hourly.accepted >= c.config.MaxPerHour {
		return false, fmt.Sprintf("hourly rate limit reached (%d/%d accepted in the last hour)",
			hourly.accepted, c.config.MaxPerHour)
	}

	// 4. Daily accepted cap
	daily := c.sumWindow(now, 24*time.Hour)
	if daily.accepted >= c.config.MaxPerDay {
		return false, fmt.Sprintf("daily rate limit reached (%d/%d accepted in the last 24h)",
			daily.accepted, c.config.MaxPerDay)
	}

	// 5. Duplicate-rate cooldown trigger
	if hourly.attempts >= c.config.RateTriggerMinAttempts && hourly.proposed > 0 {
		dupRate := float64(hourly.duplicates) / float64(hourly.proposed)
		if dupRate >= c.config.MaxDuplicateRate {
			c.triggerCooldown(now)
			return false, fmt.Sprintf("duplicate rate %.0f%% over the last hour (threshold %.0f%%); cooling down until %s",
				dupRate*100, c.config.MaxDuplicateRate*100, c.state.CooldownUntil.Format(time.RFC3339))
		}

		// 6. Quality-rejection-rate cooldown trigger
		qualityRate := float64(hourly.qualityRejected) / float64(hourly.proposed)
		if qualityRate >= c.config.MaxQualityRejectRate {
			c.triggerCooldown(now)
			return false, fmt.Sprintf("quality rejection rate %.0f%% over the last hour (threshold %.0f%%); cooling down until %s",
				qualityRate*100, c.config.MaxQualityRejectRate*100, c.state.CooldownUntil.Format(time.RFC3339))
		}
	}

	return true, ""
}

// RecordAttempt records the filter outcome of one generation attempt.
// An attempt succeeded when it produced at least one accepted item.
// Attempts older than the retention window are pruned, and state is
// persisted; a failed persist is returned since the decision would not
// survive a restart.
func (c *Controller) RecordAttempt(proposed, accepted, duplicates, qualityRejected int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	attempt := types.GenerationAttempt{
		Timestamp:            now,
		ProposedCount:        proposed,
		AcceptedCount:        accepted,
		DuplicateCount:       duplicates,
		QualityRejectedCount: qualityRejected,
		Succeeded:            accepted > 0,
	}
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("invalid attempt: %w", err)
	}

	c.state.Attempts = append(c.state.Attempts, attempt)
	c.state.LastAttemptAt = &now
	c.pruneHistory(now)

	if err := c.persistState(); err != nil {
		return fmt.Errorf("attempt recorded in memory but not persisted: %w", err)
	}

	log.Printf("[ADMIT] Recorded attempt: proposed=%d accepted=%d duplicates=%d quality_rejected=%d",
		proposed, accepted, duplicates, qualityRejected)

	return nil
}

// ResetCooldown clears an active cooldown. Administrative override for when
// a human has fixed whatever tripped the rejection rates.
func (c *Controller) ResetCooldown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CooldownUntil == nil {
		return nil
	}

	c.state.CooldownUntil = nil
	if err := c.persistState(); err != nil {
		return fmt.Errorf("cooldown cleared in memory but not persisted: %w", err)
	}

	log.Printf("[ADMIT] Cooldown reset")
	return nil
}

// GetStatistics reports current quota usage and rejection rates
func (c *Controller) GetStatistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	hourly := c.sumWindow(now, time.Hour)
	daily := c.sumWindow(now, 24*time.Hour)

	stats := Statistics{
		HourlyAccepted:  hourly.accepted,
		HourlyRemaining: max(0, c.config.MaxPerHour-hourly.accepted),
		DailyAccepted:   daily.accepted,
		DailyRemaining:  max(0, c.config.MaxPerDay-daily.accepted),
		TotalAttempts:   len(c.state.Attempts),
		CooldownActive:  c.state.CooldownUntil != nil && now.Before(*c.state.CooldownUntil),
		CooldownUntil:   c.state.CooldownUntil,
		LastAttemptAt:   c.state.LastAttemptAt,
	}

	var proposed, duplicates, qualityRejected int
	for _, a := range c.state.Attempts {
		proposed += a.ProposedCount
		duplicates += a.DuplicateCount
		qualityRejected += a.QualityRejectedCount
	}
	if proposed > 0 {
		stats.DuplicateRate = float64(duplicates) / float64(proposed)
		stats.QualityRejectRate = float64(qualityRejected) / float64(proposed)
	}

	return stats
}

// windowSums aggregates attempt counts over a rolling window
type windowSums struct {
	attempts        int
	proposed        int
	accepted        int
	duplicates      int
	qualityRejected int
}

// sumWindow aggregates attempts newer than now-window. Must be called with
// mu held.
func (c *Controller) sumWindow(now time.Time, window time.Duration) windowSums {
	cutoff := now.Add(-window)
	var sums windowSums
	for _, a := range c.state.Attempts {
		if a.Timestamp.Before(cutoff) {
			continue
		}
		sums.attempts++
		sums.proposed += a.ProposedCount
		sums.accepted += a.AcceptedCount
		sums.duplicates += a.DuplicateCount
		sums.qualityRejected += a.QualityRejectedCount
	}
	return sums
}

// triggerCooldown sets the cooldown and persists it. Must be called with mu
// held. A persist failure here is logged rather than returned: the deny
// decision stands either way, and CanAdmit has no error channel.
func (c *Controller) triggerCooldown(now time.Time) {
	until := now.Add(c.config.CooldownDuration)
	c.state.CooldownUntil = &until

	if err := c.persistState(); err != nil {
		log.Printf("[ADMIT] Warning: failed to persist cooldown: %v", err)
	} else {
		log.Printf("[ADMIT] Cooldown triggered until %s", until.Format(time.RFC3339))
	}
}

// pruneHistory drops attempts older than the retention window. Must be
// called with mu held.
func (c *Controller) pruneHistory(now time.Time) {
	cutoff := now.Add(-c.config.HistoryRetention)
	kept := c.state.Attempts[:0]
	for _, a := range c.state.Attempts {
		if !a.Timestamp.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	c.state.Attempts = kept
}

// persistState saves the admission state to disk. Must be called with mu held.
func (c *Controller) persistState() error {
	if c.config.StatePath == "" {
		return nil // Persistence disabled
	}

	data, err := json.MarshalIndent(c.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(c.config.StatePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// loadState loads the admission state from disk
func (c *Controller) loadState() error {
	data, err := os.ReadFile(c.config.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Fresh start
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	c.state = state
	return nil
}
