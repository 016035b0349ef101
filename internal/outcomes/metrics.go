package outcomes

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/forgeloop/gatekeeper/internal/types"
)

// MetricsConfig holds the constants of the per-category weight formula.
// The formula is
//
//	base       = e^(success_rate * SuccessExponent) / e
//	confidence = min(1, samples / ConfidenceSamples)
//	weight     = base*confidence + NeutralWeight*(1 - confidence)
//
// so categories with few samples stay near the neutral weight until enough
// outcomes accumulate, then converge on the exponential of their success
// rate. The base is super-linear in the rate, so a fully trusted perfect
// category weighs more than 1.
type MetricsConfig struct {
	// SuccessExponent shapes the exponential reward curve
	SuccessExponent float64

	// ConfidenceSamples is the sample count at which the success rate is
	// trusted fully
	ConfidenceSamples int

	// NeutralWeight is the weight assigned to categories with no history
	NeutralWeight float64
}

// DefaultMetricsConfig returns the standard weight-formula constants
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SuccessExponent:   1.5,
		ConfidenceSamples: 5,
		NeutralWeight:     0.5,
	}
}

// Validate checks the configuration for invalid values
func (c *MetricsConfig) Validate() error {
	if c.SuccessExponent <= 0 {
		return fmt.Errorf("success_exponent must be positive (got %f)", c.SuccessExponent)
	}
	if c.ConfidenceSamples <= 0 {
		return fmt.Errorf("confidence_samples must be positive (got %d)", c.ConfidenceSamples)
	}
	if c.NeutralWeight < 0 || c.NeutralWeight > 1 {
		return fmt.Errorf("neutral_weight must be in [0, 1] (got %f)", c.NeutralWeight)
	}
	return nil
}

// weight computes the adaptive category weight, rounded to 2 decimals
func (c *MetricsConfig) weight(successRate float64, samples int) float64 {
	base := math.Exp(successRate*c.SuccessExponent) / math.E
	confidence := math.Min(1, float64(samples)/float64(c.ConfidenceSamples))
	w := base*confidence + c.NeutralWeight*(1-confidence)
	return math.Round(w*100) / 100
}

// Metrics is the aggregated outcome history for one category
type Metrics struct {
	Category          types.Category `json:"category"`
	TotalAttempts     int            `json:"total_attempts"`
	SuccessCount      int            `json:"success_count"` // resolved + merged
	MergedCount       int            `json:"merged_count"`
	PendingCount      int            `json:"pending_count"`
	FailedCount       int            `json:"failed_count"` // closed + failed + timeout
	SuccessRate       float64        `json:"success_rate"`
	MergeRate         float64        `json:"merge_rate"`
	AvgResolveMinutes float64        `json:"avg_resolve_minutes"`
	Weight            float64        `json:"weight"`
}

// TypeMetrics aggregates outcome history per category over the given window.
// A zero window means all history. Categories are returned sorted by weight
// descending, ties broken alphabetically for stable output.
//
// Rates are computed against all records in the window, pending ones
// included; a category with many untriaged items reads as unproven rather
// than successful.
func (s *Store) TypeMetrics(ctx context.Context, since time.Duration) ([]Metrics, error) {
	clause := ""
	var args []any
	if since > 0 {
		clause = "WHERE created_at >= ?"
		args = append(args, time.Now().UTC().Add(-since))
	}

	records, err := s.queryRecords(ctx, clause, args...)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[types.Category]*Metrics)
	resolveSums := make(map[types.Category]int)
	resolveCounts := make(map[types.Category]int)

	for _, r := range records {
		m := byCategory[r.Category]
		if m == nil {
			m = &Metrics{Category: r.Category}
			byCategory[r.Category] = m
		}
		m.TotalAttempts++
		switch r.Status {
		case types.StatusResolved:
			m.SuccessCount++
		case types.StatusMerged:
			m.SuccessCount++
			m.MergedCount++
		case types.StatusPending:
			m.PendingCount++
		default:
			m.FailedCount++
		}
		if r.ResolveMinutes != nil {
			resolveSums[r.Category] += *r.ResolveMinutes
			resolveCounts[r.Category]++
		}
	}

	result := make([]Metrics, 0, len(byCategory))
	for cat, m := range byCategory {
		if m.TotalAttempts > 0 {
			m.SuccessRate = float64(m.SuccessCount) / float64(m.TotalAttempts)
			m.MergeRate = float64(m.MergedCount) / float64(m.TotalAttempts)
		}
		if resolveCounts[cat] > 0 {
			m.AvgResolveMinutes = float64(resolveSums[cat]) / float64(resolveCounts[cat])
		}
		m.Weight = s.metrics.weight(m.SuccessRate, m.TotalAttempts)
		result = append(result, *m)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Weight != result[j].Weight {
			return result[i].Weight > result[j].Weight
		}
		return result[i].Category < result[j].Category
	})

	return result, nil
}
