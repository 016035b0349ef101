// Package feedback turns outcome history into generation guidance: which
// categories to favor, which to back off from, and a target distribution
// for the next batch of proposals. It is a read-only consumer of the
// outcome ledger and holds no state of its own.
package feedback

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/forgeloop/gatekeeper/internal/outcomes"
	"github.com/forgeloop/gatekeeper/internal/types"
)

const (
	// DefaultMinSamples is the minimum outcome count before a category's
	// success rate is acted on
	DefaultMinSamples = 3

	// highPriorityRate marks a category worth steering toward
	highPriorityRate = 0.7

	// lowPriorityRate marks a category worth de-emphasizing
	lowPriorityRate = 0.4
)

// MetricsSource provides per-category outcome metrics. *outcomes.Store
// satisfies it.
type MetricsSource interface {
	TypeMetrics(ctx context.Context, since time.Duration) ([]outcomes.Metrics, error)
}

// Guidance is the analyzer's advice for the next generation run
type Guidance struct {
	// HighPriority lists categories with a strong track record
	HighPriority []types.Category `json:"high_priority"`

	// LowPriority lists categories that mostly fail and should be de-emphasized
	LowPriority []types.Category `json:"low_priority"`

	// Distribution maps each qualifying category to its share of the next
	// batch, normalized to sum to 1
	Distribution map[types.Category]float64 `json:"distribution"`

	// AdjustmentText is free text naming the categories to favor and avoid,
	// with their stats, suitable for inclusion in a generation prompt
	AdjustmentText string `json:"adjustment_text"`

	// FocusSummary is a compact one-line status string for logs and CLIs
	FocusSummary string `json:"focus_summary"`
}

// Analyzer computes generation guidance from the outcome ledger
type Analyzer struct {
	source MetricsSource
}

// NewAnalyzer creates an analyzer reading from the given metrics source
func NewAnalyzer(source MetricsSource) (*Analyzer, error) {
	if source == nil {
		return nil, fmt.Errorf("metrics source is required")
	}
	return &Analyzer{source: source}, nil
}

// Guidance computes advice from outcome history in the given window (zero
// means all history). Only categories with at least minSamples recorded
// outcomes are considered; minSamples <= 0 falls back to DefaultMinSamples.
//
// When no category qualifies the result is a neutral default: empty priority
// lists, an empty distribution, and text explaining that there is not enough
// history yet.
func (a *Analyzer) Guidance(ctx context.Context, since time.Duration, minSamples int) (*Guidance, error) {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}

	metrics, err := a.source.TypeMetrics(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load type metrics: %w", err)
	}

	var qualified []outcomes.Metrics
	for _, m := range metrics {
		if m.TotalAttempts >= minSamples {
			qualified = append(qualified, m)
		}
	}

	if len(qualified) == 0 {
		log.Printf("[FEEDBACK] No category has %d+ recorded outcomes, guidance is neutral", minSamples)
		return &Guidance{
			Distribution: map[types.Category]float64{},
			AdjustmentText: fmt.Sprintf(
				"Not enough outcome history to adjust generation (no category has %d+ recorded outcomes). Keep a balanced mix of categories.",
				minSamples),
			FocusSummary: "no outcome history yet, neutral balance",
		}, nil
	}

	g := &Guidance{Distribution: make(map[types.Category]float64, len(qualified))}

	var totalWeight float64
	for _, m := range qualified {
		totalWeight += m.Weight
		if m.SuccessRate >= highPriorityRate {
			g.HighPriority = append(g.HighPriority, m.Category)
		} else if m.SuccessRate < lowPriorityRate {
			g.LowPriority = append(g.LowPriority, m.Category)
		}
	}

	for _, m := range qualified {
		if totalWeight > 0 {
			g.Distribution[m.Category] = m.Weight / totalWeight
		} else {
			g.Distribution[m.Category] = 1.0 / float64(len(qualified))
		}
	}

	g.AdjustmentText = buildAdjustmentText(qualified, g.HighPriority, g.LowPriority)
	g.FocusSummary = buildFocusSummary(qualified, g.HighPriority, g.LowPriority)

	log.Printf("[FEEDBACK] Guidance over %d categories: %s", len(qualified), g.FocusSummary)
	return g, nil
}

// statsFor formats one category's track record for prose
func statsFor(m outcomes.Metrics) string {
	return fmt.Sprintf("%s (%.0f%% success over %d attempts)",
		m.Category, m.SuccessRate*100, m.TotalAttempts)
}

func buildAdjustmentText(qualified []outcomes.Metrics, high, low []types.Category) string {
	highSet := categorySet(high)
	lowSet := categorySet(low)

	var favor, avoid []string
	for _, m := range qualified {
		switch {
		case highSet[m.Category]:
			favor = append(favor, statsFor(m))
		case lowSet[m.Category]:
			avoid = append(avoid, statsFor(m))
		}
	}

	var b strings.Builder
	if len(favor) > 0 {
		b.WriteString("Prioritize " + strings.Join(favor, ", ") + ".")
	}
	if len(avoid) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("De-emphasize " + strings.Join(avoid, ", ") + ".")
	}
	if b.Len() == 0 {
		return "All tracked categories are performing at a middling rate. Keep the current category mix."
	}
	return b.String()
}

func buildFocusSummary(qualified []outcomes.Metrics, high, low []types.Category) string {
	parts := []string{fmt.Sprintf("%d categories tracked", len(qualified))}
	if len(high) > 0 {
		parts = append(parts, "focus: "+joinCategories(high))
	}
	if len(low) > 0 {
		parts = append(parts, "avoid: "+joinCategories(low))
	}
	return strings.Join(parts, " | ")
}

func categorySet(categories []types.Category) map[types.Category]bool {
	set := make(map[types.Category]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return set
}

func joinCategories(categories []types.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
