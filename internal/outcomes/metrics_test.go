package outcomes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeloop/gatekeeper/internal/types"
)

func TestWeightFormula(t *testing.T) {
	cfg := DefaultMetricsConfig()

	tests := []struct {
		name        string
		successRate float64
		samples     int
		want        float64
	}{
		{"perfect record at full confidence", 1.0, 5, 1.65},
		{"zero record at full confidence", 0.0, 5, 0.37},
		{"half record at full confidence", 0.5, 5, 0.78},
		{"perfect record single sample", 1.0, 1, 0.73},
		{"no samples stays neutral", 0.0, 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cfg.weight(tt.successRate, tt.samples), 1e-9)
		})
	}
}

func TestWeightMonotonicity(t *testing.T) {
	cfg := DefaultMetricsConfig()

	// fixed sample size: higher success rate means higher weight
	assert.Greater(t, cfg.weight(1.0, 5), cfg.weight(0.5, 5))
	assert.Greater(t, cfg.weight(0.5, 5), cfg.weight(0.0, 5))

	// fixed success rate: more samples means more trust in the rate
	assert.Less(t, cfg.weight(1.0, 1), cfg.weight(1.0, 5))
}

func TestMetricsConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MetricsConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *MetricsConfig) {}, false},
		{"zero exponent", func(c *MetricsConfig) { c.SuccessExponent = 0 }, true},
		{"zero confidence samples", func(c *MetricsConfig) { c.ConfidenceSamples = 0 }, true},
		{"neutral weight above one", func(c *MetricsConfig) { c.NeutralWeight = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMetricsConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTypeMetricsAggregation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// five security items, all merged
	for i := 1; i <= 5; i++ {
		_, err := store.RecordAttempt(ctx, i, "Security item", []string{"security"})
		require.NoError(t, err)
		require.NoError(t, store.UpdateStatus(ctx, i, types.StatusMerged))
	}
	// five doc items, all failed
	for i := 11; i <= 15; i++ {
		_, err := store.RecordAttempt(ctx, i, "Doc item", []string{"documentation"})
		require.NoError(t, err)
		require.NoError(t, store.UpdateStatus(ctx, i, types.StatusFailed))
	}
	// one pending feature item
	_, err := store.RecordAttempt(ctx, 21, "Feature item", []string{"feature"})
	require.NoError(t, err)

	metrics, err := store.TypeMetrics(ctx, 0)
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	byCategory := make(map[types.Category]Metrics)
	for _, m := range metrics {
		byCategory[m.Category] = m
	}

	sec := byCategory[types.CategorySecurity]
	assert.Equal(t, 5, sec.TotalAttempts)
	assert.Equal(t, 5, sec.SuccessCount)
	assert.Equal(t, 5, sec.MergedCount)
	assert.InDelta(t, 1.0, sec.SuccessRate, 1e-9)
	assert.InDelta(t, 1.0, sec.MergeRate, 1e-9)
	assert.InDelta(t, 1.65, sec.Weight, 1e-9)

	docs := byCategory[types.CategoryDocumentation]
	assert.Equal(t, 5, docs.TotalAttempts)
	assert.Equal(t, 0, docs.SuccessCount)
	assert.Equal(t, 5, docs.FailedCount)
	assert.InDelta(t, 0.37, docs.Weight, 1e-9)

	feature := byCategory[types.CategoryFeature]
	assert.Equal(t, 1, feature.TotalAttempts)
	assert.Equal(t, 1, feature.PendingCount)
	// one pending sample: rate 0 at low confidence stays near neutral
	assert.InDelta(t, 0.47, feature.Weight, 1e-9)

	// sorted by weight descending
	assert.Equal(t, types.CategorySecurity, metrics[0].Category)
	assert.Equal(t, types.CategoryDocumentation, metrics[2].Category)
}

func TestTypeMetricsSinceWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordAttempt(ctx, 1, "Old item", []string{"bug"})
	require.NoError(t, err)
	// backdate the record past the window
	_, err = store.db.ExecContext(ctx,
		"UPDATE outcomes SET created_at = ? WHERE item_key = 1",
		time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)

	_, err = store.RecordAttempt(ctx, 2, "New item", []string{"security"})
	require.NoError(t, err)

	metrics, err := store.TypeMetrics(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, types.CategorySecurity, metrics[0].Category)

	all, err := store.TypeMetrics(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetMetricsConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordAttempt(ctx, 1, "Item", []string{"bug"})
	require.NoError(t, err)

	// a neutral weight of 1.0 lifts unproven categories to full weight
	require.NoError(t, store.SetMetricsConfig(MetricsConfig{
		SuccessExponent:   1.5,
		ConfidenceSamples: 5,
		NeutralWeight:     1.0,
	}))

	metrics, err := store.TypeMetrics(ctx, 0)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.InDelta(t, 0.87, metrics[0].Weight, 1e-9)

	bad := MetricsConfig{SuccessExponent: -1, ConfidenceSamples: 5, NeutralWeight: 0.5}
	assert.Error(t, store.SetMetricsConfig(bad))
}
