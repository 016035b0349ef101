package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeloop/gatekeeper/internal/quality"
	"github.com/forgeloop/gatekeeper/internal/similarity"
	"github.com/forgeloop/gatekeeper/internal/types"
)

func newTestFilter(t *testing.T, cfg Config) *Filter {
	t.Helper()
	scorer, err := quality.NewScorer(quality.DefaultConfig())
	require.NoError(t, err)
	f, err := NewFilter(cfg, scorer, nil)
	require.NoError(t, err)
	return f
}

func item(title, body string, labels ...string) types.ProposedItem {
	return types.ProposedItem{Title: title, Body: body, Labels: labels}
}

func TestNewFilterValidation(t *testing.T) {
	scorer, err := quality.NewScorer(quality.DefaultConfig())
	require.NoError(t, err)

	t.Run("invalid config rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TitleThreshold = 1.5
		_, err := NewFilter(cfg, scorer, nil)
		assert.Error(t, err)
	})

	t.Run("nil scorer rejected when gate enabled", func(t *testing.T) {
		_, err := NewFilter(DefaultConfig(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("nil scorer allowed when gate disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.QualityGateEnabled = false
		_, err := NewFilter(cfg, nil, nil)
		assert.NoError(t, err)
	})
}

func TestCheckBatchDetectsDuplicates(t *testing.T) {
	f := newTestFilter(t, DefaultConfig())

	existing := []types.ProposedItem{
		item("Fix authentication bug", "Auth system is broken", "bug"),
		item("Improve database query performance", "Slow queries on the users table", "performance"),
	}
	candidates := []types.ProposedItem{
		item("Fix authentication bug in system", "Authentication is broken", "bug"),
		item("Add dark mode feature to the dashboard", "Users want a dark theme for the dashboard and settings pages", "feature"),
	}

	result, err := f.CheckBatch(context.Background(), candidates, existing)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "Add dark mode feature to the dashboard", result.Accepted[0].Title)

	require.Len(t, result.Rejections, 1)
	rej := result.Rejections[0]
	assert.Equal(t, ReasonDuplicate, rej.Reason)
	require.NotNil(t, rej.MatchedExisting)
	assert.Equal(t, "Fix authentication bug", rej.MatchedExisting.Title)
	require.NotNil(t, rej.Similarity)
	assert.GreaterOrEqual(t, rej.Similarity.Title, 0.75)
	assert.False(t, rej.WithinBatch)

	assert.Equal(t, 2, result.Stats.TotalCandidates)
	assert.Equal(t, 1, result.Stats.DuplicateCount)
	assert.Equal(t, 0, result.Stats.QualityRejectedCount)
}

func TestCheckBatchQualityGateBeforeDuplicates(t *testing.T) {
	f := newTestFilter(t, DefaultConfig())

	// The candidate is a verbatim copy of an existing item but fails the
	// quality gate; the rejection reason must be quality, not duplicate.
	existing := []types.ProposedItem{item("Fix stuff", "maybe broken")}
	candidates := []types.ProposedItem{item("Fix stuff", "maybe broken")}

	result, err := f.CheckBatch(context.Background(), candidates, existing)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	require.Len(t, result.Rejections, 1)
	assert.Equal(t, ReasonQuality, result.Rejections[0].Reason)
	require.NotNil(t, result.Rejections[0].Quality)
	assert.False(t, result.Rejections[0].Quality.PassesGate)
	assert.Nil(t, result.Rejections[0].MatchedExisting)
	assert.Equal(t, 1, result.Stats.QualityRejectedCount)
	assert.Equal(t, 0, result.Stats.DuplicateCount)
}

func TestCheckBatchWithinBatchDedup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QualityGateEnabled = false
	f, err := NewFilter(cfg, nil, nil)
	require.NoError(t, err)

	candidates := []types.ProposedItem{
		item("Fix memory leak in worker pool", "The worker pool leaks goroutines on shutdown"),
		item("Fix memory leak in worker pool", "Worker pool leaks goroutines on shutdown"),
		item("Add pagination to the activity feed", "The feed loads every event at once"),
	}

	result, err := f.CheckBatch(context.Background(), candidates, nil)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	require.Len(t, result.Accepted, 2)
	assert.Equal(t, "Fix memory leak in worker pool", result.Accepted[0].Title)
	assert.Equal(t, "Add pagination to the activity feed", result.Accepted[1].Title)

	require.Len(t, result.Rejections, 1)
	assert.Equal(t, ReasonDuplicate, result.Rejections[0].Reason)
	assert.True(t, result.Rejections[0].WithinBatch)
	assert.Equal(t, 1, result.Stats.WithinBatchDuplicateCount)
}

func TestCheckBatchWithinBatchDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QualityGateEnabled = false
	cfg.WithinBatchDedup = false
	f, err := NewFilter(cfg, nil, nil)
	require.NoError(t, err)

	candidates := []types.ProposedItem{
		item("Fix memory leak in worker pool", "The worker pool leaks goroutines on shutdown"),
		item("Fix memory leak in worker pool", "The worker pool leaks goroutines on shutdown"),
	}

	result, err := f.CheckBatch(context.Background(), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 2)
}

func TestCheckBatchShortTitleSkipsSimilarity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QualityGateEnabled = false
	f, err := NewFilter(cfg, nil, nil)
	require.NoError(t, err)

	// Identical to an existing item but below MinTitleLength, so the
	// similarity check is skipped and the item is accepted.
	existing := []types.ProposedItem{item("Fix login", "login broken")}
	candidates := []types.ProposedItem{item("Fix login", "login broken")}

	result, err := f.CheckBatch(context.Background(), candidates, existing)
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 1)
	assert.Empty(t, result.Rejections)
}

func TestCheckBatchPreservesInputOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QualityGateEnabled = false
	cfg.Parallelism = 8
	f, err := NewFilter(cfg, nil, nil)
	require.NoError(t, err)

	candidates := []types.ProposedItem{
		item("Add retry logic to webhook delivery", "Webhook posts fail without retry"),
		item("Document the deploy pipeline stages", "The deploy pipeline has no docs"),
		item("Upgrade the postgres driver to v5", "The v4 driver is unmaintained"),
		item("Remove the legacy session middleware", "Dead code path in the router"),
	}

	result, err := f.CheckBatch(context.Background(), candidates, nil)
	require.NoError(t, err)
	require.Len(t, result.Accepted, 4)
	for i, c := range candidates {
		assert.Equal(t, c.Title, result.Accepted[i].Title)
	}
}

func TestCheckBatchEmptyInputs(t *testing.T) {
	f := newTestFilter(t, DefaultConfig())

	result, err := f.CheckBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, result.Validate())
	assert.Empty(t, result.Accepted)
	assert.Empty(t, result.Rejections)
	assert.Equal(t, 0, result.Stats.TotalCandidates)
}

func TestCheckBatchCanceledContext(t *testing.T) {
	f := newTestFilter(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.CheckBatch(ctx, []types.ProposedItem{
		item("Fix authentication bug in system", "Authentication is broken", "bug"),
	}, nil)
	assert.Error(t, err)
}

func TestCheckBatchMaxCandidatesCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QualityGateEnabled = false
	cfg.MaxCandidates = 1
	f, err := NewFilter(cfg, nil, nil)
	require.NoError(t, err)

	// The duplicate of the candidate sits beyond the cap, so it is not seen.
	existing := []types.ProposedItem{
		item("Improve database query performance", "Slow queries on the users table"),
		item("Fix authentication bug in system", "Authentication is broken"),
	}
	candidates := []types.ProposedItem{
		item("Fix authentication bug in system", "Authentication is broken"),
	}

	result, err := f.CheckBatch(context.Background(), candidates, existing)
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 1)
}

func TestIsDuplicate(t *testing.T) {
	f := newTestFilter(t, DefaultConfig())

	t.Run("near-identical titles", func(t *testing.T) {
		dup, score := f.IsDuplicate(
			"Fix authentication bug", "Auth system is broken",
			"Fix authentication bug in system", "Authentication is broken",
		)
		assert.True(t, dup)
		assert.GreaterOrEqual(t, score.Title, 0.75)
	})

	t.Run("unrelated items", func(t *testing.T) {
		dup, score := f.IsDuplicate(
			"Fix authentication bug", "The auth system fails on session expiry",
			"Add dark mode feature", "Users want a dark theme for the dashboard",
		)
		assert.False(t, dup)
		assert.Less(t, score.Combined, 0.45)
	})
}

func TestCheckBatchWithSemanticScorer(t *testing.T) {
	scorer, err := quality.NewScorer(quality.DefaultConfig())
	require.NoError(t, err)
	f, err := NewFilter(DefaultConfig(), scorer, &similarity.KeywordOverlapScorer{})
	require.NoError(t, err)

	existing := []types.ProposedItem{
		item("Fix authentication bug", "Auth system is broken", "bug"),
	}
	candidates := []types.ProposedItem{
		item("Fix authentication bug in system", "Authentication is broken", "bug"),
	}

	result, err := f.CheckBatch(context.Background(), candidates, existing)
	require.NoError(t, err)
	require.Len(t, result.Rejections, 1)
	require.NotNil(t, result.Rejections[0].Similarity)
	assert.NotNil(t, result.Rejections[0].Similarity.Semantic)
}
