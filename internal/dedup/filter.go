// Package dedup filters batches of proposed work items against existing
// items, rejecting candidates that fail the quality gate or duplicate
// something already tracked.
//
// The filter is a pure function over its inputs: it performs no I/O and
// holds no mutable state between calls. Callers typically source the
// existing-item list from a live tracker, but the filter itself never
// touches one.
package dedup

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgeloop/gatekeeper/internal/quality"
	"github.com/forgeloop/gatekeeper/internal/similarity"
	"github.com/forgeloop/gatekeeper/internal/types"
)

// RejectionReason classifies why a candidate was rejected
type RejectionReason string

const (
	// ReasonQuality means the candidate failed the quality gate.
	ReasonQuality RejectionReason = "quality"
	// ReasonDuplicate means the candidate duplicates an existing item
	// or an earlier candidate in the same batch.
	ReasonDuplicate RejectionReason = "duplicate"
)

// Rejection describes one rejected candidate with enough detail for
// logging and auditing.
type Rejection struct {
	Candidate types.ProposedItem `json:"candidate"`
	Reason    RejectionReason    `json:"reason"`

	// MatchedExisting is the best-matching item for duplicate rejections.
	// For within-batch duplicates it points at the earlier candidate.
	MatchedExisting *types.ProposedItem `json:"matched_existing,omitempty"`

	// WithinBatch is true when the match is an earlier candidate in the
	// same batch rather than an existing tracked item.
	WithinBatch bool `json:"within_batch,omitempty"`

	// Similarity holds the scores against MatchedExisting (duplicate
	// rejections only).
	Similarity *similarity.Score `json:"similarity,omitempty"`

	// Quality holds the quality assessment (quality rejections only).
	Quality *quality.Result `json:"quality,omitempty"`
}

// Stats provides metrics about one batch check
type Stats struct {
	TotalCandidates           int   `json:"total_candidates"`
	AcceptedCount             int   `json:"accepted_count"`
	QualityRejectedCount      int   `json:"quality_rejected_count"`
	DuplicateCount            int   `json:"duplicate_count"`
	WithinBatchDuplicateCount int   `json:"within_batch_duplicate_count"`
	ComparisonsMade           int   `json:"comparisons_made"`
	ProcessingTimeMs          int64 `json:"processing_time_ms"`
}

// BatchResult is the outcome of filtering one batch of candidates
type BatchResult struct {
	// Accepted candidates, in input order.
	Accepted []types.ProposedItem `json:"accepted"`
	// Rejections, in input order, with reasons and scores.
	Rejections []Rejection `json:"rejections"`
	Stats      Stats       `json:"stats"`
}

// Validate checks if the batch result is internally consistent
func (r *BatchResult) Validate() error {
	if r.Stats.AcceptedCount != len(r.Accepted) {
		return fmt.Errorf("stats.accepted_count (%d) does not match accepted length (%d)",
			r.Stats.AcceptedCount, len(r.Accepted))
	}
	rejected := r.Stats.QualityRejectedCount + r.Stats.DuplicateCount
	if rejected != len(r.Rejections) {
		return fmt.Errorf("stats reject counts (%d) do not match rejections length (%d)",
			rejected, len(r.Rejections))
	}
	if r.Stats.TotalCandidates != len(r.Accepted)+len(r.Rejections) {
		return fmt.Errorf("stats.total_candidates (%d) does not match accepted + rejections (%d)",
			r.Stats.TotalCandidates, len(r.Accepted)+len(r.Rejections))
	}
	if r.Stats.WithinBatchDuplicateCount > r.Stats.DuplicateCount {
		return fmt.Errorf("within_batch_duplicate_count (%d) exceeds duplicate_count (%d)",
			r.Stats.WithinBatchDuplicateCount, r.Stats.DuplicateCount)
	}
	for i, rej := range r.Rejections {
		if rej.Reason == ReasonDuplicate && rej.MatchedExisting == nil {
			return fmt.Errorf("rejection %d: duplicate without matched_existing", i)
		}
		if rej.Reason == ReasonQuality && rej.Quality == nil {
			return fmt.Errorf("rejection %d: quality rejection without quality result", i)
		}
	}
	return nil
}

// Filter checks candidate items for quality and novelty
type Filter struct {
	config   Config
	scorer   *quality.Scorer
	comparer *similarity.Comparer
}

// NewFilter creates a duplicate filter.
//
// The semantic scorer is optional; when nil, only the textual metrics are
// used. Passing similarity.KeywordOverlapScorer gives the default semantic
// fallback behavior.
func NewFilter(cfg Config, scorer *quality.Scorer, semantic similarity.SemanticScorer) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if scorer == nil && cfg.QualityGateEnabled {
		return nil, fmt.Errorf("quality scorer is required when the quality gate is enabled")
	}
	return &Filter{
		config:   cfg,
		scorer:   scorer,
		comparer: &similarity.Comparer{Semantic: semantic},
	}, nil
}

// candidateVerdict holds the scoring outcome for one candidate before the
// ordered accept/reject pass.
type candidateVerdict struct {
	quality     *quality.Result
	bestMatch   int // index into existing, -1 if none above threshold
	bestScore   similarity.Score
	comparisons int
	skippedSim  bool // title below MinTitleLength
}

// CheckBatch filters candidates against existing items. Per candidate, in
// order: the quality gate (when enabled) runs first and a failure skips the
// duplicate check; otherwise the candidate is compared against every
// existing item, and, when within-batch dedup is enabled, against earlier
// accepted candidates. Accepted items preserve input order.
//
// Candidate scoring against the existing list runs concurrently; the
// error return is only used for context cancellation.
func (f *Filter) CheckBatch(ctx context.Context, candidates, existing []types.ProposedItem) (*BatchResult, error) {
	start := time.Now()

	if len(existing) > f.config.MaxCandidates {
		log.Printf("[DEDUP] Comparing against first %d of %d existing items",
			f.config.MaxCandidates, len(existing))
		existing = existing[:f.config.MaxCandidates]
	}

	verdicts := make([]candidateVerdict, len(candidates))

	// Phase 1: score every candidate concurrently. Each goroutine writes
	// only its own index.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Parallelism)
	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i] = f.scoreCandidate(&candidates[i], existing)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch check canceled: %w", err)
	}

	// Phase 2: sequential accept/reject pass in input order. Within-batch
	// comparisons are inherently ordered (first occurrence wins) so they
	// cannot be part of phase 1.
	result := &BatchResult{}
	result.Stats.TotalCandidates = len(candidates)

	for i := range candidates {
		candidate := candidates[i]
		v := verdicts[i]
		result.Stats.ComparisonsMade += v.comparisons

		if f.config.QualityGateEnabled && !v.quality.PassesGate {
			result.Stats.QualityRejectedCount++
			result.Rejections = append(result.Rejections, Rejection{
				Candidate: candidate,
				Reason:    ReasonQuality,
				Quality:   v.quality,
			})
			continue
		}

		if v.bestMatch >= 0 {
			matched := existing[v.bestMatch]
			score := v.bestScore
			result.Stats.DuplicateCount++
			result.Rejections = append(result.Rejections, Rejection{
				Candidate:       candidate,
				Reason:          ReasonDuplicate,
				MatchedExisting: &matched,
				Similarity:      &score,
			})
			log.Printf("[DEDUP] Duplicate of existing item %q (title=%.2f combined=%.2f): %s",
				matched.Title, score.Title, score.Combined, candidate.Title)
			continue
		}

		if f.config.WithinBatchDedup && !v.skippedSim {
			prev, score, compared := f.matchWithinBatch(&candidate, result.Accepted)
			result.Stats.ComparisonsMade += compared
			if prev != nil {
				result.Stats.DuplicateCount++
				result.Stats.WithinBatchDuplicateCount++
				result.Rejections = append(result.Rejections, Rejection{
					Candidate:       candidate,
					Reason:          ReasonDuplicate,
					MatchedExisting: prev,
					WithinBatch:     true,
					Similarity:      score,
				})
				log.Printf("[DEDUP] Within-batch duplicate of %q: %s", prev.Title, candidate.Title)
				continue
			}
		}

		result.Accepted = append(result.Accepted, candidate)
	}

	result.Stats.AcceptedCount = len(result.Accepted)
	result.Stats.ProcessingTimeMs = time.Since(start).Milliseconds()

	return result, nil
}

// scoreCandidate computes the quality result and the best existing match
// for one candidate.
func (f *Filter) scoreCandidate(candidate *types.ProposedItem, existing []types.ProposedItem) candidateVerdict {
	v := candidateVerdict{bestMatch: -1}

	if f.scorer != nil {
		q := f.scorer.Score(candidate.Title, candidate.Body, candidate.Labels)
		v.quality = &q
	}

	// A failed gate skips the duplicate check entirely.
	if f.config.QualityGateEnabled && v.quality != nil && !v.quality.PassesGate {
		return v
	}

	if len(candidate.Title) < f.config.MinTitleLength {
		v.skippedSim = true
		log.Printf("[DEDUP] Skipping similarity for short title (len=%d, min=%d): %s",
			len(candidate.Title), f.config.MinTitleLength, candidate.Title)
		return v
	}

	for j := range existing {
		score := f.comparer.Compare(candidate.Title, candidate.Body, existing[j].Title, existing[j].Body)
		v.comparisons++
		if !f.isDuplicate(score) {
			continue
		}
		if v.bestMatch < 0 || score.Combined > v.bestScore.Combined {
			v.bestMatch = j
			v.bestScore = score
		}
	}

	return v
}

// matchWithinBatch compares a candidate against earlier accepted candidates,
// returning the first duplicate match and the number of comparisons made.
func (f *Filter) matchWithinBatch(candidate *types.ProposedItem, accepted []types.ProposedItem) (*types.ProposedItem, *similarity.Score, int) {
	for i := range accepted {
		score := f.comparer.Compare(candidate.Title, candidate.Body, accepted[i].Title, accepted[i].Body)
		if f.isDuplicate(score) {
			return &accepted[i], &score, i + 1
		}
	}
	return nil, nil, len(accepted)
}

func (f *Filter) isDuplicate(score similarity.Score) bool {
	return score.Title >= f.config.TitleThreshold || score.Combined >= f.config.CombinedThreshold
}

// IsDuplicate is a convenience wrapper for single-pair checks: it reports
// whether the two (title, body) pairs would be considered duplicates under
// the filter's thresholds, along with the scores.
func (f *Filter) IsDuplicate(title1, body1, title2, body2 string) (bool, similarity.Score) {
	score := f.comparer.Compare(title1, body1, title2, body2)
	return f.isDuplicate(score), score
}
