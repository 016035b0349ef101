package types

import (
	"fmt"
	"time"
)

// ProposedItem is a candidate work item produced by a generator.
// It is ephemeral: the governance layer scores and filters proposed items
// but never persists them. Accepted items are tracked separately as
// OutcomeRecords once the caller files them.
type ProposedItem struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// Validate checks if the proposed item has valid field values
func (p *ProposedItem) Validate() error {
	if len(p.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(p.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(p.Title))
	}
	if len(p.Body) > 65536 {
		return fmt.Errorf("body must be 65536 characters or less (got %d)", len(p.Body))
	}
	return nil
}

// OutcomeStatus represents the lifecycle state of a tracked work item
type OutcomeStatus string

const (
	StatusPending  OutcomeStatus = "pending"
	StatusResolved OutcomeStatus = "resolved"
	StatusMerged   OutcomeStatus = "merged"
	StatusClosed   OutcomeStatus = "closed"
	StatusFailed   OutcomeStatus = "failed"
	StatusTimeout  OutcomeStatus = "timeout"
)

// IsValid checks if the status value is valid
func (s OutcomeStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusResolved, StatusMerged, StatusClosed, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// IsTerminal reports whether the status is an end state.
// Note that the ledger does not enforce transition legality: a record in a
// terminal status can still be updated. See Store.UpdateStatus.
func (s OutcomeStatus) IsTerminal() bool {
	switch s {
	case StatusMerged, StatusClosed, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// OutcomeRecord tracks one proposed-and-accepted work item through its
// lifecycle. Records are keyed by a caller-chosen integer (typically an issue
// number); when multiple records exist for the same key, the newest is
// authoritative.
type OutcomeRecord struct {
	ID             string        `json:"id"`
	ItemKey        int           `json:"item_key"`
	Title          string        `json:"title"`
	Category       Category      `json:"category"`
	Labels         []string      `json:"labels,omitempty"`
	Status         OutcomeStatus `json:"status"`
	FollowupRef    *int          `json:"followup_ref,omitempty"` // e.g. PR number
	CreatedAt      time.Time     `json:"created_at"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	MergedAt       *time.Time    `json:"merged_at,omitempty"`
	ResolveMinutes *int          `json:"resolve_minutes,omitempty"`
	MergeMinutes   *int          `json:"merge_minutes,omitempty"`
	FilesChanged   int           `json:"files_changed"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// Validate checks the record's lifecycle invariants:
//   - resolved_at is set iff status is resolved or merged
//   - merged_at is set iff status is merged
//   - timestamps are monotonic: created_at <= resolved_at <= merged_at
func (r *OutcomeRecord) Validate() error {
	if r.ItemKey <= 0 {
		return fmt.Errorf("item_key must be positive (got %d)", r.ItemKey)
	}
	if len(r.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if r.FilesChanged < 0 {
		return fmt.Errorf("files_changed cannot be negative (got %d)", r.FilesChanged)
	}

	resolved := r.Status == StatusResolved || r.Status == StatusMerged
	if resolved && r.ResolvedAt == nil {
		return fmt.Errorf("resolved_at must be set when status is %s", r.Status)
	}
	if !resolved && r.ResolvedAt != nil {
		return fmt.Errorf("resolved_at should not be set when status is %s", r.Status)
	}
	if r.Status == StatusMerged && r.MergedAt == nil {
		return fmt.Errorf("merged_at must be set when status is merged")
	}
	if r.Status != StatusMerged && r.MergedAt != nil {
		return fmt.Errorf("merged_at should not be set when status is %s", r.Status)
	}

	if r.ResolvedAt != nil && r.ResolvedAt.Before(r.CreatedAt) {
		return fmt.Errorf("resolved_at %s precedes created_at %s", r.ResolvedAt, r.CreatedAt)
	}
	if r.MergedAt != nil && r.ResolvedAt != nil && r.MergedAt.Before(*r.ResolvedAt) {
		return fmt.Errorf("merged_at %s precedes resolved_at %s", r.MergedAt, r.ResolvedAt)
	}

	return nil
}

// GenerationAttempt records one generation cycle's filter outcome.
// Attempts are immutable once recorded and feed the admission controller's
// rolling-window decisions.
type GenerationAttempt struct {
	Timestamp            time.Time `json:"timestamp"`
	ProposedCount        int       `json:"proposed_count"`
	AcceptedCount        int       `json:"accepted_count"`
	DuplicateCount       int       `json:"duplicate_count"`
	QualityRejectedCount int       `json:"quality_rejected_count"`
	Succeeded            bool      `json:"succeeded"`
}

// Validate checks if the attempt has valid counts
func (a *GenerationAttempt) Validate() error {
	if a.ProposedCount < 0 {
		return fmt.Errorf("proposed_count cannot be negative (got %d)", a.ProposedCount)
	}
	if a.AcceptedCount < 0 {
		return fmt.Errorf("accepted_count cannot be negative (got %d)", a.AcceptedCount)
	}
	if a.DuplicateCount < 0 {
		return fmt.Errorf("duplicate_count cannot be negative (got %d)", a.DuplicateCount)
	}
	if a.QualityRejectedCount < 0 {
		return fmt.Errorf("quality_rejected_count cannot be negative (got %d)", a.QualityRejectedCount)
	}
	if a.AcceptedCount > a.ProposedCount {
		return fmt.Errorf("accepted_count (%d) cannot exceed proposed_count (%d)",
			a.AcceptedCount, a.ProposedCount)
	}
	return nil
}
