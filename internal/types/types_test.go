package types

import (
	"strings"
	"testing"
	"time"
)

func TestProposedItemValidate(t *testing.T) {
	tests := []struct {
		name        string
		item        ProposedItem
		expectError bool
	}{
		{
			name: "valid item",
			item: ProposedItem{Title: "Fix flaky login test", Body: "The login test fails intermittently", Labels: []string{"bug", "test"}},
		},
		{
			name:        "missing title",
			item:        ProposedItem{Body: "some body"},
			expectError: true,
		},
		{
			name:        "title too long",
			item:        ProposedItem{Title: strings.Repeat("x", 501)},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.expectError && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGenerationAttemptValidate(t *testing.T) {
	tests := []struct {
		name        string
		attempt     GenerationAttempt
		expectError bool
	}{
		{
			name:    "valid attempt",
			attempt: GenerationAttempt{Timestamp: time.Now(), ProposedCount: 10, AcceptedCount: 6, DuplicateCount: 3, QualityRejectedCount: 1, Succeeded: true},
		},
		{
			name:    "zero counts",
			attempt: GenerationAttempt{Timestamp: time.Now()},
		},
		{
			name:        "negative proposed",
			attempt:     GenerationAttempt{ProposedCount: -1},
			expectError: true,
		},
		{
			name:        "accepted exceeds proposed",
			attempt:     GenerationAttempt{ProposedCount: 2, AcceptedCount: 3},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attempt.Validate()
			if tt.expectError && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestOutcomeRecordValidate(t *testing.T) {
	now := time.Now()
	later := now.Add(10 * time.Minute)
	evenLater := now.Add(20 * time.Minute)

	tests := []struct {
		name        string
		record      OutcomeRecord
		expectError bool
		errorMsg    string
	}{
		{
			name: "pending record",
			record: OutcomeRecord{
				ItemKey:   42,
				Title:     "Fix race in session store",
				Category:  CategoryBug,
				Status:    StatusPending,
				CreatedAt: now,
			},
		},
		{
			name: "merged record with full timeline",
			record: OutcomeRecord{
				ItemKey:    42,
				Title:      "Fix race in session store",
				Category:   CategoryBug,
				Status:     StatusMerged,
				CreatedAt:  now,
				ResolvedAt: &later,
				MergedAt:   &evenLater,
			},
		},
		{
			name: "merged without merged_at",
			record: OutcomeRecord{
				ItemKey:    42,
				Title:      "t",
				Status:     StatusMerged,
				CreatedAt:  now,
				ResolvedAt: &later,
			},
			expectError: true,
			errorMsg:    "merged_at must be set",
		},
		{
			name: "resolved without resolved_at",
			record: OutcomeRecord{
				ItemKey:   42,
				Title:     "t",
				Status:    StatusResolved,
				CreatedAt: now,
			},
			expectError: true,
			errorMsg:    "resolved_at must be set",
		},
		{
			name: "pending with resolved_at",
			record: OutcomeRecord{
				ItemKey:    42,
				Title:      "t",
				Status:     StatusPending,
				CreatedAt:  now,
				ResolvedAt: &later,
			},
			expectError: true,
			errorMsg:    "resolved_at should not be set",
		},
		{
			name: "merged_at before resolved_at",
			record: OutcomeRecord{
				ItemKey:    42,
				Title:      "t",
				Status:     StatusMerged,
				CreatedAt:  now,
				ResolvedAt: &evenLater,
				MergedAt:   &later,
			},
			expectError: true,
			errorMsg:    "precedes resolved_at",
		},
		{
			name: "non-positive item key",
			record: OutcomeRecord{
				ItemKey:   0,
				Title:     "t",
				Status:    StatusPending,
				CreatedAt: now,
			},
			expectError: true,
			errorMsg:    "item_key must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errorMsg)
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestOutcomeStatusIsTerminal(t *testing.T) {
	terminal := []OutcomeStatus{StatusMerged, StatusClosed, StatusFailed, StatusTimeout}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []OutcomeStatus{StatusPending, StatusResolved} {
		if s.IsTerminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}
