// Package outcomes is the durable ledger of proposed-and-accepted work
// items. Each accepted item gets one record, keyed by a caller-chosen
// integer (typically an issue number), and moves through its lifecycle via
// UpdateStatus as the caller observes external events. The ledger is the
// single source the feedback analyzer reads.
package outcomes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/forgeloop/gatekeeper/internal/types"
)

// ErrNotFound is returned by UpdateStatus when no record exists for the
// item key. Outcome tracking is best-effort telemetry, so callers are free
// to ignore it; the miss is logged either way.
var ErrNotFound = errors.New("outcome record not found")

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id              TEXT PRIMARY KEY,
	item_key        INTEGER NOT NULL,
	title           TEXT NOT NULL,
	category        TEXT NOT NULL,
	labels          TEXT NOT NULL DEFAULT '[]',
	status          TEXT NOT NULL DEFAULT 'pending',
	followup_ref    INTEGER,
	created_at      DATETIME NOT NULL,
	resolved_at     DATETIME,
	merged_at       DATETIME,
	resolve_minutes INTEGER,
	merge_minutes   INTEGER,
	files_changed   INTEGER NOT NULL DEFAULT 0,
	error_message   TEXT
);

CREATE INDEX IF NOT EXISTS idx_outcomes_item_key ON outcomes(item_key);
CREATE INDEX IF NOT EXISTS idx_outcomes_category ON outcomes(category);
CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON outcomes(created_at);
`

// Store is the SQLite-backed outcome ledger. Safe for concurrent use; WAL
// mode and a busy timeout cover concurrent processes sharing the file.
type Store struct {
	db      *sql.DB
	metrics MetricsConfig
}

// New opens (creating if needed) the outcome ledger at the given path
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to exec %s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, metrics: DefaultMetricsConfig()}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// SetMetricsConfig overrides the weight-formula constants used by TypeMetrics
func (s *Store) SetMetricsConfig(cfg MetricsConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}
	s.metrics = cfg
	return nil
}

// RecordAttempt inserts a pending record for a newly accepted item. The
// category is classified from the labels at insert time so later label
// edits in the external tracker do not rewrite history. Returns the record id.
func (s *Store) RecordAttempt(ctx context.Context, itemKey int, title string, labels []string) (string, error) {
	if itemKey <= 0 {
		return "", fmt.Errorf("item_key must be positive (got %d)", itemKey)
	}
	if title == "" {
		return "", fmt.Errorf("title is required")
	}

	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("failed to marshal labels: %w", err)
	}

	id := uuid.New().String()
	category := types.ClassifyLabels(labels)
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcomes (id, item_key, title, category, labels, status, created_at, files_changed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		id, itemKey, title, string(category), string(labelsJSON), string(types.StatusPending), now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert outcome record: %w", err)
	}

	log.Printf("[OUTCOME] Recorded attempt for item %d (category=%s): %s", itemKey, category, title)
	return id, nil
}

// UpdateOption supplies optional fields to UpdateStatus. Fields without an
// option are left unchanged.
type UpdateOption func(*updateParams)

type updateParams struct {
	followupRef  *int
	filesChanged *int
	errorMessage *string
}

// WithFollowupRef records the follow-up reference (e.g. the PR number)
func WithFollowupRef(ref int) UpdateOption {
	return func(p *updateParams) { p.followupRef = &ref }
}

// WithFilesChanged records how many files the resulting change touched
func WithFilesChanged(n int) UpdateOption {
	return func(p *updateParams) { p.filesChanged = &n }
}

// WithErrorMessage records why the item failed
func WithErrorMessage(msg string) UpdateOption {
	return func(p *updateParams) { p.errorMessage = &msg }
}

// UpdateStatus advances the newest record for the item key to the given
// status. Entering resolved or merged stamps resolved_at and derives
// resolve_minutes from created_at (an already-set resolved_at is kept, so a
// resolved record later merged retains its original resolution time);
// entering merged additionally stamps merged_at and merge_minutes.
//
// Transition legality is deliberately not validated: nothing here prevents
// merged from moving back to pending. Callers own the event stream.
//
// Returns ErrNotFound (after logging) when no record exists for the key.
func (s *Store) UpdateStatus(ctx context.Context, itemKey int, status types.OutcomeStatus, opts ...UpdateOption) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status: %s", status)
	}

	var params updateParams
	for _, opt := range opts {
		opt(&params)
	}

	var (
		id         string
		createdAt  time.Time
		resolvedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, resolved_at FROM outcomes
		 WHERE item_key = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		itemKey,
	).Scan(&id, &createdAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("[OUTCOME] Warning: no record for item %d, status update to %s dropped", itemKey, status)
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up record for item %d: %w", itemKey, err)
	}

	now := time.Now().UTC()
	set := "status = ?"
	args := []any{string(status)}

	if status == types.StatusResolved || status == types.StatusMerged {
		resolveTime := now
		if resolvedAt.Valid {
			resolveTime = resolvedAt.Time
		}
		set += ", resolved_at = ?, resolve_minutes = ?"
		args = append(args, resolveTime, int(resolveTime.Sub(createdAt).Minutes()))
	}
	if status == types.StatusMerged {
		set += ", merged_at = ?, merge_minutes = ?"
		args = append(args, now, int(now.Sub(createdAt).Minutes()))
	}
	if params.followupRef != nil {
		set += ", followup_ref = ?"
		args = append(args, *params.followupRef)
	}
	if params.filesChanged != nil {
		set += ", files_changed = ?"
		args = append(args, *params.filesChanged)
	}
	if params.errorMessage != nil {
		set += ", error_message = ?"
		args = append(args, *params.errorMessage)
	}

	args = append(args, id)
	if _, err := s.db.ExecContext(ctx, "UPDATE outcomes SET "+set+" WHERE id = ?", args...); err != nil {
		return fmt.Errorf("failed to update record for item %d: %w", itemKey, err)
	}

	log.Printf("[OUTCOME] Item %d -> %s", itemKey, status)
	return nil
}

// Record returns the newest record for the item key, or ErrNotFound
func (s *Store) Record(ctx context.Context, itemKey int) (*types.OutcomeRecord, error) {
	rows, err := s.queryRecords(ctx,
		"WHERE item_key = ? ORDER BY created_at DESC, rowid DESC LIMIT 1", itemKey)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Recent returns the newest records, most recent first
func (s *Store) Recent(ctx context.Context, limit int) ([]types.OutcomeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRecords(ctx, "ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
}

// OverallStats summarizes the whole ledger
type OverallStats struct {
	TotalRecords      int                       `json:"total_records"`
	ByStatus          map[types.OutcomeStatus]int `json:"by_status"`
	SuccessRate       float64                   `json:"success_rate"`
	MergeRate         float64                   `json:"merge_rate"`
	AvgResolveMinutes float64                   `json:"avg_resolve_minutes"`
	AvgMergeMinutes   float64                   `json:"avg_merge_minutes"`
}

// GetOverallStats aggregates status counts and rates across all records
func (s *Store) GetOverallStats(ctx context.Context) (*OverallStats, error) {
	records, err := s.queryRecords(ctx, "")
	if err != nil {
		return nil, err
	}

	stats := &OverallStats{ByStatus: make(map[types.OutcomeStatus]int)}
	var resolveSum, mergeSum, resolveN, mergeN int
	for _, r := range records {
		stats.TotalRecords++
		stats.ByStatus[r.Status]++
		if r.ResolveMinutes != nil {
			resolveSum += *r.ResolveMinutes
			resolveN++
		}
		if r.MergeMinutes != nil {
			mergeSum += *r.MergeMinutes
			mergeN++
		}
	}

	if stats.TotalRecords > 0 {
		success := stats.ByStatus[types.StatusResolved] + stats.ByStatus[types.StatusMerged]
		stats.SuccessRate = float64(success) / float64(stats.TotalRecords)
		stats.MergeRate = float64(stats.ByStatus[types.StatusMerged]) / float64(stats.TotalRecords)
	}
	if resolveN > 0 {
		stats.AvgResolveMinutes = float64(resolveSum) / float64(resolveN)
	}
	if mergeN > 0 {
		stats.AvgMergeMinutes = float64(mergeSum) / float64(mergeN)
	}

	return stats, nil
}

// ExportJSON writes every record, newest first, as an indented JSON array
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	records, err := s.queryRecords(ctx, "ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return err
	}
	if records == nil {
		records = []types.OutcomeRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// queryRecords runs the base select with an optional suffix clause
func (s *Store) queryRecords(ctx context.Context, clause string, args ...any) ([]types.OutcomeRecord, error) {
	query := `SELECT id, item_key, title, category, labels, status, followup_ref,
		created_at, resolved_at, merged_at, resolve_minutes, merge_minutes,
		files_changed, error_message FROM outcomes `
	rows, err := s.db.QueryContext(ctx, query+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var records []types.OutcomeRecord
	for rows.Next() {
		var (
			r              types.OutcomeRecord
			category       string
			labelsJSON     string
			status         string
			followupRef    sql.NullInt64
			resolvedAt     sql.NullTime
			mergedAt       sql.NullTime
			resolveMinutes sql.NullInt64
			mergeMinutes   sql.NullInt64
			errorMessage   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ItemKey, &r.Title, &category, &labelsJSON, &status,
			&followupRef, &r.CreatedAt, &resolvedAt, &mergedAt,
			&resolveMinutes, &mergeMinutes, &r.FilesChanged, &errorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan outcome record: %w", err)
		}

		r.Category = types.Category(category)
		r.Status = types.OutcomeStatus(status)
		if err := json.Unmarshal([]byte(labelsJSON), &r.Labels); err != nil {
			return nil, fmt.Errorf("failed to parse labels for record %s: %w", r.ID, err)
		}
		if followupRef.Valid {
			v := int(followupRef.Int64)
			r.FollowupRef = &v
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			r.ResolvedAt = &t
		}
		if mergedAt.Valid {
			t := mergedAt.Time
			r.MergedAt = &t
		}
		if resolveMinutes.Valid {
			v := int(resolveMinutes.Int64)
			r.ResolveMinutes = &v
		}
		if mergeMinutes.Valid {
			v := int(mergeMinutes.Int64)
			r.MergeMinutes = &v
		}
		if errorMessage.Valid {
			r.ErrorMessage = errorMessage.String
		}

		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}

	return records, nil
}
