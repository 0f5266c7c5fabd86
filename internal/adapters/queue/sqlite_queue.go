package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// SQLiteQueue is a SQLite implementation of the ReviewQueue interface
type SQLiteQueue struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteQueue opens (and if needed initializes) a SQLite review queue
func NewSQLiteQueue(dbPath string, logger *zap.Logger) (*SQLiteQueue, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS review_queue (
			id TEXT PRIMARY KEY,
			email_id TEXT NOT NULL,
			account TEXT NOT NULL,
			sender TEXT NOT NULL,
			suggested TEXT,
			disposition TEXT NOT NULL,
			status TEXT NOT NULL,
			corrected_category TEXT,
			urgent BOOLEAN NOT NULL DEFAULT 0,
			enqueued_at TIMESTAMP,
			resolved_at TIMESTAMP
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create review_queue table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_review_queue_pending
		ON review_queue(account, status)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteQueue{db: db, logger: logger}, nil
}

// Enqueue adds a pending item
func (q *SQLiteQueue) Enqueue(ctx context.Context, item *core.QueueItem) error {
	suggested, err := encodeSuggested(item.Suggested)
	if err != nil {
		return err
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO review_queue (
			id, email_id, account, sender, suggested,
			disposition, status, corrected_category, urgent,
			enqueued_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.EmailID, item.Account, item.Sender, suggested,
		string(item.Disposition), string(item.Status), categoryValue(item.CorrectedCategory), item.Urgent,
		item.EnqueuedAt, item.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue review item: %w", err)
	}
	return nil
}

// Get retrieves an item by id
func (q *SQLiteQueue) Get(ctx context.Context, id string) (*core.QueueItem, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, email_id, account, sender, suggested,
		       disposition, status, corrected_category, urgent,
		       enqueued_at, resolved_at
		FROM review_queue
		WHERE id = ?
	`, id)
	return scanItem(row)
}

// Pending lists unresolved items for an account, oldest first
func (q *SQLiteQueue) Pending(ctx context.Context, account string) ([]*core.QueueItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, email_id, account, sender, suggested,
		       disposition, status, corrected_category, urgent,
		       enqueued_at, resolved_at
		FROM review_queue
		WHERE account = ? AND status = ?
		ORDER BY enqueued_at ASC
	`, account, string(core.ReviewPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending items: %w", err)
	}
	defer rows.Close()

	var items []*core.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Resolve marks an item approved, rejected or modified. Approved and
// rejected items are terminal.
func (q *SQLiteQueue) Resolve(ctx context.Context, id string, status core.ReviewStatus, corrected *core.Category) (*core.QueueItem, error) {
	item, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == core.ReviewApproved || item.Status == core.ReviewRejected {
		return nil, core.ErrItemResolved
	}

	now := time.Now()
	_, err = q.db.ExecContext(ctx, `
		UPDATE review_queue
		SET status = ?, corrected_category = ?, resolved_at = ?
		WHERE id = ?
	`, string(status), categoryValue(corrected), now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve review item: %w", err)
	}

	item.Status = status
	item.CorrectedCategory = corrected
	item.ResolvedAt = &now
	return item, nil
}

// Close closes the database connection
func (q *SQLiteQueue) Close() error {
	return q.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*core.QueueItem, error) {
	item := &core.QueueItem{}
	var suggested, corrected sql.NullString
	var disposition, status string
	var enqueuedAt sql.NullTime
	var resolvedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.EmailID, &item.Account, &item.Sender, &suggested,
		&disposition, &status, &corrected, &item.Urgent,
		&enqueuedAt, &resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan review item: %w", err)
	}

	item.Disposition = core.Disposition(disposition)
	item.Status = core.ReviewStatus(status)
	if corrected.Valid && corrected.String != "" {
		category := core.Category(corrected.String)
		item.CorrectedCategory = &category
	}
	if enqueuedAt.Valid {
		item.EnqueuedAt = enqueuedAt.Time
	}
	if resolvedAt.Valid {
		item.ResolvedAt = &resolvedAt.Time
	}
	if suggested.Valid && suggested.String != "" {
		var result core.EnsembleResult
		if err := json.Unmarshal([]byte(suggested.String), &result); err != nil {
			return nil, fmt.Errorf("failed to decode suggested classification: %w", err)
		}
		item.Suggested = &result
	}
	return item, nil
}

func encodeSuggested(result *core.EnsembleResult) (interface{}, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggested classification: %w", err)
	}
	return string(data), nil
}

func categoryValue(c *core.Category) interface{} {
	if c == nil {
		return nil
	}
	return string(*c)
}
