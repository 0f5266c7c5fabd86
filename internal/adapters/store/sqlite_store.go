package store

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

// SQLiteStore is a SQLite implementation of the PreferenceStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed initializes) a SQLite preference
// store at the given path
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_preferences (
			account TEXT NOT NULL,
			sender TEXT NOT NULL,
			emails_seen INTEGER NOT NULL DEFAULT 0,
			replied INTEGER NOT NULL DEFAULT 0,
			archived INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			reply_rate REAL NOT NULL DEFAULT 0,
			archive_rate REAL NOT NULL DEFAULT 0,
			delete_rate REAL NOT NULL DEFAULT 0,
			avg_importance REAL NOT NULL DEFAULT 0,
			avg_reply_latency_ns INTEGER NOT NULL DEFAULT 0,
			preferred_category TEXT,
			forced_category TEXT,
			trust TEXT NOT NULL DEFAULT 'neutral',
			allowed_categories TEXT,
			muted_categories TEXT,
			first_seen TIMESTAMP,
			last_updated TIMESTAMP,
			PRIMARY KEY (account, sender)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sender_preferences table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_preferences (
			account TEXT NOT NULL,
			domain TEXT NOT NULL,
			emails_seen INTEGER NOT NULL DEFAULT 0,
			replied INTEGER NOT NULL DEFAULT 0,
			archived INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			reply_rate REAL NOT NULL DEFAULT 0,
			archive_rate REAL NOT NULL DEFAULT 0,
			delete_rate REAL NOT NULL DEFAULT 0,
			avg_importance REAL NOT NULL DEFAULT 0,
			avg_reply_latency_ns INTEGER NOT NULL DEFAULT 0,
			trust TEXT NOT NULL DEFAULT 'neutral',
			first_seen TIMESTAMP,
			last_updated TIMESTAMP,
			PRIMARY KEY (account, domain)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create domain_preferences table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// GetSender retrieves a sender preference record
func (s *SQLiteStore) GetSender(ctx context.Context, account, sender string) (*core.SenderPreference, error) {
	pref := &core.SenderPreference{Account: account, Sender: sender}
	var latencyNs int64
	var preferred, forced, allowed, muted sql.NullString
	var firstSeen, lastUpdated sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT emails_seen, replied, archived, deleted,
		       reply_rate, archive_rate, delete_rate,
		       avg_importance, avg_reply_latency_ns,
		       preferred_category, forced_category, trust,
		       allowed_categories, muted_categories,
		       first_seen, last_updated
		FROM sender_preferences
		WHERE account = ? AND sender = ?
	`, account, sender).Scan(
		&pref.EmailsSeen, &pref.Replied, &pref.Archived, &pref.Deleted,
		&pref.ReplyRate, &pref.ArchiveRate, &pref.DeleteRate,
		&pref.AvgImportance, &latencyNs,
		&preferred, &forced, &pref.Trust,
		&allowed, &muted,
		&firstSeen, &lastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sender preference: %w", err)
	}

	pref.AvgReplyLatency = time.Duration(latencyNs)
	pref.PreferredCategory = nullCategory(preferred)
	pref.ForcedCategory = nullCategory(forced)
	if firstSeen.Valid {
		pref.FirstSeen = firstSeen.Time
	}
	if lastUpdated.Valid {
		pref.LastUpdated = lastUpdated.Time
	}
	if err := decodeCategories(allowed, &pref.AllowedCategories); err != nil {
		return nil, err
	}
	if err := decodeCategories(muted, &pref.MutedCategories); err != nil {
		return nil, err
	}
	return pref, nil
}

// PutSender stores a sender preference record
func (s *SQLiteStore) PutSender(ctx context.Context, pref *core.SenderPreference) error {
	allowed, err := encodeCategories(pref.AllowedCategories)
	if err != nil {
		return err
	}
	muted, err := encodeCategories(pref.MutedCategories)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sender_preferences (
			account, sender, emails_seen, replied, archived, deleted,
			reply_rate, archive_rate, delete_rate,
			avg_importance, avg_reply_latency_ns,
			preferred_category, forced_category, trust,
			allowed_categories, muted_categories,
			first_seen, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pref.Account, pref.Sender, pref.EmailsSeen, pref.Replied, pref.Archived, pref.Deleted,
		pref.ReplyRate, pref.ArchiveRate, pref.DeleteRate,
		pref.AvgImportance, int64(pref.AvgReplyLatency),
		categoryValue(pref.PreferredCategory), categoryValue(pref.ForcedCategory), string(pref.Trust),
		allowed, muted,
		pref.FirstSeen, pref.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sender preference: %w", err)
	}
	return nil
}

// GetDomain retrieves a domain preference record
func (s *SQLiteStore) GetDomain(ctx context.Context, account, domain string) (*core.DomainPreference, error) {
	pref := &core.DomainPreference{Account: account, Domain: domain}
	var latencyNs int64
	var firstSeen, lastUpdated sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT emails_seen, replied, archived, deleted,
		       reply_rate, archive_rate, delete_rate,
		       avg_importance, avg_reply_latency_ns, trust,
		       first_seen, last_updated
		FROM domain_preferences
		WHERE account = ? AND domain = ?
	`, account, domain).Scan(
		&pref.EmailsSeen, &pref.Replied, &pref.Archived, &pref.Deleted,
		&pref.ReplyRate, &pref.ArchiveRate, &pref.DeleteRate,
		&pref.AvgImportance, &latencyNs, &pref.Trust,
		&firstSeen, &lastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query domain preference: %w", err)
	}

	pref.AvgReplyLatency = time.Duration(latencyNs)
	if firstSeen.Valid {
		pref.FirstSeen = firstSeen.Time
	}
	if lastUpdated.Valid {
		pref.LastUpdated = lastUpdated.Time
	}
	return pref, nil
}

// PutDomain stores a domain preference record
func (s *SQLiteStore) PutDomain(ctx context.Context, pref *core.DomainPreference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO domain_preferences (
			account, domain, emails_seen, replied, archived, deleted,
			reply_rate, archive_rate, delete_rate,
			avg_importance, avg_reply_latency_ns, trust,
			first_seen, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pref.Account, pref.Domain, pref.EmailsSeen, pref.Replied, pref.Archived, pref.Deleted,
		pref.ReplyRate, pref.ArchiveRate, pref.DeleteRate,
		pref.AvgImportance, int64(pref.AvgReplyLatency), string(pref.Trust),
		pref.FirstSeen, pref.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert domain preference: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullCategory(v sql.NullString) *core.Category {
	if !v.Valid || v.String == "" {
		return nil
	}
	category := core.Category(v.String)
	return &category
}

func categoryValue(c *core.Category) interface{} {
	if c == nil {
		return nil
	}
	return string(*c)
}

func encodeCategories(categories []core.Category) (interface{}, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("failed to encode category list: %w", err)
	}
	return string(data), nil
}

func decodeCategories(v sql.NullString, out *[]core.Category) error {
	if !v.Valid || v.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(v.String), out); err != nil {
		return fmt.Errorf("failed to decode category list: %w", err)
	}
	return nil
}
