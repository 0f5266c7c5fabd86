package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the PreferenceStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects to MySQL and initializes the preference tables
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_preferences (
			account VARCHAR(255) NOT NULL,
			sender VARCHAR(255) NOT NULL,
			emails_seen BIGINT NOT NULL DEFAULT 0,
			replied BIGINT NOT NULL DEFAULT 0,
			archived BIGINT NOT NULL DEFAULT 0,
			deleted BIGINT NOT NULL DEFAULT 0,
			reply_rate DOUBLE NOT NULL DEFAULT 0,
			archive_rate DOUBLE NOT NULL DEFAULT 0,
			delete_rate DOUBLE NOT NULL DEFAULT 0,
			avg_importance DOUBLE NOT NULL DEFAULT 0,
			avg_reply_latency_ns BIGINT NOT NULL DEFAULT 0,
			preferred_category VARCHAR(64),
			forced_category VARCHAR(64),
			trust VARCHAR(32) NOT NULL DEFAULT 'neutral',
			allowed_categories TEXT,
			muted_categories TEXT,
			first_seen TIMESTAMP NULL,
			last_updated TIMESTAMP NULL,
			PRIMARY KEY (account, sender)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sender_preferences table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_preferences (
			account VARCHAR(255) NOT NULL,
			domain VARCHAR(255) NOT NULL,
			emails_seen BIGINT NOT NULL DEFAULT 0,
			replied BIGINT NOT NULL DEFAULT 0,
			archived BIGINT NOT NULL DEFAULT 0,
			deleted BIGINT NOT NULL DEFAULT 0,
			reply_rate DOUBLE NOT NULL DEFAULT 0,
			archive_rate DOUBLE NOT NULL DEFAULT 0,
			delete_rate DOUBLE NOT NULL DEFAULT 0,
			avg_importance DOUBLE NOT NULL DEFAULT 0,
			avg_reply_latency_ns BIGINT NOT NULL DEFAULT 0,
			trust VARCHAR(32) NOT NULL DEFAULT 'neutral',
			first_seen TIMESTAMP NULL,
			last_updated TIMESTAMP NULL,
			PRIMARY KEY (account, domain)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create domain_preferences table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// GetSender retrieves a sender preference record
func (s *MySQLStore) GetSender(ctx context.Context, account, sender string) (*core.SenderPreference, error) {
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
func (s *MySQLStore) PutSender(ctx context.Context, pref *core.SenderPreference) error {
	allowed, err := encodeCategories(pref.AllowedCategories)
	if err != nil {
		return err
	}
	muted, err := encodeCategories(pref.MutedCategories)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		REPLACE INTO sender_preferences (
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
func (s *MySQLStore) GetDomain(ctx context.Context, account, domain string) (*core.DomainPreference, error) {
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
func (s *MySQLStore) PutDomain(ctx context.Context, pref *core.DomainPreference) error {
	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO domain_preferences (
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
