// Package trust seeds operator-declared sender trust levels into the
// preference store at startup. Learned statistics are never overwritten,
// only the trust marker is set.
package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Seeder applies configured trust lists to sender preference records
type Seeder struct {
	store  core.PreferenceStore
	logger *zap.Logger
}

// NewSeeder creates a new trust seeder
func NewSeeder(store core.PreferenceStore, logger *zap.Logger) *Seeder {
	return &Seeder{
		store:  store,
		logger: logger,
	}
}

// Seed marks the listed senders with the given trust levels under the
// account. Existing records keep their learned counters and rates.
func (s *Seeder) Seed(ctx context.Context, account string, trusted, suspicious, blocked []string) error {
	for level, senders := range map[core.TrustLevel][]string{
		core.TrustTrusted:    trusted,
		core.TrustSuspicious: suspicious,
		core.TrustBlocked:    blocked,
	} {
		for _, sender := range senders {
			if err := s.mark(ctx, account, sender, level); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) mark(ctx context.Context, account, sender string, level core.TrustLevel) error {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" {
		return nil
	}

	pref, err := s.store.GetSender(ctx, account, sender)
	if errors.Is(err, core.ErrNotFound) {
		now := time.Now()
		pref = &core.SenderPreference{
			Account:     account,
			Sender:      sender,
			Trust:       level,
			FirstSeen:   now,
			LastUpdated: now,
		}
	} else if err != nil {
		return fmt.Errorf("failed to load sender %s: %w", sender, err)
	} else {
		if pref.Trust == level {
			return nil
		}
		pref.Trust = level
		pref.LastUpdated = time.Now()
	}

	if err := s.store.PutSender(ctx, pref); err != nil {
		return fmt.Errorf("failed to mark sender %s as %s: %w", sender, level, err)
	}
	s.logger.Info("Seeded sender trust",
		zap.String("account", account),
		zap.String("sender", sender),
		zap.String("trust", string(level)))
	return nil
}
