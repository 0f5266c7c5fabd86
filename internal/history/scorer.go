// Package history implements the learned-statistics scorer. It reads the
// preference store and infers a category from the sender's observed reply,
// archive and delete rates, falling back to the domain record when the
// sender is unknown.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Rate thresholds for category inference
const (
	highReplyRate    = 0.70
	midReplyRate     = 0.30
	highArchiveRate  = 0.80
	highDeleteRate   = 0.50
	fastReplyLatency = 2 * time.Hour
)

// Config holds the observation thresholds for trusting learned statistics
type Config struct {
	// MinSenderObservations is the minimum sender history before its
	// statistics participate
	MinSenderObservations int64

	// MinDomainObservations is the minimum domain history for the fallback
	MinDomainObservations int64
}

// DefaultConfig returns the default observation thresholds
func DefaultConfig() Config {
	return Config{
		MinSenderObservations: 5,
		MinDomainObservations: 10,
	}
}

// Scorer is the history layer. Reads are the only store access; it never
// mutates preferences.
type Scorer struct {
	store  core.PreferenceStore
	cfg    Config
	logger *zap.Logger
}

// NewScorer creates a new history scorer over the given store
func NewScorer(store core.PreferenceStore, cfg Config, logger *zap.Logger) *Scorer {
	if cfg.MinSenderObservations <= 0 {
		cfg.MinSenderObservations = DefaultConfig().MinSenderObservations
	}
	if cfg.MinDomainObservations <= 0 {
		cfg.MinDomainObservations = DefaultConfig().MinDomainObservations
	}
	return &Scorer{store: store, cfg: cfg, logger: logger}
}

// Source identifies the history layer
func (s *Scorer) Source() core.ScoreSource {
	return core.SourceHistory
}

// Score derives a layer score from the learned rates. It abstains when
// neither the sender nor the domain has enough observations, and degrades
// store read errors to an abstain.
func (s *Scorer) Score(ctx context.Context, email *core.Email) (*core.LayerScore, error) {
	sender, err := s.store.GetSender(ctx, email.Account, email.From)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("Preference store read failed, history layer abstaining",
			zap.String("sender", email.From),
			zap.Error(err))
		return nil, core.ErrAbstain
	}
	if sender != nil && sender.EmailsSeen >= s.cfg.MinSenderObservations {
		return s.scoreFromStats(
			"sender "+sender.Sender,
			sender.EmailsSeen,
			sender.ReplyRate, sender.ArchiveRate, sender.DeleteRate,
			sender.AvgImportance, sender.AvgReplyLatency,
		)
	}

	domain, err := s.store.GetDomain(ctx, email.Account, email.Domain())
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("Preference store read failed, history layer abstaining",
			zap.String("domain", email.Domain()),
			zap.Error(err))
		return nil, core.ErrAbstain
	}
	if domain != nil && domain.EmailsSeen >= s.cfg.MinDomainObservations {
		return s.scoreFromStats(
			"domain "+domain.Domain,
			domain.EmailsSeen,
			domain.ReplyRate, domain.ArchiveRate, domain.DeleteRate,
			domain.AvgImportance, domain.AvgReplyLatency,
		)
	}

	return nil, core.ErrAbstain
}

// scoreFromStats maps learned rates to a category and scales confidence by
// the observation count: <6 observations x0.8, 6-20 x1.0, >20 x1.1 capped
// at 1.0.
func (s *Scorer) scoreFromStats(subject string, observations int64, replyRate, archiveRate, deleteRate, avgImportance float64, avgReplyLatency time.Duration) (*core.LayerScore, error) {
	var category core.Category
	var confidence float64

	switch {
	case replyRate >= highReplyRate && avgReplyLatency > 0 && avgReplyLatency < fastReplyLatency:
		category = core.CategoryActionRequired
		confidence = replyRate
	case replyRate >= highReplyRate:
		category = core.CategoryImportant
		confidence = replyRate
	case replyRate >= midReplyRate:
		category = core.CategoryInformational
		confidence = 0.60
	case archiveRate >= highArchiveRate:
		category = core.CategoryNewsletter
		confidence = archiveRate
	case deleteRate > highDeleteRate:
		category = core.CategorySpam
		confidence = deleteRate
	default:
		return nil, core.ErrAbstain
	}

	switch {
	case observations < 6:
		confidence *= 0.8
	case observations > 20:
		confidence *= 1.1
	}
	confidence = core.Clamp01(confidence)

	return &core.LayerScore{
		Source:     core.SourceHistory,
		Category:   category,
		Confidence: confidence,
		Importance: core.Clamp01(avgImportance),
		Reasoning: fmt.Sprintf("%s: reply rate %.2f, archive rate %.2f, delete rate %.2f over %d observations",
			subject, replyRate, archiveRate, deleteRate, observations),
		Signals: []string{"history:" + subject},
	}, nil
}
