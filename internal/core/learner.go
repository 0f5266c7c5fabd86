package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LearnerConfig holds the tunable learning parameters
type LearnerConfig struct {
	// Alpha is the EMA rate: new = alpha*observed + (1-alpha)*old
	Alpha float64
}

// DefaultLearnerConfig returns the default learning parameters
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{Alpha: 0.15}
}

// PreferenceLearner updates sender and domain preference records from
// completed classifications and from user feedback. Updates for the same
// key are serialized under a per-key lock so concurrent classification and
// feedback updates never lose writes.
type PreferenceLearner struct {
	store  PreferenceStore
	logger *zap.Logger

	mu    sync.RWMutex
	alpha float64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewPreferenceLearner creates a new learner over the given store
func NewPreferenceLearner(store PreferenceStore, cfg LearnerConfig, logger *zap.Logger) *PreferenceLearner {
	alpha := cfg.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultLearnerConfig().Alpha
	}
	return &PreferenceLearner{
		store:  store,
		logger: logger,
		alpha:  alpha,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetAlpha replaces the EMA rate at runtime
func (l *PreferenceLearner) SetAlpha(alpha float64) {
	if alpha <= 0 || alpha > 1 {
		return
	}
	l.mu.Lock()
	l.alpha = alpha
	l.mu.Unlock()
}

// Alpha returns the current EMA rate
func (l *PreferenceLearner) Alpha() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.alpha
}

// observation is the (importance, action) pair a single update applies,
// sourced from either an EnsembleResult or a FeedbackRecord
type observation struct {
	importance   float64
	action       FeedbackAction
	replyLatency time.Duration
	preferred    *Category

	// countSeen is set for classification observations only; feedback
	// refers to an email that was already counted when classified
	countSeen bool
}

// LearnFromResult updates the preference records after a completed
// classification
func (l *PreferenceLearner) LearnFromResult(ctx context.Context, email *Email, result *EnsembleResult) error {
	if result.Unclassified {
		return nil
	}
	obs := observation{
		importance: result.Importance,
		countSeen:  true,
	}
	return l.learn(ctx, email.Account, email.From, email.Domain(), obs)
}

// LearnFromFeedback updates the preference records from one user action.
// Feedback uses the identical EMA formula as classification updates.
func (l *PreferenceLearner) LearnFromFeedback(ctx context.Context, fb *FeedbackRecord) error {
	importance := fb.Action.InferredImportance()
	if fb.Importance != nil {
		importance = *fb.Importance
	}
	obs := observation{
		importance:   importance,
		action:       fb.Action,
		replyLatency: fb.ReplyLatency,
	}
	if fb.Category != nil && fb.Action == ActionCorrection {
		obs.preferred = fb.Category
	}
	domain := (&Email{From: fb.Sender}).Domain()
	return l.learn(ctx, fb.Account, fb.Sender, domain, obs)
}

// learn applies one observation to the sender record and its domain record
func (l *PreferenceLearner) learn(ctx context.Context, account, sender, domain string, obs observation) error {
	if err := l.updateSender(ctx, account, sender, obs); err != nil {
		return err
	}
	if domain == "" {
		return nil
	}
	return l.updateDomain(ctx, account, domain, obs)
}

func (l *PreferenceLearner) updateSender(ctx context.Context, account, sender string, obs observation) error {
	unlock := l.lockKey("s/" + account + "/" + sender)
	defer unlock()

	pref, err := l.store.GetSender(ctx, account, sender)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to read sender preference: %w", err)
	}

	now := time.Now()
	if pref == nil {
		// First observation seeds the record with the observed value
		pref = &SenderPreference{
			Account:   account,
			Sender:    sender,
			Trust:     TrustNeutral,
			FirstSeen: now,
		}
		pref.AvgImportance = obs.importance
		if obs.action == ActionReply && obs.replyLatency > 0 {
			pref.AvgReplyLatency = obs.replyLatency
		}
	} else {
		pref.AvgImportance = l.ema(pref.AvgImportance, obs.importance)
		if obs.action == ActionReply && obs.replyLatency > 0 {
			if pref.AvgReplyLatency == 0 {
				pref.AvgReplyLatency = obs.replyLatency
			} else {
				pref.AvgReplyLatency = time.Duration(l.ema(float64(pref.AvgReplyLatency), float64(obs.replyLatency)))
			}
		}
	}

	applyCounters(&pref.EmailsSeen, &pref.Replied, &pref.Archived, &pref.Deleted, obs)
	recomputeRates(&pref.ReplyRate, &pref.ArchiveRate, &pref.DeleteRate, pref.EmailsSeen, pref.Replied, pref.Archived, pref.Deleted)
	if obs.preferred != nil {
		pref.PreferredCategory = obs.preferred
	}
	pref.LastUpdated = now

	return l.putSender(ctx, pref)
}

func (l *PreferenceLearner) updateDomain(ctx context.Context, account, domain string, obs observation) error {
	unlock := l.lockKey("d/" + account + "/" + domain)
	defer unlock()

	pref, err := l.store.GetDomain(ctx, account, domain)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to read domain preference: %w", err)
	}

	now := time.Now()
	if pref == nil {
		pref = &DomainPreference{
			Account:   account,
			Domain:    domain,
			Trust:     TrustNeutral,
			FirstSeen: now,
		}
		pref.AvgImportance = obs.importance
		if obs.action == ActionReply && obs.replyLatency > 0 {
			pref.AvgReplyLatency = obs.replyLatency
		}
	} else {
		pref.AvgImportance = l.ema(pref.AvgImportance, obs.importance)
		if obs.action == ActionReply && obs.replyLatency > 0 {
			if pref.AvgReplyLatency == 0 {
				pref.AvgReplyLatency = obs.replyLatency
			} else {
				pref.AvgReplyLatency = time.Duration(l.ema(float64(pref.AvgReplyLatency), float64(obs.replyLatency)))
			}
		}
	}

	applyCounters(&pref.EmailsSeen, &pref.Replied, &pref.Archived, &pref.Deleted, obs)
	recomputeRates(&pref.ReplyRate, &pref.ArchiveRate, &pref.DeleteRate, pref.EmailsSeen, pref.Replied, pref.Archived, pref.Deleted)
	pref.LastUpdated = now

	return l.putDomain(ctx, pref)
}

// putSender writes the record, retrying once on failure. A second failure
// is logged and dropped so learning never blocks the classification path.
func (l *PreferenceLearner) putSender(ctx context.Context, pref *SenderPreference) error {
	err := l.store.PutSender(ctx, pref)
	if err == nil {
		return nil
	}
	l.logger.Warn("Sender preference write failed, retrying once",
		zap.String("sender", pref.Sender),
		zap.Error(err))
	if err = l.store.PutSender(ctx, pref); err != nil {
		l.logger.Error("Dropping sender preference update",
			zap.String("sender", pref.Sender),
			zap.Error(err))
		return fmt.Errorf("failed to write sender preference: %w", err)
	}
	return nil
}

func (l *PreferenceLearner) putDomain(ctx context.Context, pref *DomainPreference) error {
	err := l.store.PutDomain(ctx, pref)
	if err == nil {
		return nil
	}
	l.logger.Warn("Domain preference write failed, retrying once",
		zap.String("domain", pref.Domain),
		zap.Error(err))
	if err = l.store.PutDomain(ctx, pref); err != nil {
		l.logger.Error("Dropping domain preference update",
			zap.String("domain", pref.Domain),
			zap.Error(err))
		return fmt.Errorf("failed to write domain preference: %w", err)
	}
	return nil
}

// ema applies new = alpha*observed + (1-alpha)*old
func (l *PreferenceLearner) ema(old, observed float64) float64 {
	alpha := l.Alpha()
	return alpha*observed + (1-alpha)*old
}

// lockKey acquires the per-key mutex, creating it on first use
func (l *PreferenceLearner) lockKey(key string) func() {
	l.locksMu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.locksMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// applyCounters increments the counters an observation touches
func applyCounters(seen, replied, archived, deleted *int64, obs observation) {
	if obs.countSeen {
		*seen++
	}
	switch obs.action {
	case ActionReply:
		*replied++
	case ActionArchive:
		*archived++
	case ActionDelete:
		*deleted++
	}
}

// recomputeRates derives rates as plain counter ratios, not EMAs
func recomputeRates(replyRate, archiveRate, deleteRate *float64, seen, replied, archived, deleted int64) {
	if seen <= 0 {
		return
	}
	*replyRate = float64(replied) / float64(seen)
	*archiveRate = float64(archived) / float64(seen)
	*deleteRate = float64(deleted) / float64(seen)
}
