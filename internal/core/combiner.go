package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScoringConfig holds the tunable surface of the ensemble. The boost,
// penalty and skip thresholds are configuration defaults, not proven-optimal
// constants, and can be changed at runtime via UpdateConfig.
type ScoringConfig struct {
	Production ScoringWeights
	Bootstrap  ScoringWeights

	SkipConfidence        float64
	SkipImportanceCeiling float64

	FullAgreementBoost     float64
	PartialAgreementBoost  float64
	DisagreementPenalty    float64
	TrustedBoost           float64
	SuspiciousPenalty      float64
	MutedImportance        float64
	MutedConfidencePenalty float64

	MinSenderObservations int64
	MinDomainObservations int64
}

// DefaultScoringConfig returns the default ensemble configuration
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Production:             ScoringWeights{Rule: 0.20, History: 0.30, Semantic: 0.50},
		Bootstrap:              ScoringWeights{Rule: 0.35, History: 0.05, Semantic: 0.60},
		SkipConfidence:         0.70,
		SkipImportanceCeiling:  0.80,
		FullAgreementBoost:     0.20,
		PartialAgreementBoost:  0.10,
		DisagreementPenalty:    0.20,
		TrustedBoost:           0.10,
		SuspiciousPenalty:      0.10,
		MutedImportance:        0.10,
		MutedConfidencePenalty: 0.20,
		MinSenderObservations:  5,
		MinDomainObservations:  10,
	}
}

// Validate checks both weight sets
func (c ScoringConfig) Validate() error {
	if err := c.Production.Validate(); err != nil {
		return err
	}
	return c.Bootstrap.Validate()
}

// WeightCombiner merges the rule, history and semantic layer scores into a
// single EnsembleResult. It owns the skip decision, all tie-breaking and the
// sender-preference overrides, and is deterministic given identical inputs.
type WeightCombiner struct {
	rule     Scorer
	history  Scorer
	semantic Scorer
	store    PreferenceStore
	logger   *zap.Logger

	mu  sync.RWMutex
	cfg ScoringConfig
}

// NewWeightCombiner creates a new combiner over the fixed set of scorers
func NewWeightCombiner(
	rule Scorer,
	history Scorer,
	semantic Scorer,
	store PreferenceStore,
	cfg ScoringConfig,
	logger *zap.Logger,
) (*WeightCombiner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &WeightCombiner{
		rule:     rule,
		history:  history,
		semantic: semantic,
		store:    store,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// UpdateConfig replaces the scoring configuration at runtime
func (c *WeightCombiner) UpdateConfig(cfg ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	c.logger.Info("Scoring configuration updated",
		zap.Float64("weight_rule", cfg.Production.Rule),
		zap.Float64("weight_history", cfg.Production.History),
		zap.Float64("weight_semantic", cfg.Production.Semantic))
	return nil
}

// Config returns a snapshot of the current scoring configuration
func (c *WeightCombiner) Config() ScoringConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Combine classifies one email through the ensemble
func (c *WeightCombiner) Combine(ctx context.Context, email *Email) (*EnsembleResult, error) {
	started := time.Now()
	cfg := c.Config()

	senderPref, domainPref := c.loadPreferences(ctx, email)

	// A blocked sender never reaches the scorers
	if effectiveTrust(senderPref, domainPref) == TrustBlocked {
		c.logger.Info("Sender is blocked, forcing spam",
			zap.String("email_id", email.ID),
			zap.String("sender", email.From))
		return &EnsembleResult{
			ProcessingID:    uuid.NewString(),
			EmailID:         email.ID,
			Category:        CategorySpam,
			Confidence:      0.99,
			Importance:      0.0,
			Agreement:       AgreementFull,
			SemanticSkipped: true,
			ProcessingTime:  time.Since(started),
			ClassifiedAt:    time.Now(),
		}, nil
	}

	// Rule and history are cheap and independent, run them concurrently
	var ruleScore, histScore *LayerScore
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ruleScore = c.runScorer(ctx, c.rule, email)
	}()
	go func() {
		defer wg.Done()
		histScore = c.runScorer(ctx, c.history, email)
	}()
	wg.Wait()

	weights := c.selectWeights(cfg, senderPref, domainPref)

	var semScore *LayerScore
	skipped := c.shouldSkipSemantic(cfg, weights, ruleScore, histScore)
	if skipped {
		c.logger.Debug("Skipping semantic layer",
			zap.String("email_id", email.ID))
	} else {
		score, err := c.semantic.Score(ctx, email)
		switch {
		case err == nil:
			semScore = score
		case errors.Is(err, ErrAbstain):
			// treated as absence
		default:
			c.logger.Warn("Semantic layer failed",
				zap.String("email_id", email.ID),
				zap.Error(err))
			if ruleScore == nil && histScore == nil {
				// Nothing succeeded. Surface the email as unclassified
				// rather than fabricating a category.
				return c.unclassifiedResult(email, started), nil
			}
		}
	}

	participants := collectParticipants(ruleScore, histScore, semScore)
	if len(participants) == 0 {
		return c.unclassifiedResult(email, started), nil
	}

	result := c.merge(cfg, weights, email, participants)
	result.SemanticSkipped = skipped
	c.applyOverrides(cfg, result, senderPref, domainPref)

	result.Confidence = Clamp01(result.Confidence)
	result.Importance = Clamp01(result.Importance)
	result.ProcessingTime = time.Since(started)
	return result, nil
}

// loadPreferences reads the sender and domain records. Store failures
// degrade to defaults and never block classification.
func (c *WeightCombiner) loadPreferences(ctx context.Context, email *Email) (*SenderPreference, *DomainPreference) {
	senderPref, err := c.store.GetSender(ctx, email.Account, email.From)
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Warn("Failed to read sender preference, proceeding with defaults",
			zap.String("sender", email.From),
			zap.Error(err))
	}
	domainPref, err := c.store.GetDomain(ctx, email.Account, email.Domain())
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Warn("Failed to read domain preference, proceeding with defaults",
			zap.String("domain", email.Domain()),
			zap.Error(err))
	}
	return senderPref, domainPref
}

// runScorer invokes a scorer, degrading any failure to an abstain
func (c *WeightCombiner) runScorer(ctx context.Context, scorer Scorer, email *Email) *LayerScore {
	score, err := scorer.Score(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrAbstain) {
			c.logger.Warn("Scorer failed, treating as abstain",
				zap.String("source", string(scorer.Source())),
				zap.String("email_id", email.ID),
				zap.Error(err))
		}
		return nil
	}
	return score
}

// selectWeights picks the bootstrap set while the sender and domain both
// lack sufficient history
func (c *WeightCombiner) selectWeights(cfg ScoringConfig, senderPref *SenderPreference, domainPref *DomainPreference) ScoringWeights {
	var senderObs, domainObs int64
	if senderPref != nil {
		senderObs = senderPref.EmailsSeen
	}
	if domainPref != nil {
		domainObs = domainPref.EmailsSeen
	}
	if senderObs < cfg.MinSenderObservations && domainObs < cfg.MinDomainObservations {
		return cfg.Bootstrap
	}
	return cfg.Production
}

// shouldSkipSemantic decides whether the expensive semantic layer is needed.
// It is skipped only when rule and history agree (or one abstained), their
// combined confidence clears the threshold, and neither flags the email as
// high importance.
func (c *WeightCombiner) shouldSkipSemantic(cfg ScoringConfig, weights ScoringWeights, ruleScore, histScore *LayerScore) bool {
	if ruleScore == nil && histScore == nil {
		return false
	}
	if ruleScore != nil && histScore != nil && ruleScore.Category != histScore.Category {
		return false
	}

	var confidence, totalWeight float64
	for _, score := range []*LayerScore{ruleScore, histScore} {
		if score == nil {
			continue
		}
		if score.Importance > cfg.SkipImportanceCeiling {
			// High-importance emails always get the semantic opinion
			return false
		}
		w := weights.Weight(score.Source)
		confidence += w * score.Confidence
		totalWeight += w
	}
	if totalWeight <= 0 {
		return false
	}
	return confidence/totalWeight >= cfg.SkipConfidence
}

// collectParticipants gathers the non-abstaining scores in fixed source
// order so the merge is deterministic
func collectParticipants(scores ...*LayerScore) []*LayerScore {
	participants := make([]*LayerScore, 0, len(scores))
	for _, score := range scores {
		if score != nil {
			participants = append(participants, score)
		}
	}
	return participants
}

// merge combines the participating layer scores into an EnsembleResult
func (c *WeightCombiner) merge(cfg ScoringConfig, weights ScoringWeights, email *Email, participants []*LayerScore) *EnsembleResult {
	var totalWeight float64
	for _, score := range participants {
		totalWeight += weights.Weight(score.Source)
	}

	// Weights are renormalized over the participating subset. If the
	// configured weights of all participants are zero, fall back to an
	// equal split.
	weightOf := func(score *LayerScore) float64 {
		if totalWeight <= 0 {
			return 1.0 / float64(len(participants))
		}
		return weights.Weight(score.Source) / totalWeight
	}

	var importance, confidence float64
	categoryScores := make(map[Category]float64, len(participants))
	categoryOrder := make([]Category, 0, len(participants))
	for _, score := range participants {
		w := weightOf(score)
		importance += w * score.Importance
		confidence += w * score.Confidence
		if _, seen := categoryScores[score.Category]; !seen {
			categoryOrder = append(categoryOrder, score.Category)
		}
		categoryScores[score.Category] += w * score.Confidence
	}

	// Primary category is the one with the highest weighted confidence.
	// Ties break toward the earlier source in rule/history/semantic order.
	primary := categoryOrder[0]
	for _, cat := range categoryOrder[1:] {
		if categoryScores[cat] > categoryScores[primary] {
			primary = cat
		}
	}

	secondaries := make([]Category, 0, len(categoryOrder))
	for _, cat := range categoryOrder {
		if cat != primary {
			secondaries = append(secondaries, cat)
		}
	}
	if len(secondaries) > 3 {
		secondaries = secondaries[:3]
	}

	result := &EnsembleResult{
		ProcessingID:        uuid.NewString(),
		EmailID:             email.ID,
		Category:            primary,
		SecondaryCategories: secondaries,
		Confidence:          confidence,
		Importance:          importance,
		Contributions:       copyScores(participants),
		ClassifiedAt:        time.Now(),
	}

	// Agreement adjustment only applies when at least two sources
	// participated; a lone source trivially agrees with itself.
	distinct := len(categoryOrder)
	switch {
	case len(participants) < 2:
		result.Agreement = AgreementFull
	case distinct == 1:
		result.Agreement = AgreementFull
		result.Confidence += cfg.FullAgreementBoost
	case distinct == len(participants):
		result.Agreement = AgreementNone
		result.Confidence -= cfg.DisagreementPenalty
		result.Disagreement = c.disagreement(email, participants)
	default:
		result.Agreement = AgreementPartial
		result.Confidence += cfg.PartialAgreementBoost
	}
	return result
}

func (c *WeightCombiner) disagreement(email *Email, participants []*LayerScore) *Disagreement {
	categories := make(map[ScoreSource]Category, len(participants))
	for _, score := range participants {
		categories[score.Source] = score.Category
	}
	c.logger.Info("Scorers disagreed on category",
		zap.String("email_id", email.ID),
		zap.Any("categories", categories))
	return &Disagreement{
		EmailID:    email.ID,
		Categories: categories,
		ObservedAt: time.Now(),
	}
}

// applyOverrides applies the sender-preference overrides in fixed priority
// order: trust bias > category muting > allow-list > preferred category >
// forced category. The blocked case is handled before any scorer runs.
func (c *WeightCombiner) applyOverrides(cfg ScoringConfig, result *EnsembleResult, senderPref *SenderPreference, domainPref *DomainPreference) {
	switch effectiveTrust(senderPref, domainPref) {
	case TrustTrusted:
		result.Confidence += cfg.TrustedBoost
	case TrustSuspicious:
		result.Confidence -= cfg.SuspiciousPenalty
	}

	if senderPref == nil {
		return
	}

	if containsCategory(senderPref.MutedCategories, result.Category) {
		result.Importance = cfg.MutedImportance
		result.Confidence -= cfg.MutedConfidencePenalty
	}

	if len(senderPref.AllowedCategories) > 0 {
		kept := result.SecondaryCategories[:0]
		for _, cat := range result.SecondaryCategories {
			if containsCategory(senderPref.AllowedCategories, cat) {
				kept = append(kept, cat)
			}
		}
		result.SecondaryCategories = kept
	}

	// A learned correction replaces the primary category only; secondaries
	// and confidence still reflect what the scorers saw. An explicit forced
	// category outranks the learned one.
	if senderPref.PreferredCategory != nil {
		result.Category = *senderPref.PreferredCategory
	}
	if senderPref.ForcedCategory != nil {
		result.Category = *senderPref.ForcedCategory
	}
}

func (c *WeightCombiner) unclassifiedResult(email *Email, started time.Time) *EnsembleResult {
	c.logger.Warn("All scoring sources failed or abstained, marking unclassified",
		zap.String("email_id", email.ID))
	return &EnsembleResult{
		ProcessingID:   uuid.NewString(),
		EmailID:        email.ID,
		Unclassified:   true,
		Confidence:     0,
		Importance:     0,
		Agreement:      AgreementNone,
		ProcessingTime: time.Since(started),
		ClassifiedAt:   time.Now(),
	}
}

func effectiveTrust(senderPref *SenderPreference, domainPref *DomainPreference) TrustLevel {
	if senderPref != nil && senderPref.Trust != "" && senderPref.Trust != TrustNeutral {
		return senderPref.Trust
	}
	if domainPref != nil && domainPref.Trust != "" {
		return domainPref.Trust
	}
	if senderPref != nil && senderPref.Trust != "" {
		return senderPref.Trust
	}
	return TrustNeutral
}

func containsCategory(categories []Category, c Category) bool {
	for _, candidate := range categories {
		if candidate == c {
			return true
		}
	}
	return false
}

func copyScores(scores []*LayerScore) []LayerScore {
	out := make([]LayerScore, len(scores))
	for i, score := range scores {
		out[i] = *score
	}
	return out
}
