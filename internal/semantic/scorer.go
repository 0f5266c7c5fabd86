// Package semantic implements the generative-model scorer: a local-first
// primary provider with a bounded timeout and one automatic failover to a
// secondary cloud provider. The two providers are mutually exclusive
// outcomes of one logical scoring operation and never run concurrently.
package semantic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/guardrail"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single provider invocation
const DefaultTimeout = 10 * time.Second

// Scorer is the semantic layer
type Scorer struct {
	guard     *guardrail.Filter
	primary   core.LLMClient
	secondary core.LLMClient
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScorer creates the semantic scorer. The secondary client may be nil,
// in which case no failover is attempted.
func NewScorer(
	guard *guardrail.Filter,
	primary core.LLMClient,
	secondary core.LLMClient,
	timeout time.Duration,
	logger *zap.Logger,
) *Scorer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scorer{
		guard:     guard,
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		logger:    logger,
	}
}

// Source identifies the semantic layer
func (s *Scorer) Source() core.ScoreSource {
	return core.SourceSemantic
}

// Score runs the guardrail check, then asks the primary provider, failing
// over once to the secondary. Out-of-contract output gets one retry against
// the same provider before counting as a provider failure.
func (s *Scorer) Score(ctx context.Context, email *core.Email) (*core.LayerScore, error) {
	verdict := s.guard.Check(email)
	if verdict.Decision == guardrail.Blocked {
		return &core.LayerScore{
			Source:     core.SourceSemantic,
			Category:   verdict.Category,
			Confidence: 0.98,
			Importance: 0.0,
			Reasoning:  "blocked by content filter: " + verdict.Reason,
			Signals:    []string{"guardrail:blocked"},
		}, nil
	}

	analysis, primaryErr := s.invoke(ctx, s.primary, email)
	if primaryErr == nil {
		return s.toLayerScore(analysis), nil
	}
	s.logger.Warn("Primary semantic provider failed, failing over",
		zap.String("email_id", email.ID),
		zap.String("provider", s.primary.Name()),
		zap.Error(primaryErr))

	if s.secondary == nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrAllProvidersFailed, s.primary.Name(), primaryErr)
	}

	analysis, secondaryErr := s.invoke(ctx, s.secondary, email)
	if secondaryErr != nil {
		return nil, fmt.Errorf("%w: %s: %s; %s: %s", core.ErrAllProvidersFailed,
			s.primary.Name(), primaryErr, s.secondary.Name(), secondaryErr)
	}
	return s.toLayerScore(analysis), nil
}

// invoke calls one provider under the bounded timeout, retrying exactly
// once when the structured output fails validation. The call is detached
// from batch cancellation so an in-flight request completes or times out
// cleanly instead of leaving an orphaned provider connection.
func (s *Scorer) invoke(ctx context.Context, client core.LLMClient, email *core.Email) (*core.SemanticAnalysis, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	analysis, err := client.AnalyzeEmail(callCtx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrProviderUnavailable, err)
	}

	if err := validate(analysis); err != nil {
		s.logger.Warn("Semantic output failed validation, retrying once",
			zap.String("email_id", email.ID),
			zap.String("provider", client.Name()),
			zap.Error(err))
		analysis, err = client.AnalyzeEmail(callCtx, email)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrProviderUnavailable, err)
		}
		if err := validate(analysis); err != nil {
			return nil, err
		}
	}
	return analysis, nil
}

// validate enforces the structured-output contract
func validate(analysis *core.SemanticAnalysis) error {
	if analysis == nil {
		return &core.ValidationError{Source: "semantic", Reason: "nil analysis"}
	}
	if !core.IsValidCategory(analysis.Category) {
		return &core.ValidationError{Source: "semantic", Field: "category",
			Reason: fmt.Sprintf("unknown category %q", analysis.Category)}
	}
	if analysis.Confidence < 0 || analysis.Confidence > 1 {
		return &core.ValidationError{Source: "semantic", Field: "confidence", Reason: "out of [0,1]"}
	}
	if analysis.Importance < 0 || analysis.Importance > 1 {
		return &core.ValidationError{Source: "semantic", Field: "importance", Reason: "out of [0,1]"}
	}
	if strings.TrimSpace(analysis.Reasoning) == "" {
		return &core.ValidationError{Source: "semantic", Field: "reasoning", Reason: "empty"}
	}
	return nil
}

func (s *Scorer) toLayerScore(analysis *core.SemanticAnalysis) *core.LayerScore {
	score := &core.LayerScore{
		Source:           core.SourceSemantic,
		Category:         analysis.Category,
		Confidence:       analysis.Confidence,
		Importance:       analysis.Importance,
		Reasoning:        analysis.Reasoning,
		Intent:           analysis.Intent,
		ResponseRequired: analysis.ResponseRequired,
	}
	if analysis.ModelUsed != "" {
		score.Signals = []string{"model:" + analysis.ModelUsed}
	}
	return score
}
