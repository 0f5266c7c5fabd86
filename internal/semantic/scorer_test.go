package semantic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/guardrail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubClient returns each response in order, then repeats the last one.
type stubClient struct {
	name      string
	responses []*core.SemanticAnalysis
	err       error
	calls     int
}

func (c *stubClient) AnalyzeEmail(ctx context.Context, email *core.Email) (*core.SemanticAnalysis, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	idx := c.calls - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

func (c *stubClient) Name() string { return c.name }

func goodAnalysis(model string) *core.SemanticAnalysis {
	return &core.SemanticAnalysis{
		Category:         core.CategoryImportant,
		Confidence:       0.82,
		Importance:       0.70,
		Reasoning:        "direct question from a known correspondent",
		Intent:           "question",
		ResponseRequired: true,
		ModelUsed:        model,
	}
}

func newTestScorer(primary, secondary core.LLMClient) *Scorer {
	return NewScorer(guardrail.NewFilter(zap.NewNop()), primary, secondary, time.Second, zap.NewNop())
}

func cleanEmail() *core.Email {
	return &core.Email{
		ID:      "email-1",
		From:    "bob@sender.example",
		Subject: "question about the report",
		Body:    "could you send me the latest numbers?",
	}
}

func TestScoreGuardrailShortCircuits(t *testing.T) {
	primary := &stubClient{name: "local", responses: []*core.SemanticAnalysis{goodAnalysis("local")}}
	scorer := newTestScorer(primary, nil)

	result, err := scorer.Score(context.Background(), &core.Email{
		ID:      "email-1",
		Subject: "invoice",
		Body:    "card 4111 1111 1111 1111 attached",
	})
	require.NoError(t, err)

	assert.Equal(t, core.CategoryBlocked, result.Category)
	assert.InDelta(t, 0.98, result.Confidence, 1e-9)
	assert.Zero(t, result.Importance)
	assert.Equal(t, []string{"guardrail:blocked"}, result.Signals)
	assert.Zero(t, primary.calls, "blocked email must never reach a provider")
}

func TestScorePrimarySuccess(t *testing.T) {
	primary := &stubClient{name: "local", responses: []*core.SemanticAnalysis{goodAnalysis("local-model")}}
	secondary := &stubClient{name: "cloud", responses: []*core.SemanticAnalysis{goodAnalysis("cloud-model")}}
	scorer := newTestScorer(primary, secondary)

	result, err := scorer.Score(context.Background(), cleanEmail())
	require.NoError(t, err)

	assert.Equal(t, core.CategoryImportant, result.Category)
	assert.InDelta(t, 0.82, result.Confidence, 1e-9)
	assert.InDelta(t, 0.70, result.Importance, 1e-9)
	assert.Equal(t, "question", result.Intent)
	assert.True(t, result.ResponseRequired)
	assert.Equal(t, []string{"model:local-model"}, result.Signals)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)
}

func TestScoreFailsOverToSecondary(t *testing.T) {
	primary := &stubClient{name: "local", err: errors.New("connection refused")}
	secondary := &stubClient{name: "cloud", responses: []*core.SemanticAnalysis{goodAnalysis("cloud-model")}}
	scorer := newTestScorer(primary, secondary)

	result, err := scorer.Score(context.Background(), cleanEmail())
	require.NoError(t, err)

	assert.Equal(t, []string{"model:cloud-model"}, result.Signals)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestScoreBothProvidersFail(t *testing.T) {
	primary := &stubClient{name: "local", err: errors.New("connection refused")}
	secondary := &stubClient{name: "cloud", err: errors.New("quota exceeded")}
	scorer := newTestScorer(primary, secondary)

	_, err := scorer.Score(context.Background(), cleanEmail())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAllProvidersFailed)
	assert.Contains(t, err.Error(), "local")
	assert.Contains(t, err.Error(), "cloud")
}

func TestScoreNoSecondaryConfigured(t *testing.T) {
	primary := &stubClient{name: "local", err: errors.New("connection refused")}
	scorer := newTestScorer(primary, nil)

	_, err := scorer.Score(context.Background(), cleanEmail())
	assert.ErrorIs(t, err, core.ErrAllProvidersFailed)
}

func TestScoreRetriesInvalidOutputOnce(t *testing.T) {
	// First response violates the contract, the retry repairs it
	bad := goodAnalysis("local-model")
	bad.Category = "urgent"
	primary := &stubClient{name: "local", responses: []*core.SemanticAnalysis{bad, goodAnalysis("local-model")}}
	scorer := newTestScorer(primary, nil)

	result, err := scorer.Score(context.Background(), cleanEmail())
	require.NoError(t, err)
	assert.Equal(t, core.CategoryImportant, result.Category)
	assert.Equal(t, 2, primary.calls)
}

func TestScorePersistentlyInvalidOutputFailsOver(t *testing.T) {
	bad := goodAnalysis("local-model")
	bad.Confidence = 1.7
	primary := &stubClient{name: "local", responses: []*core.SemanticAnalysis{bad}}
	secondary := &stubClient{name: "cloud", responses: []*core.SemanticAnalysis{goodAnalysis("cloud-model")}}
	scorer := newTestScorer(primary, secondary)

	result, err := scorer.Score(context.Background(), cleanEmail())
	require.NoError(t, err)
	assert.Equal(t, []string{"model:cloud-model"}, result.Signals)
	assert.Equal(t, 2, primary.calls, "one retry against the same provider")
	assert.Equal(t, 1, secondary.calls)
}

func TestValidate(t *testing.T) {
	var validationErr *core.ValidationError

	err := validate(nil)
	assert.ErrorAs(t, err, &validationErr)

	empty := goodAnalysis("m")
	empty.Reasoning = "   "
	err = validate(empty)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "reasoning", validationErr.Field)

	assert.NoError(t, validate(goodAnalysis("m")))
}
