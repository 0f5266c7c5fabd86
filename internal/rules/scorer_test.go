package rules

import (
	"context"
	"testing"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func score(t *testing.T, email *core.Email) (*core.LayerScore, error) {
	t.Helper()
	return NewScorer(zap.NewNop()).Score(context.Background(), email)
}

func TestScoreSpamNeedsTwoSignals(t *testing.T) {
	// Keyword, shouting, punctuation, sender prefix and domain pattern
	// all fire at once
	result, err := score(t, &core.Email{
		From:    "promo@deals.example",
		Subject: "GEWINNSPIEL!!! GRATIS!!!",
		Body:    "Sie haben gewonnen. Click here now.",
	})
	require.NoError(t, err)
	assert.Equal(t, core.CategorySpam, result.Category)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.GreaterOrEqual(t, len(result.Signals), 2)
}

func TestScoreSingleSpamSignalAbstains(t *testing.T) {
	_, err := score(t, &core.Email{
		From:    "friend@mail.example",
		Subject: "dinner plans",
		Body:    "my cousin won the lottery, crazy right?",
	})
	assert.ErrorIs(t, err, core.ErrAbstain)
}

func TestScoreAutoSubmittedHeaderIsDecisive(t *testing.T) {
	result, err := score(t, &core.Email{
		From:    "bob@sender.example",
		Subject: "Re: your message",
		Body:    "I am currently out of the office.",
		Headers: map[string][]string{"Auto-Submitted": {"auto-replied"}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryAutoReply, result.Category)
	assert.InDelta(t, 0.90, result.Confidence, 1e-9)
	assert.Equal(t, []string{"header:auto-submitted"}, result.Signals)
}

func TestScoreAutoSubmittedNoIsIgnored(t *testing.T) {
	_, err := score(t, &core.Email{
		From:    "bob@sender.example",
		Subject: "hello",
		Body:    "just checking in",
		Headers: map[string][]string{"Auto-Submitted": {"no"}},
	})
	assert.ErrorIs(t, err, core.ErrAbstain)
}

func TestScoreAutoReplySubject(t *testing.T) {
	result, err := score(t, &core.Email{
		From:    "bob@sender.example",
		Subject: "Automatic reply: quarterly report",
		Body:    "I will respond when I return.",
	})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryAutoReply, result.Category)
}

func TestScoreNewsletter(t *testing.T) {
	result, err := score(t, &core.Email{
		From:    "digest@news.example",
		Subject: "Your weekly digest",
		Body:    "Read on. Unsubscribe at any time.",
		Headers: map[string][]string{"List-Unsubscribe": {"<mailto:leave@news.example>"}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryNewsletter, result.Category)
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
}

func TestScoreTransactional(t *testing.T) {
	result, err := score(t, &core.Email{
		From:    "noreply@shop.example",
		Subject: "Order confirmation #8812",
		Body:    "Thanks for your purchase.",
	})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTransactional, result.Category)
	assert.InDelta(t, 0.80, result.Confidence, 1e-9)
}

func TestScoreAutoReplyWinsOverSpamSignals(t *testing.T) {
	// Header check runs before the spam signal count
	result, err := score(t, &core.Email{
		From:    "promo@deals.example",
		Subject: "GRATIS GEWINNSPIEL!!!",
		Body:    "free money",
		Headers: map[string][]string{"Auto-Submitted": {"auto-generated"}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryAutoReply, result.Category)
}

func TestScorePlainEmailAbstains(t *testing.T) {
	_, err := score(t, &core.Email{
		From:    "colleague@work.example",
		Subject: "Meeting notes",
		Body:    "Here are the notes from today.",
	})
	assert.ErrorIs(t, err, core.ErrAbstain)
}

func TestIsShouting(t *testing.T) {
	assert.True(t, isShouting("FINAL NOTICE ACT NOW"))
	assert.False(t, isShouting("OK"))
	assert.False(t, isShouting("Quarterly report for Q3"))
}
