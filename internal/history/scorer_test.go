package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	sender    *core.SenderPreference
	domain    *core.DomainPreference
	senderErr error
	domainErr error
}

func (s *stubStore) GetSender(ctx context.Context, account, sender string) (*core.SenderPreference, error) {
	if s.senderErr != nil {
		return nil, s.senderErr
	}
	if s.sender == nil {
		return nil, core.ErrNotFound
	}
	return s.sender, nil
}

func (s *stubStore) PutSender(ctx context.Context, pref *core.SenderPreference) error { return nil }

func (s *stubStore) GetDomain(ctx context.Context, account, domain string) (*core.DomainPreference, error) {
	if s.domainErr != nil {
		return nil, s.domainErr
	}
	if s.domain == nil {
		return nil, core.ErrNotFound
	}
	return s.domain, nil
}

func (s *stubStore) PutDomain(ctx context.Context, pref *core.DomainPreference) error { return nil }
func (s *stubStore) Close() error                                                     { return nil }

func newScorerOver(store core.PreferenceStore) *Scorer {
	return NewScorer(store, DefaultConfig(), zap.NewNop())
}

func email() *core.Email {
	return &core.Email{
		ID:      "email-1",
		Account: "alice@example.com",
		From:    "bob@sender.example",
	}
}

func senderStats(seen int64, replyRate, archiveRate, deleteRate float64, latency time.Duration) *core.SenderPreference {
	return &core.SenderPreference{
		Account:         "alice@example.com",
		Sender:          "bob@sender.example",
		EmailsSeen:      seen,
		ReplyRate:       replyRate,
		ArchiveRate:     archiveRate,
		DeleteRate:      deleteRate,
		AvgImportance:   0.6,
		AvgReplyLatency: latency,
	}
}

func TestScoreFastRepliesMeanActionRequired(t *testing.T) {
	store := &stubStore{sender: senderStats(25, 0.90, 0.0, 0.0, time.Hour)}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)

	assert.Equal(t, core.CategoryActionRequired, result.Category)
	// 0.90 reply rate scaled by the deep-history multiplier
	assert.InDelta(t, 0.99, result.Confidence, 1e-9)
	assert.InDelta(t, 0.6, result.Importance, 1e-9)
}

func TestScoreSlowRepliesMeanImportant(t *testing.T) {
	store := &stubStore{sender: senderStats(10, 0.75, 0.0, 0.0, 6*time.Hour)}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)

	assert.Equal(t, core.CategoryImportant, result.Category)
	assert.InDelta(t, 0.75, result.Confidence, 1e-9)
}

func TestScoreMidReplyRateMeansInformational(t *testing.T) {
	store := &stubStore{sender: senderStats(10, 0.50, 0.0, 0.0, 0)}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)

	assert.Equal(t, core.CategoryInformational, result.Category)
	assert.InDelta(t, 0.60, result.Confidence, 1e-9)
}

func TestScoreHighArchiveRateMeansNewsletter(t *testing.T) {
	store := &stubStore{sender: senderStats(10, 0.05, 0.85, 0.0, 0)}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)

	assert.Equal(t, core.CategoryNewsletter, result.Category)
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
}

func TestScoreHighDeleteRateMeansSpam(t *testing.T) {
	store := &stubStore{sender: senderStats(10, 0.0, 0.0, 0.60, 0)}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)

	assert.Equal(t, core.CategorySpam, result.Category)
	assert.InDelta(t, 0.60, result.Confidence, 1e-9)
}

func TestScoreShallowHistoryDiscountsConfidence(t *testing.T) {
	store := &stubStore{sender: senderStats(5, 0.80, 0.0, 0.0, 0)}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)

	// 0.80 reply rate scaled by the shallow-history multiplier
	assert.InDelta(t, 0.64, result.Confidence, 1e-9)
}

func TestScoreConfidenceIsCapped(t *testing.T) {
	store := &stubStore{sender: senderStats(50, 0.95, 0.0, 0.0, time.Minute)}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}

func TestScoreFallsBackToDomain(t *testing.T) {
	store := &stubStore{
		sender: senderStats(2, 0.90, 0.0, 0.0, time.Hour),
		domain: &core.DomainPreference{
			Account:       "alice@example.com",
			Domain:        "sender.example",
			EmailsSeen:    15,
			ReplyRate:     0.40,
			AvgImportance: 0.5,
		},
	}
	result, err := newScorerOver(store).Score(context.Background(), email())
	require.NoError(t, err)

	assert.Equal(t, core.CategoryInformational, result.Category)
	assert.Contains(t, result.Reasoning, "domain sender.example")
}

func TestScoreAbstainsWithoutHistory(t *testing.T) {
	_, err := newScorerOver(&stubStore{}).Score(context.Background(), email())
	assert.ErrorIs(t, err, core.ErrAbstain)
}

func TestScoreAbstainsOnIndistinctStats(t *testing.T) {
	store := &stubStore{sender: senderStats(10, 0.10, 0.20, 0.10, 0)}
	_, err := newScorerOver(store).Score(context.Background(), email())
	assert.ErrorIs(t, err, core.ErrAbstain)
}

func TestScoreStoreErrorDegradesToAbstain(t *testing.T) {
	store := &stubStore{senderErr: errors.New("db down")}
	_, err := newScorerOver(store).Score(context.Background(), email())
	assert.ErrorIs(t, err, core.ErrAbstain)
}
