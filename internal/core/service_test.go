package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, rule, history, semantic Scorer, store PreferenceStore, queue ReviewQueue, events EventLog) *TriageService {
	t.Helper()
	combiner, err := NewWeightCombiner(rule, history, semantic, store, DefaultScoringConfig(), zap.NewNop())
	require.NoError(t, err)
	return NewTriageService(
		combiner,
		NewReviewRouter(DefaultRouterConfig()),
		NewPreferenceLearner(store, DefaultLearnerConfig(), zap.NewNop()),
		queue,
		events,
		DefaultBatchConfig(),
		zap.NewNop(),
	)
}

func TestClassifyEmailFullPath(t *testing.T) {
	store := newTestStore()
	queue := newTestQueue()
	events := newTestEvents()

	// Agreeing cheap layers skip semantic; boosted confidence auto-acts
	service := newTestService(t,
		fixedScorer(SourceRule, CategoryNewsletter, 0.90, 0.20),
		fixedScorer(SourceHistory, CategoryNewsletter, 0.90, 0.20),
		fixedScorer(SourceSemantic, CategoryNormal, 0.50, 0.50),
		store, queue, events)

	email := testEmail()
	result, err := service.ClassifyEmail(context.Background(), email)
	require.NoError(t, err)

	assert.Equal(t, CategoryNewsletter, result.Category)
	assert.Equal(t, DispositionAutoAct, result.Disposition)
	assert.Equal(t, 0, queue.size())
	require.Len(t, events.results, 1)
	assert.Empty(t, events.disagreements)

	// Learning happened
	sender := store.sender(email.Account, email.From)
	require.NotNil(t, sender)
	assert.EqualValues(t, 1, sender.EmailsSeen)
}

func TestClassifyEmailEnqueuesReviewItem(t *testing.T) {
	store := newTestStore()
	queue := newTestQueue()
	events := newTestEvents()

	// Lone semantic opinion lands in the review band
	service := newTestService(t,
		abstainScorer(SourceRule),
		abstainScorer(SourceHistory),
		fixedScorer(SourceSemantic, CategoryImportant, 0.75, 0.60),
		store, queue, events)

	result, err := service.ClassifyEmail(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, DispositionReview, result.Disposition)
	require.Equal(t, 1, queue.size())
	item := queue.only()
	assert.Equal(t, ReviewPending, item.Status)
	assert.False(t, item.Urgent)
}

func TestClassifyEmailLogsDisagreement(t *testing.T) {
	store := newTestStore()
	queue := newTestQueue()
	events := newTestEvents()

	service := newTestService(t,
		fixedScorer(SourceRule, CategorySpam, 0.90, 0.02),
		fixedScorer(SourceHistory, CategoryImportant, 0.80, 0.70),
		fixedScorer(SourceSemantic, CategoryNormal, 0.70, 0.50),
		store, queue, events)

	_, err := service.ClassifyEmail(context.Background(), testEmail())
	require.NoError(t, err)
	assert.Len(t, events.disagreements, 1)
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	store := newTestStore()
	service := newTestService(t,
		fixedScorer(SourceRule, CategoryNewsletter, 0.90, 0.20),
		fixedScorer(SourceHistory, CategoryNewsletter, 0.90, 0.20),
		fixedScorer(SourceSemantic, CategoryNormal, 0.50, 0.50),
		store, newTestQueue(), newTestEvents())

	emails := make([]*Email, 25)
	for i := range emails {
		email := testEmail()
		email.ID = email.ID + "-" + string(rune('a'+i))
		emails[i] = email
	}

	results, err := service.ClassifyBatch(context.Background(), emails)
	require.NoError(t, err)
	require.Len(t, results, len(emails))
	for i, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, emails[i].ID, result.EmailID)
	}
}

func TestClassifyBatchStopsOnCancel(t *testing.T) {
	service := newTestService(t,
		fixedScorer(SourceRule, CategoryNewsletter, 0.90, 0.20),
		fixedScorer(SourceHistory, CategoryNewsletter, 0.90, 0.20),
		fixedScorer(SourceSemantic, CategoryNormal, 0.50, 0.50),
		newTestStore(), newTestQueue(), newTestEvents())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.ClassifyBatch(ctx, []*Email{testEmail(), testEmail()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyReviewOutcomeApproved(t *testing.T) {
	store := newTestStore()
	queue := newTestQueue()

	service := newTestService(t,
		abstainScorer(SourceRule),
		abstainScorer(SourceHistory),
		fixedScorer(SourceSemantic, CategoryImportant, 0.75, 0.60),
		store, queue, newTestEvents())

	email := testEmail()
	ctx := context.Background()
	_, err := service.ClassifyEmail(ctx, email)
	require.NoError(t, err)
	item := queue.only()
	require.NotNil(t, item)

	require.NoError(t, service.ApplyReviewOutcome(ctx, item.ID, ReviewApproved, nil))

	resolved, err := queue.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, ReviewApproved, resolved.Status)

	// Approval confirms the suggested category as the sender preference
	sender := store.sender(email.Account, email.From)
	require.NotNil(t, sender)
	require.NotNil(t, sender.PreferredCategory)
	assert.Equal(t, CategoryImportant, *sender.PreferredCategory)
}

func TestApplyReviewOutcomeModified(t *testing.T) {
	store := newTestStore()
	queue := newTestQueue()

	service := newTestService(t,
		abstainScorer(SourceRule),
		abstainScorer(SourceHistory),
		fixedScorer(SourceSemantic, CategoryImportant, 0.75, 0.60),
		store, queue, newTestEvents())

	email := testEmail()
	ctx := context.Background()
	_, err := service.ClassifyEmail(ctx, email)
	require.NoError(t, err)
	item := queue.only()
	require.NotNil(t, item)

	corrected := CategoryActionRequired
	require.NoError(t, service.ApplyReviewOutcome(ctx, item.ID, ReviewModified, &corrected))

	sender := store.sender(email.Account, email.From)
	require.NotNil(t, sender.PreferredCategory)
	assert.Equal(t, CategoryActionRequired, *sender.PreferredCategory)
}

func TestReviewCorrectionChangesNextClassification(t *testing.T) {
	store := newTestStore()
	queue := newTestQueue()

	service := newTestService(t,
		abstainScorer(SourceRule),
		abstainScorer(SourceHistory),
		fixedScorer(SourceSemantic, CategoryNewsletter, 0.75, 0.30),
		store, queue, newTestEvents())

	email := testEmail()
	ctx := context.Background()
	first, err := service.ClassifyEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, CategoryNewsletter, first.Category)

	item := queue.only()
	require.NotNil(t, item)
	corrected := CategoryImportant
	require.NoError(t, service.ApplyReviewOutcome(ctx, item.ID, ReviewModified, &corrected))

	// The correction must carry through to the next email from this sender
	second, err := service.ClassifyEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, CategoryImportant, second.Category)
}

func TestApplyReviewOutcomeTerminalItem(t *testing.T) {
	queue := newTestQueue()
	service := newTestService(t,
		abstainScorer(SourceRule),
		abstainScorer(SourceHistory),
		fixedScorer(SourceSemantic, CategoryImportant, 0.75, 0.60),
		newTestStore(), queue, newTestEvents())

	ctx := context.Background()
	_, err := service.ClassifyEmail(ctx, testEmail())
	require.NoError(t, err)
	item := queue.only()

	require.NoError(t, service.ApplyReviewOutcome(ctx, item.ID, ReviewRejected, nil))
	err = service.ApplyReviewOutcome(ctx, item.ID, ReviewApproved, nil)
	assert.ErrorIs(t, err, ErrItemResolved)
}

func TestApplyReviewOutcomeUnknownItem(t *testing.T) {
	service := newTestService(t,
		abstainScorer(SourceRule),
		abstainScorer(SourceHistory),
		abstainScorer(SourceSemantic),
		newTestStore(), newTestQueue(), newTestEvents())

	err := service.ApplyReviewOutcome(context.Background(), "missing", ReviewApproved, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
