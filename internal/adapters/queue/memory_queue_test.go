package queue

import (
	"context"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newItem(id, account string, enqueuedAt time.Time) *core.QueueItem {
	return &core.QueueItem{
		ID:         id,
		EmailID:    "email-" + id,
		Account:    account,
		Sender:     "bob@sender.example",
		Status:     core.ReviewPending,
		EnqueuedAt: enqueuedAt,
	}
}

func TestMemoryQueueEnqueueAndGet(t *testing.T) {
	q := NewMemoryQueue(zap.NewNop())
	ctx := context.Background()

	item := newItem("a", "alice@example.com", time.Now())
	require.NoError(t, q.Enqueue(ctx, item))

	got, err := q.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, item.EmailID, got.EmailID)

	_, err = q.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryQueuePendingSortsOldestFirst(t *testing.T) {
	q := NewMemoryQueue(zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, q.Enqueue(ctx, newItem("newer", "alice@example.com", now)))
	require.NoError(t, q.Enqueue(ctx, newItem("older", "alice@example.com", now.Add(-time.Hour))))
	require.NoError(t, q.Enqueue(ctx, newItem("other", "carol@example.com", now.Add(-2*time.Hour))))

	pending, err := q.Pending(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "older", pending[0].ID)
	assert.Equal(t, "newer", pending[1].ID)
}

func TestMemoryQueuePendingExcludesResolved(t *testing.T) {
	q := NewMemoryQueue(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newItem("a", "alice@example.com", time.Now())))
	_, err := q.Resolve(ctx, "a", core.ReviewApproved, nil)
	require.NoError(t, err)

	pending, err := q.Pending(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryQueueResolve(t *testing.T) {
	q := NewMemoryQueue(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newItem("a", "alice@example.com", time.Now())))

	corrected := core.CategoryImportant
	resolved, err := q.Resolve(ctx, "a", core.ReviewModified, &corrected)
	require.NoError(t, err)
	assert.Equal(t, core.ReviewModified, resolved.Status)
	require.NotNil(t, resolved.CorrectedCategory)
	assert.Equal(t, core.CategoryImportant, *resolved.CorrectedCategory)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestMemoryQueueResolveTerminalStates(t *testing.T) {
	q := NewMemoryQueue(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newItem("a", "alice@example.com", time.Now())))
	_, err := q.Resolve(ctx, "a", core.ReviewRejected, nil)
	require.NoError(t, err)

	_, err = q.Resolve(ctx, "a", core.ReviewApproved, nil)
	assert.ErrorIs(t, err, core.ErrItemResolved)

	_, err = q.Resolve(ctx, "missing", core.ReviewApproved, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
