package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// MemoryQueue is an in-memory implementation of the ReviewQueue interface
type MemoryQueue struct {
	mu     sync.RWMutex
	items  map[string]*core.QueueItem
	logger *zap.Logger
}

// NewMemoryQueue creates a new in-memory review queue
func NewMemoryQueue(logger *zap.Logger) *MemoryQueue {
	return &MemoryQueue{
		items:  make(map[string]*core.QueueItem),
		logger: logger,
	}
}

// Enqueue adds a pending item
func (q *MemoryQueue) Enqueue(ctx context.Context, item *core.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	clone := *item
	q.items[item.ID] = &clone
	return nil
}

// Get retrieves an item by id
func (q *MemoryQueue) Get(ctx context.Context, id string) (*core.QueueItem, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	item, ok := q.items[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

// Pending lists unresolved items for an account, oldest first
func (q *MemoryQueue) Pending(ctx context.Context, account string) ([]*core.QueueItem, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var pending []*core.QueueItem
	for _, item := range q.items {
		if item.Account == account && item.Status == core.ReviewPending {
			clone := *item
			pending = append(pending, &clone)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].EnqueuedAt.Before(pending[j].EnqueuedAt)
	})
	return pending, nil
}

// Resolve marks an item approved, rejected or modified. Approved and
// rejected items are terminal.
func (q *MemoryQueue) Resolve(ctx context.Context, id string, status core.ReviewStatus, corrected *core.Category) (*core.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if item.Status == core.ReviewApproved || item.Status == core.ReviewRejected {
		return nil, core.ErrItemResolved
	}

	now := time.Now()
	item.Status = status
	item.CorrectedCategory = corrected
	item.ResolvedAt = &now

	clone := *item
	return &clone, nil
}
