package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// stubScorer returns a fixed score or error and counts invocations
type stubScorer struct {
	source ScoreSource
	score  *LayerScore
	err    error
	calls  int32
}

func (s *stubScorer) Source() ScoreSource {
	return s.source
}

func (s *stubScorer) Score(ctx context.Context, email *Email) (*LayerScore, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.score, nil
}

func (s *stubScorer) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func abstainScorer(source ScoreSource) *stubScorer {
	return &stubScorer{source: source, err: ErrAbstain}
}

func fixedScorer(source ScoreSource, category Category, confidence, importance float64) *stubScorer {
	return &stubScorer{source: source, score: &LayerScore{
		Source:     source,
		Category:   category,
		Confidence: confidence,
		Importance: importance,
		Reasoning:  "stub",
	}}
}

// testStore is an in-memory PreferenceStore with injectable failures
type testStore struct {
	mu        sync.Mutex
	senders   map[string]*SenderPreference
	domains   map[string]*DomainPreference
	senderErr error
	domainErr error
	putErr    error
}

func newTestStore() *testStore {
	return &testStore{
		senders: make(map[string]*SenderPreference),
		domains: make(map[string]*DomainPreference),
	}
}

func (s *testStore) GetSender(ctx context.Context, account, sender string) (*SenderPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.senderErr != nil {
		return nil, s.senderErr
	}
	pref, ok := s.senders[account+"/"+sender]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *pref
	return &clone, nil
}

func (s *testStore) PutSender(ctx context.Context, pref *SenderPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	clone := *pref
	s.senders[pref.Account+"/"+pref.Sender] = &clone
	return nil
}

func (s *testStore) GetDomain(ctx context.Context, account, domain string) (*DomainPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.domainErr != nil {
		return nil, s.domainErr
	}
	pref, ok := s.domains[account+"/"+domain]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *pref
	return &clone, nil
}

func (s *testStore) PutDomain(ctx context.Context, pref *DomainPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	clone := *pref
	s.domains[pref.Account+"/"+pref.Domain] = &clone
	return nil
}

func (s *testStore) Close() error {
	return nil
}

func (s *testStore) sender(account, sender string) *SenderPreference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.senders[account+"/"+sender]
}

func (s *testStore) domain(account, domain string) *DomainPreference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domains[account+"/"+domain]
}

// testQueue is an in-memory ReviewQueue
type testQueue struct {
	mu    sync.Mutex
	items map[string]*QueueItem
}

func newTestQueue() *testQueue {
	return &testQueue{items: make(map[string]*QueueItem)}
}

func (q *testQueue) Enqueue(ctx context.Context, item *QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	clone := *item
	q.items[item.ID] = &clone
	return nil
}

func (q *testQueue) Get(ctx context.Context, id string) (*QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (q *testQueue) Pending(ctx context.Context, account string) ([]*QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var pending []*QueueItem
	for _, item := range q.items {
		if item.Account == account && item.Status == ReviewPending {
			clone := *item
			pending = append(pending, &clone)
		}
	}
	return pending, nil
}

func (q *testQueue) Resolve(ctx context.Context, id string, status ReviewStatus, corrected *Category) (*QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if item.Status == ReviewApproved || item.Status == ReviewRejected {
		return nil, ErrItemResolved
	}
	now := time.Now()
	item.Status = status
	item.CorrectedCategory = corrected
	item.ResolvedAt = &now
	clone := *item
	return &clone, nil
}

func (q *testQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *testQueue) only() *QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		return item
	}
	return nil
}

// testEvents counts emitted events
type testEvents struct {
	mu            sync.Mutex
	results       []*EnsembleResult
	disagreements []*Disagreement
}

func newTestEvents() *testEvents {
	return &testEvents{}
}

func (e *testEvents) LogClassification(email *Email, result *EnsembleResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, result)
}

func (e *testEvents) LogDisagreement(d *Disagreement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disagreements = append(e.disagreements, d)
}

func testEmail() *Email {
	return &Email{
		ID:         "email-1",
		Account:    "alice@example.com",
		From:       "bob@sender.example",
		To:         []string{"alice@example.com"},
		Subject:    "Quarterly report",
		Body:       "Please find the report attached.",
		Headers:    map[string][]string{},
		ReceivedAt: time.Now(),
	}
}
