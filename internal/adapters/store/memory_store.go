package store

import (
	"context"
	"sync"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the PreferenceStore
// interface, used for tests and single-process deployments
type MemoryStore struct {
	mu      sync.RWMutex
	senders map[string]*core.SenderPreference
	domains map[string]*core.DomainPreference
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory preference store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		senders: make(map[string]*core.SenderPreference),
		domains: make(map[string]*core.DomainPreference),
		logger:  logger,
	}
}

func senderKey(account, sender string) string {
	return account + "\x00" + sender
}

func domainKey(account, domain string) string {
	return account + "\x00" + domain
}

// GetSender retrieves a sender preference record
func (s *MemoryStore) GetSender(ctx context.Context, account, sender string) (*core.SenderPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.senders[senderKey(account, sender)]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *pref
	return &clone, nil
}

// PutSender stores a sender preference record
func (s *MemoryStore) PutSender(ctx context.Context, pref *core.SenderPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *pref
	s.senders[senderKey(pref.Account, pref.Sender)] = &clone
	return nil
}

// GetDomain retrieves a domain preference record
func (s *MemoryStore) GetDomain(ctx context.Context, account, domain string) (*core.DomainPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.domains[domainKey(account, domain)]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *pref
	return &clone, nil
}

// PutDomain stores a domain preference record
func (s *MemoryStore) PutDomain(ctx context.Context, pref *core.DomainPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *pref
	s.domains[domainKey(pref.Account, pref.Domain)] = &clone
	return nil
}

// Close releases nothing for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
