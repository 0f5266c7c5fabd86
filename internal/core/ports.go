package core

import (
	"context"
)

// Scorer is the capability interface shared by the rule, history and
// semantic scoring layers. A scorer returns ErrAbstain when it has nothing
// to say about an email.
type Scorer interface {
	// Source identifies the scoring layer
	Source() ScoreSource

	// Score produces this layer's opinion about an email
	Score(ctx context.Context, email *Email) (*LayerScore, error)
}

// PreferenceStore persists learned sender and domain statistics. It is the
// only mutable shared state in the engine.
type PreferenceStore interface {
	// GetSender retrieves the preference record for a sender, or ErrNotFound
	GetSender(ctx context.Context, account, sender string) (*SenderPreference, error)

	// PutSender stores a sender preference record
	PutSender(ctx context.Context, pref *SenderPreference) error

	// GetDomain retrieves the preference record for a domain, or ErrNotFound
	GetDomain(ctx context.Context, account, domain string) (*DomainPreference, error)

	// PutDomain stores a domain preference record
	PutDomain(ctx context.Context, pref *DomainPreference) error

	// Close releases the store's resources
	Close() error
}

// LLMClient defines the interface for a generative model provider
type LLMClient interface {
	// AnalyzeEmail asks the model for a structured triage analysis
	AnalyzeEmail(ctx context.Context, email *Email) (*SemanticAnalysis, error)

	// Name identifies the provider for logs and failover decisions
	Name() string
}

// ReviewQueue receives emails whose classification needs a human decision
type ReviewQueue interface {
	// Enqueue adds a pending item to the queue
	Enqueue(ctx context.Context, item *QueueItem) error

	// Get retrieves an item by id, or ErrNotFound
	Get(ctx context.Context, id string) (*QueueItem, error)

	// Pending lists unresolved items for an account
	Pending(ctx context.Context, account string) ([]*QueueItem, error)

	// Resolve marks an item approved, rejected or modified. Returns
	// ErrItemResolved when the item is already terminal.
	Resolve(ctx context.Context, id string, status ReviewStatus, corrected *Category) (*QueueItem, error)
}

// EventLog is the fire-and-forget sink for classification records. Engine
// correctness does not depend on these writes succeeding.
type EventLog interface {
	// LogClassification records one completed classification
	LogClassification(email *Email, result *EnsembleResult)

	// LogDisagreement records a scorer disagreement
	LogDisagreement(d *Disagreement)
}
