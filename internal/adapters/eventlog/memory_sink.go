package eventlog

import (
	"sync"

	"github.com/mikey/mail-triage/internal/core"
)

// MemorySink collects events in memory, used by tests
type MemorySink struct {
	mu            sync.Mutex
	Results       []*core.EnsembleResult
	Disagreements []*core.Disagreement
}

// NewMemorySink creates an empty sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// LogClassification records one completed classification
func (s *MemorySink) LogClassification(email *core.Email, result *core.EnsembleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results = append(s.Results, result)
}

// LogDisagreement records a scorer disagreement
func (s *MemorySink) LogDisagreement(d *core.Disagreement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Disagreements = append(s.Disagreements, d)
}

// NopSink discards all events, used when the event log is disabled
type NopSink struct{}

// NewNopSink creates a sink that drops everything
func NewNopSink() *NopSink {
	return &NopSink{}
}

// LogClassification discards the event
func (NopSink) LogClassification(*core.Email, *core.EnsembleResult) {}

// LogDisagreement discards the event
func (NopSink) LogDisagreement(*core.Disagreement) {}
