package factory

import (
	"github.com/mikey/mail-triage/internal/adapters/eventlog"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// EventLogFactory creates classification event sinks
type EventLogFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewEventLogFactory creates a new event log factory
func NewEventLogFactory(cfg *config.Config, logger *zap.Logger) *EventLogFactory {
	return &EventLogFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEventLog creates the configured event sink
func (f *EventLogFactory) CreateEventLog() (core.EventLog, error) {
	eventCfg := f.cfg.GetEventLog()
	if !eventCfg.Enabled {
		return eventlog.NewNopSink(), nil
	}
	return eventlog.NewFileSink(eventCfg.Path, f.logger)
}
