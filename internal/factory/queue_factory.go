package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/mail-triage/internal/adapters/queue"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// QueueFactory creates review queues based on configuration
type QueueFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewQueueFactory creates a new queue factory
func NewQueueFactory(cfg *config.Config, logger *zap.Logger) *QueueFactory {
	return &QueueFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReviewQueue creates a review queue based on the configuration
func (f *QueueFactory) CreateReviewQueue() (core.ReviewQueue, error) {
	queueCfg := f.cfg.GetQueue()

	switch queueCfg.Type {
	case "memory":
		return queue.NewMemoryQueue(f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(queueCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return queue.NewSQLiteQueue(queueCfg.SQLitePath, f.logger)
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", queueCfg.Type)
	}
}
