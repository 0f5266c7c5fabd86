// Package di wires the application graph for the daemon and the CLI.
package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/factory"
	"github.com/mikey/mail-triage/internal/guardrail"
	"github.com/mikey/mail-triage/internal/history"
	"github.com/mikey/mail-triage/internal/logging"
	"github.com/mikey/mail-triage/internal/ports"
	"github.com/mikey/mail-triage/internal/rules"
	"github.com/mikey/mail-triage/internal/semantic"
	"github.com/mikey/mail-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewQueueFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewEventLogFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewIngestFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register storage adapters
	if err := container.Provide(func(f *factory.StoreFactory) (core.PreferenceStore, error) {
		return f.CreatePreferenceStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.QueueFactory) (core.ReviewQueue, error) {
		return f.CreateReviewQueue()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.EventLogFactory) (core.EventLog, error) {
		return f.CreateEventLog()
	}); err != nil {
		return nil, err
	}

	// Register scorers and the combiner graph
	if err := registerEngine(container); err != nil {
		return nil, err
	}

	// Register email ingest
	if err := container.Provide(func(f *factory.IngestFactory) (ports.EmailIngest, error) {
		return f.CreateEmailIngest()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// registerEngine provides the three scorers, the combiner, the router, the
// learner and the triage service. Shared between the daemon and CLI graphs.
func registerEngine(container *dig.Container) error {
	if err := container.Provide(guardrail.NewFilter); err != nil {
		return err
	}
	if err := container.Provide(rules.NewScorer); err != nil {
		return err
	}
	if err := container.Provide(func(store core.PreferenceStore, cfg *config.Config, logger *zap.Logger) *history.Scorer {
		scoring := cfg.GetScoring()
		return history.NewScorer(store, history.Config{
			MinSenderObservations: scoring.MinSenderObservations,
			MinDomainObservations: scoring.MinDomainObservations,
		}, logger)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		guard *guardrail.Filter,
		f *factory.LLMFactory,
		cfg *config.Config,
		logger *zap.Logger,
	) (*semantic.Scorer, error) {
		ctx := context.Background()
		primary, err := f.CreatePrimary(ctx)
		if err != nil {
			return nil, err
		}
		secondary, err := f.CreateSecondary(ctx)
		if err != nil {
			logger.Warn("Secondary provider unavailable, running without failover", zap.Error(err))
			secondary = nil
		}
		return semantic.NewScorer(guard, primary, secondary, cfg.GetLLM().Timeout, logger), nil
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		rule *rules.Scorer,
		hist *history.Scorer,
		sem *semantic.Scorer,
		store core.PreferenceStore,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.WeightCombiner, error) {
		return core.NewWeightCombiner(rule, hist, sem, store, cfg.GetScoring(), logger)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config) *core.ReviewRouter {
		return core.NewReviewRouter(cfg.GetRouter())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(store core.PreferenceStore, cfg *config.Config, logger *zap.Logger) *core.PreferenceLearner {
		return core.NewPreferenceLearner(store, cfg.GetLearner(), logger)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		combiner *core.WeightCombiner,
		router *core.ReviewRouter,
		learner *core.PreferenceLearner,
		queue core.ReviewQueue,
		events core.EventLog,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.TriageService {
		return core.NewTriageService(combiner, router, learner, queue, events, cfg.GetBatch(), logger)
	}); err != nil {
		return err
	}
	return nil
}
