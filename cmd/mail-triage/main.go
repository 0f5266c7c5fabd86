package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/di"
	"github.com/mikey/mail-triage/internal/ports"
	"github.com/mikey/mail-triage/internal/trust"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	emailIngest ports.EmailIngest,
	combiner *core.WeightCombiner,
	learner *core.PreferenceLearner,
	store core.PreferenceStore,
	queue core.ReviewQueue,
	events core.EventLog,
) error {
	defer logger.Sync()

	// Pick up tunable changes (weights, thresholds, learning rate)
	// without a restart
	cfg.Watch(func(c *config.Config) {
		if err := combiner.UpdateConfig(c.GetScoring()); err != nil {
			logger.Error("Rejected scoring config reload", zap.Error(err))
		} else {
			logger.Info("Scoring configuration reloaded")
		}
		learner.SetAlpha(c.GetLearner().Alpha)
	})

	// Apply operator-declared trust lists before accepting mail
	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	seeder := trust.NewSeeder(store, logger)
	if err := seeder.Seed(seedCtx,
		cfg.GetIngest().DefaultAccount,
		cfg.GetStringSlice("trust.trusted_senders"),
		cfg.GetStringSlice("trust.suspicious_senders"),
		cfg.GetStringSlice("trust.blocked_senders"),
	); err != nil {
		cancel()
		logger.Fatal("Failed to seed trust lists", zap.Error(err))
	}
	cancel()

	// Start the ingest frontend
	if err := emailIngest.Start(); err != nil {
		logger.Fatal("Failed to start email ingest", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := emailIngest.Stop(); err != nil {
		logger.Error("Failed to stop email ingest", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		logger.Error("Failed to close preference store", zap.Error(err))
	}
	if closer, ok := queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close review queue", zap.Error(err))
		}
	}
	if closer, ok := events.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close event log", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
