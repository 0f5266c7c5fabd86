package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchConfig bounds batch classification fan-out
type BatchConfig struct {
	// MaxConcurrency is the worker limit within one batch
	MaxConcurrency int

	// BatchSize is the number of emails processed before pacing
	BatchSize int

	// PaceDelay is the delay inserted between successive batches to
	// respect provider rate limits
	PaceDelay time.Duration
}

// DefaultBatchConfig returns the default batch limits
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		BatchSize:      10,
		PaceDelay:      500 * time.Millisecond,
	}
}

// TriageService runs the full per-email pipeline: ensemble classification,
// disposition routing, queueing, event logging and preference learning.
type TriageService struct {
	combiner *WeightCombiner
	router   *ReviewRouter
	learner  *PreferenceLearner
	queue    ReviewQueue
	events   EventLog
	logger   *zap.Logger
	batch    BatchConfig
}

// NewTriageService creates the triage service
func NewTriageService(
	combiner *WeightCombiner,
	router *ReviewRouter,
	learner *PreferenceLearner,
	queue ReviewQueue,
	events EventLog,
	batch BatchConfig,
	logger *zap.Logger,
) *TriageService {
	if batch.MaxConcurrency <= 0 {
		batch.MaxConcurrency = DefaultBatchConfig().MaxConcurrency
	}
	if batch.BatchSize <= 0 {
		batch.BatchSize = DefaultBatchConfig().BatchSize
	}
	return &TriageService{
		combiner: combiner,
		router:   router,
		learner:  learner,
		queue:    queue,
		events:   events,
		logger:   logger,
		batch:    batch,
	}
}

// ClassifyEmail classifies one email and applies the full outcome path.
// Queue, event-log and learner failures are logged but never abort the
// classification.
func (s *TriageService) ClassifyEmail(ctx context.Context, email *Email) (*EnsembleResult, error) {
	result, err := s.combiner.Combine(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to classify email %s: %w", email.ID, err)
	}

	disposition, item := s.router.Route(email, result)
	result.Disposition = disposition

	s.events.LogClassification(email, result)
	if result.Disagreement != nil {
		s.events.LogDisagreement(result.Disagreement)
	}

	if item != nil {
		if err := s.queue.Enqueue(ctx, item); err != nil {
			s.logger.Error("Failed to enqueue review item",
				zap.String("email_id", email.ID),
				zap.Error(err))
		}
	}

	if err := s.learner.LearnFromResult(ctx, email, result); err != nil {
		s.logger.Warn("Preference update dropped",
			zap.String("email_id", email.ID),
			zap.Error(err))
	}

	s.logger.Info("Email classified",
		zap.String("email_id", email.ID),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("importance", result.Importance),
		zap.String("disposition", string(disposition)),
		zap.Bool("semantic_skipped", result.SemanticSkipped),
		zap.Duration("processing_time", result.ProcessingTime))
	return result, nil
}

// ClassifyBatch classifies a set of emails with bounded concurrency and a
// pacing delay between successive batches. Results are returned in input
// order; callers correlate by EmailID. Cancelling the context stops new
// work from being issued while in-flight provider calls run to completion
// under their own timeout.
func (s *TriageService) ClassifyBatch(ctx context.Context, emails []*Email) ([]*EnsembleResult, error) {
	results := make([]*EnsembleResult, len(emails))

	for start := 0; start < len(emails); start += s.batch.BatchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		end := start + s.batch.BatchSize
		if end > len(emails) {
			end = len(emails)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.batch.MaxConcurrency)
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				break
			}
			idx, email := i, emails[i]
			g.Go(func() error {
				result, err := s.ClassifyEmail(gctx, email)
				if err != nil {
					s.logger.Error("Batch classification failed for email",
						zap.String("email_id", email.ID),
						zap.Error(err))
					return nil
				}
				results[idx] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}

		if end < len(emails) && s.batch.PaceDelay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(s.batch.PaceDelay):
			}
		}
	}
	return results, nil
}

// SubmitFeedback applies one observed user action to the preference store
func (s *TriageService) SubmitFeedback(ctx context.Context, fb *FeedbackRecord) error {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}
	return s.learner.LearnFromFeedback(ctx, fb)
}

// ApplyReviewOutcome resolves a queue item and translates the human
// decision into a feedback record
func (s *TriageService) ApplyReviewOutcome(ctx context.Context, itemID string, status ReviewStatus, corrected *Category) error {
	item, err := s.queue.Resolve(ctx, itemID, status, corrected)
	if err != nil {
		return fmt.Errorf("failed to resolve review item %s: %w", itemID, err)
	}

	fb := &FeedbackRecord{
		EmailID:   item.EmailID,
		Account:   item.Account,
		Sender:    item.Sender,
		Action:    ActionCorrection,
		Timestamp: time.Now(),
	}
	switch status {
	case ReviewApproved:
		if item.Suggested != nil {
			category := item.Suggested.Category
			importance := item.Suggested.Importance
			fb.Category = &category
			fb.Importance = &importance
		}
	case ReviewModified:
		fb.Category = corrected
	case ReviewRejected:
		rejected := 0.2
		fb.Importance = &rejected
	}

	if err := s.learner.LearnFromFeedback(ctx, fb); err != nil {
		s.logger.Warn("Feedback update dropped",
			zap.String("item_id", itemID),
			zap.Error(err))
	}
	return nil
}
