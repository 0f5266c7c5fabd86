package core

import (
	"time"

	"github.com/google/uuid"
)

// RouterConfig holds the confidence thresholds for disposition routing
type RouterConfig struct {
	// AutoActThreshold is the minimum confidence for acting without review
	AutoActThreshold float64

	// ReviewThreshold is the minimum confidence for a normal review item;
	// below it the item is flagged low-confidence and marked urgent
	ReviewThreshold float64
}

// DefaultRouterConfig returns the default routing thresholds
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AutoActThreshold: 0.90,
		ReviewThreshold:  0.65,
	}
}

// ReviewRouter maps a final confidence to a disposition. It is a pure
// function of the result and the thresholds and holds no state.
type ReviewRouter struct {
	cfg RouterConfig
}

// NewReviewRouter creates a router with the given thresholds
func NewReviewRouter(cfg RouterConfig) *ReviewRouter {
	return &ReviewRouter{cfg: cfg}
}

// Route assigns a disposition and, for the review and low-confidence paths,
// builds the QueueItem to enqueue. The auto-act path returns a nil item.
func (r *ReviewRouter) Route(email *Email, result *EnsembleResult) (Disposition, *QueueItem) {
	disposition := DispositionAutoAct
	switch {
	case result.Unclassified:
		disposition = DispositionLowConfidence
	case result.Confidence >= r.cfg.AutoActThreshold:
		disposition = DispositionAutoAct
	case result.Confidence >= r.cfg.ReviewThreshold:
		disposition = DispositionReview
	default:
		disposition = DispositionLowConfidence
	}

	if disposition == DispositionAutoAct {
		return disposition, nil
	}

	return disposition, &QueueItem{
		ID:          uuid.NewString(),
		EmailID:     email.ID,
		Account:     email.Account,
		Sender:      email.From,
		Suggested:   result,
		Disposition: disposition,
		Status:      ReviewPending,
		Urgent:      disposition == DispositionLowConfidence,
		EnqueuedAt:  time.Now(),
	}
}
