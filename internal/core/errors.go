package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAbstain signals that a scoring layer found nothing to say about an
	// email. It is treated as absence, not as a failure.
	ErrAbstain = errors.New("scorer abstained")

	// ErrProviderUnavailable signals that a single semantic provider failed
	// and failover should be attempted
	ErrProviderUnavailable = errors.New("semantic provider unavailable")

	// ErrAllProvidersFailed signals that both semantic providers failed for
	// one email. Fatal for that email only.
	ErrAllProvidersFailed = errors.New("all semantic providers failed")

	// ErrNotFound is returned by preference stores and review queues when no
	// record exists for a key
	ErrNotFound = errors.New("record not found")

	// ErrItemResolved is returned when resolving a queue item that is
	// already terminal
	ErrItemResolved = errors.New("queue item already resolved")
)

// ValidationError reports out-of-contract data from a scoring source
type ValidationError struct {
	Source string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s output: field %q: %s", e.Source, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s output: %s", e.Source, e.Reason)
}
