package ports

import (
	"context"

	"github.com/mikey/mail-triage/internal/core"
)

// EmailIngest defines the interface for email ingestion frontends
type EmailIngest interface {
	// ProcessEmail classifies a single email and returns the ensemble result
	ProcessEmail(ctx context.Context, email *core.Email) (*core.EnsembleResult, error)

	// Start starts the ingest service
	Start() error

	// Stop stops the ingest service
	Stop() error
}
