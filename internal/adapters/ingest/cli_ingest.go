package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// CLIIngest classifies a single email and prints the ensemble breakdown
type CLIIngest struct {
	service *core.TriageService
	logger  *zap.Logger
	verbose bool
}

// NewCLIIngest creates a new CLI ingest frontend
func NewCLIIngest(service *core.TriageService, logger *zap.Logger, verbose bool) (*CLIIngest, error) {
	return &CLIIngest{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// ProcessEmail classifies an email and displays the results
func (f *CLIIngest) ProcessEmail(ctx context.Context, email *core.Email) (*core.EnsembleResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.From)
	fmt.Printf("To: %s\n", strings.Join(email.To, ", "))
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := email.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Running ensemble classification...\n")
	startTime := time.Now()
	result, err := f.service.ClassifyEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to classify email", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Category: %s\n", result.Category)
	if len(result.SecondaryCategories) > 0 {
		secondaries := make([]string, len(result.SecondaryCategories))
		for i, c := range result.SecondaryCategories {
			secondaries[i] = string(c)
		}
		fmt.Printf("Secondary: %s\n", strings.Join(secondaries, ", "))
	}
	fmt.Printf("Confidence: %.4f\n", result.Confidence)
	fmt.Printf("Importance: %.4f\n", result.Importance)
	fmt.Printf("Disposition: %s\n", result.Disposition)
	fmt.Printf("Agreement: %s\n", result.Agreement)
	fmt.Printf("Semantic skipped: %t\n", result.SemanticSkipped)
	fmt.Printf("Processing time: %v\n", duration)

	if f.verbose {
		fmt.Printf("\n=== Layer Contributions ===\n")
		for _, c := range result.Contributions {
			fmt.Printf("%-10s %-16s conf=%.2f imp=%.2f  %s\n",
				c.Source, c.Category, c.Confidence, c.Importance, c.Reasoning)
		}
	}

	return result, nil
}

// Start is a no-op for the CLI ingest
func (f *CLIIngest) Start() error {
	return nil
}

// Stop is a no-op for the CLI ingest
func (f *CLIIngest) Stop() error {
	return nil
}
