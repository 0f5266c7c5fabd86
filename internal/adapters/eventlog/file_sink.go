// Package eventlog implements the fire-and-forget sinks the engine emits
// classification and disagreement records to. Write failures never affect
// classification.
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileSink appends one JSON record per event to a log file
type FileSink struct {
	events *zap.Logger
	logger *zap.Logger
}

// NewFileSink opens (creating if needed) the append-only event file
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log file: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	writer := zapcore.Lock(zapcore.AddSync(file))
	events := zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, zapcore.InfoLevel))

	return &FileSink{events: events, logger: logger}, nil
}

// LogClassification records one completed classification
func (s *FileSink) LogClassification(email *core.Email, result *core.EnsembleResult) {
	s.events.Info("classification",
		zap.String("processing_id", result.ProcessingID),
		zap.String("email_id", email.ID),
		zap.String("account", email.Account),
		zap.String("sender", email.From),
		zap.String("domain", email.Domain()),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("importance", result.Importance),
		zap.String("agreement", string(result.Agreement)),
		zap.String("disposition", string(result.Disposition)),
		zap.Bool("semantic_skipped", result.SemanticSkipped),
		zap.Bool("unclassified", result.Unclassified),
		zap.Duration("processing_time", result.ProcessingTime))
}

// LogDisagreement records a scorer disagreement
func (s *FileSink) LogDisagreement(d *core.Disagreement) {
	s.events.Info("disagreement",
		zap.String("email_id", d.EmailID),
		zap.Any("categories", d.Categories),
		zap.Time("observed_at", d.ObservedAt))
}

// Close flushes buffered events
func (s *FileSink) Close() error {
	return s.events.Sync()
}
