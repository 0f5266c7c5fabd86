package factory

import (
	"fmt"

	"github.com/mikey/mail-triage/internal/adapters/ingest"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ports"
	"go.uber.org/zap"
)

// IngestFactory creates email ingest frontends based on configuration
type IngestFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.TriageService
}

// NewIngestFactory creates a new ingest factory
func NewIngestFactory(cfg *config.Config, logger *zap.Logger, service *core.TriageService) *IngestFactory {
	return &IngestFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailIngest creates an ingest frontend based on the configuration
func (f *IngestFactory) CreateEmailIngest() (ports.EmailIngest, error) {
	ingestCfg := f.cfg.GetIngest()

	switch ingestCfg.Type {
	case "smtp":
		return ingest.NewSMTPIngest(f.service, ingest.SMTPConfig{
			ListenAddr:      ingestCfg.ListenAddress,
			RelayAddr:       ingestCfg.RelayAddress,
			RelayPort:       ingestCfg.RelayPort,
			RelayEnabled:    ingestCfg.RelayEnabled,
			RejectSpam:      ingestCfg.RejectSpam,
			DefaultAccount:  ingestCfg.DefaultAccount,
			MaxMessageBytes: ingestCfg.MaxMessageBytes,
		}, f.logger), nil
	case "cli":
		return ingest.NewCLIIngest(
			f.service,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported ingest type: %s", ingestCfg.Type)
	}
}
