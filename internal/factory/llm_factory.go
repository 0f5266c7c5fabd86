// Package factory builds the configured concrete adapters behind the core
// interfaces.
package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/mail-triage/internal/adapters/bedrock"
	"github.com/mikey/mail-triage/internal/adapters/gemini"
	"github.com/mikey/mail-triage/internal/adapters/openai"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates the semantic analysis provider clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreatePrimary creates the primary analysis client
func (f *LLMFactory) CreatePrimary(ctx context.Context) (core.LLMClient, error) {
	return f.createClient(ctx, f.cfg.GetLLM().Primary)
}

// CreateSecondary creates the failover client, or nil when none is configured
func (f *LLMFactory) CreateSecondary(ctx context.Context) (core.LLMClient, error) {
	name := f.cfg.GetLLM().Secondary
	if name == "" {
		return nil, nil
	}
	return f.createClient(ctx, name)
}

func (f *LLMFactory) createClient(ctx context.Context, provider string) (core.LLMClient, error) {
	switch provider {
	case "openai":
		return f.createOpenAI()
	case "gemini":
		return f.createGemini(ctx)
	case "bedrock":
		return f.createBedrock(ctx)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

func (f *LLMFactory) createOpenAI() (core.LLMClient, error) {
	cfg := f.cfg.GetOpenAI()
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return openai.NewClient(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		ModelName:   cfg.ModelName,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxBodySize: cfg.MaxBodySize,
	}, f.logger, f.textProcessor), nil
}

func (f *LLMFactory) createGemini(ctx context.Context) (core.LLMClient, error) {
	cfg := f.cfg.GetGemini()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	return gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.APIKey,
		ModelName:   cfg.ModelName,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxBodySize: cfg.MaxBodySize,
	}, f.logger, f.textProcessor)
}

func (f *LLMFactory) createBedrock(ctx context.Context) (core.LLMClient, error) {
	cfg := f.cfg.GetBedrock()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Config{
		ModelID:     cfg.ModelID,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxBodySize: cfg.MaxBodySize,
	}, f.logger, f.textProcessor), nil
}
