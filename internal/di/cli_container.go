package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/factory"
	"github.com/mikey/mail-triage/internal/logging"
	"github.com/mikey/mail-triage/internal/ports"
	"github.com/mikey/mail-triage/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Primary     string
	Secondary   string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModelName string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Classification flags
	Account string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// LLM provider flags
	flag.StringVar(&flags.Primary, "primary", "openai", "Primary analysis provider (openai, gemini, bedrock)")
	flag.StringVar(&flags.Secondary, "secondary", "", "Failover analysis provider (empty to disable)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for the analysis response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for analysis generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for analysis generation")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send for analysis")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Base URL for OpenAI-compatible endpoints (e.g. a local Ollama server)")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Classification flags
	flag.StringVar(&flags.Account, "account", "default", "Account the email belongs to")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container
// for the CLI application. The CLI runs on in-memory storage with the event
// log disabled.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
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

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// CLI specific settings: in-memory storage, no event log, no relay
	v.Set("ingest.type", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("store.type", "memory")
	v.Set("queue.type", "memory")
	v.Set("eventlog.enabled", false)

	// Set LLM providers
	v.Set("llm.primary", flags.Primary)
	v.Set("llm.secondary", flags.Secondary)

	v.Set("openai.api_key", flags.OpenAIAPIKey)
	v.Set("openai.base_url", flags.OpenAIBaseURL)
	v.Set("openai.model_name", flags.OpenAIModelName)
	v.Set("openai.max_tokens", flags.MaxTokens)
	v.Set("openai.temperature", flags.Temperature)
	v.Set("openai.top_p", flags.TopP)
	v.Set("openai.max_body_size", flags.MaxBodySize)

	v.Set("gemini.api_key", flags.GeminiAPIKey)
	v.Set("gemini.model_name", flags.GeminiModelName)
	v.Set("gemini.max_tokens", flags.MaxTokens)
	v.Set("gemini.temperature", flags.Temperature)
	v.Set("gemini.top_p", flags.TopP)
	v.Set("gemini.max_body_size", flags.MaxBodySize)

	v.Set("bedrock.region", flags.BedrockRegion)
	v.Set("bedrock.model_id", flags.BedrockModelID)
	v.Set("bedrock.max_tokens", flags.MaxTokens)
	v.Set("bedrock.temperature", flags.Temperature)
	v.Set("bedrock.top_p", flags.TopP)
	v.Set("bedrock.max_body_size", flags.MaxBodySize)

	return config.NewFromViper(v)
}
