package config

import (
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

// LLMConfig selects the primary and secondary analysis providers
type LLMConfig struct {
	Primary   string
	Secondary string
	Timeout   time.Duration
}

// OpenAIConfig represents the configuration for OpenAI-compatible providers
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// StoreConfig selects the preference store backend
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// QueueConfig selects the review queue backend
type QueueConfig struct {
	Type       string
	SQLitePath string
}

// EventLogConfig configures the classification event sink
type EventLogConfig struct {
	Enabled bool
	Path    string
}

// IngestConfig configures the email ingestion frontend
type IngestConfig struct {
	Type            string
	ListenAddress   string
	RelayAddress    string
	RelayPort       int
	RelayEnabled    bool
	RejectSpam      bool
	DefaultAccount  string
	MaxMessageBytes int64
}

// GetLLM returns the LLM provider selection
func (c *Config) GetLLM() LLMConfig {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		timeout = 10 * time.Second
	}
	return LLMConfig{
		Primary:   c.GetString("llm.primary"),
		Secondary: c.GetString("llm.secondary"),
		Timeout:   timeout,
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetScoring returns the ensemble scoring configuration
func (c *Config) GetScoring() core.ScoringConfig {
	return core.ScoringConfig{
		Production: core.ScoringWeights{
			Rule:     c.GetFloat64("scoring.production.rule"),
			History:  c.GetFloat64("scoring.production.history"),
			Semantic: c.GetFloat64("scoring.production.semantic"),
		},
		Bootstrap: core.ScoringWeights{
			Rule:     c.GetFloat64("scoring.bootstrap.rule"),
			History:  c.GetFloat64("scoring.bootstrap.history"),
			Semantic: c.GetFloat64("scoring.bootstrap.semantic"),
		},
		SkipConfidence:         c.GetFloat64("scoring.skip_confidence"),
		SkipImportanceCeiling:  c.GetFloat64("scoring.skip_importance_ceiling"),
		FullAgreementBoost:     c.GetFloat64("scoring.full_agreement_boost"),
		PartialAgreementBoost:  c.GetFloat64("scoring.partial_agreement_boost"),
		DisagreementPenalty:    c.GetFloat64("scoring.disagreement_penalty"),
		TrustedBoost:           c.GetFloat64("scoring.trusted_boost"),
		SuspiciousPenalty:      c.GetFloat64("scoring.suspicious_penalty"),
		MutedImportance:        c.GetFloat64("scoring.muted_importance"),
		MutedConfidencePenalty: c.GetFloat64("scoring.muted_confidence_penalty"),
		MinSenderObservations:  c.GetInt64("scoring.min_sender_observations"),
		MinDomainObservations:  c.GetInt64("scoring.min_domain_observations"),
	}
}

// GetRouter returns the review router configuration
func (c *Config) GetRouter() core.RouterConfig {
	return core.RouterConfig{
		AutoActThreshold: c.GetFloat64("router.auto_act_threshold"),
		ReviewThreshold:  c.GetFloat64("router.review_threshold"),
	}
}

// GetLearner returns the preference learner configuration
func (c *Config) GetLearner() core.LearnerConfig {
	return core.LearnerConfig{
		Alpha: c.GetFloat64("learner.alpha"),
	}
}

// GetBatch returns the batch classification limits
func (c *Config) GetBatch() core.BatchConfig {
	paceDelay, err := c.GetDuration("batch.pace_delay")
	if err != nil {
		paceDelay = core.DefaultBatchConfig().PaceDelay
	}
	return core.BatchConfig{
		MaxConcurrency: c.GetInt("batch.max_concurrency"),
		BatchSize:      c.GetInt("batch.batch_size"),
		PaceDelay:      paceDelay,
	}
}

// GetStore returns the preference store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetQueue returns the review queue configuration
func (c *Config) GetQueue() QueueConfig {
	return QueueConfig{
		Type:       c.GetString("queue.type"),
		SQLitePath: c.GetString("queue.sqlite_path"),
	}
}

// GetEventLog returns the event log configuration
func (c *Config) GetEventLog() EventLogConfig {
	return EventLogConfig{
		Enabled: c.GetBool("eventlog.enabled"),
		Path:    c.GetString("eventlog.path"),
	}
}

// GetIngest returns the ingest configuration
func (c *Config) GetIngest() IngestConfig {
	return IngestConfig{
		Type:            c.GetString("ingest.type"),
		ListenAddress:   c.GetString("ingest.listen_address"),
		RelayAddress:    c.GetString("ingest.relay_address"),
		RelayPort:       c.GetInt("ingest.relay_port"),
		RelayEnabled:    c.GetBool("ingest.relay_enabled"),
		RejectSpam:      c.GetBool("ingest.reject_spam"),
		DefaultAccount:  c.GetString("ingest.default_account"),
		MaxMessageBytes: c.GetInt64("ingest.max_message_bytes"),
	}
}
