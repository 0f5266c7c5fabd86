package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mail-triage/")
	v.AddConfigPath("$HOME/.mail-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// Watch re-reads the config file on change and invokes the callback with
// the refreshed configuration. Tunables like scoring weights, thresholds
// and the learning rate pick up new values without a restart.
func (c *Config) Watch(onChange func(*Config)) {
	c.v.OnConfigChange(func(_ fsnotify.Event) {
		onChange(c)
	})
	c.v.WatchConfig()
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.secondary", "")
	v.SetDefault("llm.timeout", "10s")

	// OpenAI defaults; base_url points the client at any OpenAI-compatible
	// endpoint, including a local Ollama server
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Ensemble scoring defaults
	v.SetDefault("scoring.production.rule", 0.20)
	v.SetDefault("scoring.production.history", 0.30)
	v.SetDefault("scoring.production.semantic", 0.50)
	v.SetDefault("scoring.bootstrap.rule", 0.35)
	v.SetDefault("scoring.bootstrap.history", 0.05)
	v.SetDefault("scoring.bootstrap.semantic", 0.60)
	v.SetDefault("scoring.skip_confidence", 0.70)
	v.SetDefault("scoring.skip_importance_ceiling", 0.80)
	v.SetDefault("scoring.full_agreement_boost", 0.20)
	v.SetDefault("scoring.partial_agreement_boost", 0.10)
	v.SetDefault("scoring.disagreement_penalty", 0.20)
	v.SetDefault("scoring.trusted_boost", 0.10)
	v.SetDefault("scoring.suspicious_penalty", 0.10)
	v.SetDefault("scoring.muted_importance", 0.10)
	v.SetDefault("scoring.muted_confidence_penalty", 0.20)
	v.SetDefault("scoring.min_sender_observations", 5)
	v.SetDefault("scoring.min_domain_observations", 10)

	// Router defaults
	v.SetDefault("router.auto_act_threshold", 0.90)
	v.SetDefault("router.review_threshold", 0.65)

	// Learner defaults
	v.SetDefault("learner.alpha", 0.15)

	// Batch defaults
	v.SetDefault("batch.max_concurrency", 4)
	v.SetDefault("batch.batch_size", 10)
	v.SetDefault("batch.pace_delay", "500ms")

	// Preference store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/triage_preferences.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/mail_triage")

	// Review queue defaults
	v.SetDefault("queue.type", "memory")
	v.SetDefault("queue.sqlite_path", "/data/triage_queue.db")

	// Event log defaults
	v.SetDefault("eventlog.enabled", true)
	v.SetDefault("eventlog.path", "/data/triage_events.log")

	// Ingest defaults
	v.SetDefault("ingest.type", "smtp")
	v.SetDefault("ingest.listen_address", "0.0.0.0:10025")
	v.SetDefault("ingest.relay_address", "127.0.0.1")
	v.SetDefault("ingest.relay_port", 10026)
	v.SetDefault("ingest.relay_enabled", true)
	v.SetDefault("ingest.reject_spam", false)
	v.SetDefault("ingest.default_account", "default")
	v.SetDefault("ingest.max_message_bytes", 30*1024*1024)

	// Trust seeding defaults, applied to the default account at startup
	v.SetDefault("trust.trusted_senders", []string{})
	v.SetDefault("trust.suspicious_senders", []string{})
	v.SetDefault("trust.blocked_senders", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
