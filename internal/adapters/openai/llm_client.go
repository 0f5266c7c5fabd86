package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// triagePrompt asks the model for the structured triage analysis
const triagePrompt = `You are an email triage assistant. Classify the following email.
Respond with a JSON object containing:
- category: one of "important", "action_required", "informational", "newsletter", "transactional", "auto_reply", "normal", "spam"
- confidence: number between 0 and 1 (how confident you are in the category)
- importance: number between 0 and 1 (how much the recipient should care)
- reasoning: string (brief explanation of the classification)
- intent: string (what the sender wants, e.g. "request", "notification", "marketing")
- response_required: boolean (whether the recipient is expected to respond)

Email:
From: %s
To: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// Client implements the core.LLMClient interface against any
// OpenAI-compatible endpoint. Setting BaseURL points it at a local server
// such as Ollama, which is how the local-first provider is configured.
type Client struct {
	client        *openai.Client
	name          string
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// Config holds the client settings
type Config struct {
	Name        string
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// NewClient creates a new OpenAI-compatible client
func NewClient(cfg Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &Client{
		client:        openai.NewClientWithConfig(clientConfig),
		name:          name,
		modelName:     cfg.ModelName,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		maxBodySize:   cfg.MaxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Name identifies the provider
func (c *Client) Name() string {
	return c.name
}

// AnalyzeEmail asks the model for a structured triage analysis
func (c *Client) AnalyzeEmail(ctx context.Context, email *core.Email) (*core.SemanticAnalysis, error) {
	body := c.textProcessor.ProcessText(email.Body, c.maxBodySize)
	prompt := fmt.Sprintf(triagePrompt, email.From, utils.FormatRecipients(email.To), email.Subject, body)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage assistant. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", c.name)
	}

	return parseAnalysis(resp.Choices[0].Message.Content, c.modelName)
}

// parseAnalysis decodes the model's JSON response, tolerating wrapping
// prose around the object
func parseAnalysis(responseText, model string) (*core.SemanticAnalysis, error) {
	var analysis core.SemanticAnalysis
	if err := json.Unmarshal([]byte(responseText), &analysis); err != nil {
		jsonStr, extractErr := utils.ExtractJSONObject(responseText)
		if extractErr != nil {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", extractErr)
		}
		if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}
	analysis.ModelUsed = model
	return &analysis, nil
}
