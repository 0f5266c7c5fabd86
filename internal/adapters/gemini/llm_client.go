package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

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

// Client implements the core.LLMClient interface using Google Gemini
type Client struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// Config holds the Gemini client settings
type Config struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger, textProcessor *utils.TextProcessor) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(cfg.TopP)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))

	return &Client{
		client:        client,
		model:         model,
		modelName:     cfg.ModelName,
		maxBodySize:   cfg.MaxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Name identifies the provider
func (c *Client) Name() string {
	return "gemini"
}

// Close closes the underlying client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// AnalyzeEmail asks the model for a structured triage analysis
func (c *Client) AnalyzeEmail(ctx context.Context, email *core.Email) (*core.SemanticAnalysis, error) {
	body := c.textProcessor.ProcessText(email.Body, c.maxBodySize)
	prompt := fmt.Sprintf(triagePrompt, email.From, utils.FormatRecipients(email.To), email.Subject, body)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

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
	analysis.ModelUsed = c.modelName
	return &analysis, nil
}
