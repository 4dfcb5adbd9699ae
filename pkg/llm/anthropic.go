package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hanq-labs/text2sql/pkg/config"
)

// AnthropicClient implements Client using the Anthropic API.
type AnthropicClient struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	log         *slog.Logger
}

// NewAnthropicClient creates a new Anthropic-based client. The API key is
// taken from ANTHROPIC_API_KEY by the SDK.
func NewAnthropicClient(cfg config.LLM, log *slog.Logger) *AnthropicClient {
	return &AnthropicClient{
		client:      anthropic.NewClient(),
		model:       anthropic.Model(cfg.Model),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		log:         log,
	}
}

// Complete sends a prompt to the model and returns the response text.
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})

	duration := time.Since(start)
	if err != nil {
		if c.log != nil {
			c.log.Error("anthropic call failed", "duration", duration, "error", err)
		}
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if c.log != nil {
		c.log.Debug("anthropic call completed", "duration", duration, "stopReason", msg.StopReason)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}
