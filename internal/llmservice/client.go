package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"notebook-rag/internal/config"
)

// Client is the completion capability: single-turn, stateless prompts.
type Client struct {
	llm llms.Model
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	switch cfg.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
		}
		return &Client{llm: llm}, nil
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return &Client{llm: llm}, nil
	default:
		return nil, fmt.Errorf("unknown chat provider: %s", cfg.Provider)
	}
}

// Complete sends one prompt and returns the raw model text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := c.llm.GenerateContent(ctx, msgContent)
	if err != nil {
		return "", fmt.Errorf("model invocation failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	log.Debug().Int("length", len(res.Choices[0].Content)).Msg("Model completion received")
	return res.Choices[0].Content, nil
}
