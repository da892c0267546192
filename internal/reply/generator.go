// Package reply wraps the language-model providers that turn post content
// into a short reply.
package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"socialbot/internal/config"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Generator produces a reply for an item's text and optional image.
type Generator interface {
	// Generate returns reply text. imageB64, when non-empty, is a base64
	// JPEG of the post's first image.
	Generate(ctx context.Context, systemPrompt, content, imageB64 string) (string, error)
}

// OpenAIGenerator speaks the OpenAI chat-completion API. Ollama exposes
// the same surface, so a BaseURL override is all it takes to run local
// models through the identical path.
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       *logrus.Entry
}

// NewOpenAIGenerator builds a generator from the llm config section.
func NewOpenAIGenerator(cfg config.LLMConfig, log *logrus.Logger) (*OpenAIGenerator, error) {
	key := cfg.ResolveAPIKey()
	if cfg.Provider == "ollama" && key == "" {
		// Ollama ignores auth but the client requires a token.
		key = "ollama"
	}
	if key == "" {
		return nil, errors.New("llm api key is not configured")
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	return &OpenAIGenerator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		log:       log.WithField("provider", cfg.Provider),
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, content, imageB64 string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	if imageB64 != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: content},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: "data:image/jpeg;base64," + imageB64,
					},
				},
			},
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		Messages:  messages,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		g.log.WithError(err).Error("generation failed")
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generate reply: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// DryRunGenerator returns a canned reply without touching any provider.
type DryRunGenerator struct {
	log *logrus.Entry
}

func NewDryRunGenerator(log *logrus.Logger) *DryRunGenerator {
	return &DryRunGenerator{log: log.WithField("provider", "dry-run")}
}

func (g *DryRunGenerator) Generate(ctx context.Context, systemPrompt, content, imageB64 string) (string, error) {
	g.log.Info("generating mock reply")
	return "This is a dry-run reply!", nil
}

// New builds the generator appropriate for the config: dry-run wins over
// any provider.
func New(cfg config.LLMConfig, log *logrus.Logger) (Generator, error) {
	if cfg.DryRun {
		return NewDryRunGenerator(log), nil
	}
	return NewOpenAIGenerator(cfg, log)
}

// IsQuotaError reports whether err carries a quota or rate-limit
// signature. The orchestrator aborts the whole session on these to avoid
// runaway billing or bans.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "insufficient_quota") ||
		strings.Contains(msg, "429") ||
		strings.Contains(strings.ToLower(msg), "rate limit")
}
