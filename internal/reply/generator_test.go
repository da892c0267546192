package reply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"socialbot/internal/config"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewDryRunWins(t *testing.T) {
	cfg := config.LLMConfig{Provider: "openai", DryRun: true}
	gen, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := gen.(*DryRunGenerator); !ok {
		t.Errorf("expected DryRunGenerator, got %T", gen)
	}

	text, err := gen.Generate(context.Background(), "sys", "post", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text == "" {
		t.Error("dry-run reply should not be empty")
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"}
	if _, err := New(cfg, testLogger()); err == nil {
		t.Error("expected error without api key")
	}
}

func TestNewOllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.LLMConfig{
		Provider: "ollama",
		Model:    "qwen2.5-vl",
		BaseURL:  "http://localhost:11434/v1",
	}
	if _, err := New(cfg, testLogger()); err != nil {
		t.Errorf("ollama should not require a key: %v", err)
	}
}

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("element not found"), false},
		{"insufficient quota text", errors.New("provider said insufficient_quota"), true},
		{"http 429 text", errors.New("status code: 429"), true},
		{"rate limit text", errors.New("Rate Limit reached for model"), true},
		{"api error 429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"api error quota code", &openai.APIError{Code: "insufficient_quota"}, true},
		{"api error other", &openai.APIError{HTTPStatusCode: 500, Code: "server_error"}, false},
		{"wrapped api error", fmt.Errorf("generate reply: %w", &openai.APIError{HTTPStatusCode: 429}), true},
	}
	for _, c := range cases {
		if got := IsQuotaError(c.err); got != c.want {
			t.Errorf("%s: IsQuotaError = %v, want %v", c.name, got, c.want)
		}
	}
}
