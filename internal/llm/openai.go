package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI-compatible gateway.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty keeps the library default
	Timeout time.Duration
}

// OpenAIGateway implements Gateway against the chat completions API.
type OpenAIGateway struct {
	client *openai.Client
	logger *slog.Logger
}

var _ Gateway = (*OpenAIGateway)(nil)

// NewOpenAI creates a gateway. The API key is not checked here; callers report a
// missing credential before attempting generation.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAIGateway {
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		clientCfg.BaseURL = base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Complete implements Gateway.
func (g *OpenAIGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	started := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         messages,
		Temperature:      float32(req.Temperature),
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  float32(req.PresencePenalty),
		FrequencyPenalty: float32(req.FrequencyPenalty),
	})
	if err != nil {
		return nil, &domain.GenerationError{Err: fmt.Errorf("chat completion: %w", err)}
	}

	out := &Response{Candidates: make([]Candidate, 0, len(resp.Choices))}
	for _, choice := range resp.Choices {
		out.Candidates = append(out.Candidates, Candidate{Text: choice.Message.Content})
	}

	g.logger.Debug("Chat completion finished",
		"model", req.Model,
		"candidates", len(out.Candidates),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(started),
	)
	return out, nil
}
