package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"FundFlow/internal/domain/service"
	"FundFlow/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

// openAIAnalyst talks to any OpenAI-compatible chat completion endpoint.
type openAIAnalyst struct {
	cfg    Config
	client *openai.Client
	logger *logger.Logger
}

func newOpenAIAnalyst(cfg Config, log *logger.Logger) *openAIAnalyst {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &openAIAnalyst{cfg: cfg, client: openai.NewClientWithConfig(oc), logger: log}
}

func (a *openAIAnalyst) Provider() string { return ProviderOpenAI }
func (a *openAIAnalyst) Model() string    { return a.cfg.Model }

func (a *openAIAnalyst) Stream(ctx context.Context, p service.Prompt) (<-chan string, <-chan error) {
	return stream(ctx, a.logger, func(ctx context.Context, emit emitFunc) error {
		req := openai.ChatCompletionRequest{
			Model:       a.cfg.Model,
			Messages:    openAIMessages(p),
			Temperature: float32(a.cfg.Temperature),
			MaxTokens:   a.cfg.MaxTokens,
			Stream:      true,
		}
		s, err := a.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return fmt.Errorf("openai stream: %w", err)
		}
		defer s.Close()

		for {
			resp, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("openai recv: %w", err)
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if !emit(resp.Choices[0].Delta.Content) {
				return ctx.Err()
			}
		}
	})
}

func (a *openAIAnalyst) Ping(ctx context.Context) error {
	_, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.cfg.Model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: pingPrompt}},
		MaxTokens: pingMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	return nil
}

func openAIMessages(p service.Prompt) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
}
