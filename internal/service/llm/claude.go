package llm

import (
	"context"
	"fmt"

	"FundFlow/internal/domain/service"
	"FundFlow/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type claudeAnalyst struct {
	cfg    Config
	client anthropic.Client
	logger *logger.Logger
}

func newClaudeAnalyst(cfg Config, log *logger.Logger) *claudeAnalyst {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &claudeAnalyst{cfg: cfg, client: anthropic.NewClient(opts...), logger: log}
}

func (a *claudeAnalyst) Provider() string { return ProviderClaude }
func (a *claudeAnalyst) Model() string    { return a.cfg.Model }

func (a *claudeAnalyst) params(p service.Prompt, maxTokens int) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(p.User))},
	}
	if a.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(a.cfg.Temperature)
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}
	return params
}

func (a *claudeAnalyst) Stream(ctx context.Context, p service.Prompt) (<-chan string, <-chan error) {
	return stream(ctx, a.logger, func(ctx context.Context, emit emitFunc) error {
		s := a.client.Messages.NewStreaming(ctx, a.params(p, a.cfg.MaxTokens))
		defer s.Close()

		for s.Next() {
			ev, ok := s.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok {
				continue
			}
			if !emit(delta.Text) {
				return ctx.Err()
			}
		}
		if err := s.Err(); err != nil {
			return fmt.Errorf("claude stream: %w", err)
		}
		return nil
	})
}

func (a *claudeAnalyst) Ping(ctx context.Context) error {
	if _, err := a.client.Messages.New(ctx, a.params(service.Prompt{User: pingPrompt}, pingMaxTokens)); err != nil {
		return fmt.Errorf("claude ping: %w", err)
	}
	return nil
}
