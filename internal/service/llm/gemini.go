package llm

import (
	"context"
	"fmt"
	"net/http"

	"FundFlow/internal/domain/service"
	"FundFlow/pkg/logger"

	"google.golang.org/genai"
)

type geminiAnalyst struct {
	cfg    Config
	client *genai.Client
	logger *logger.Logger
}

func newGeminiAnalyst(ctx context.Context, cfg Config, log *logger.Logger) (*geminiAnalyst, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiAnalyst{cfg: cfg, client: client, logger: log}, nil
}

func (a *geminiAnalyst) Provider() string { return ProviderGemini }
func (a *geminiAnalyst) Model() string    { return a.cfg.Model }

func (a *geminiAnalyst) config(system string, maxTokens int) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(a.cfg.Temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return gc
}

func (a *geminiAnalyst) Stream(ctx context.Context, p service.Prompt) (<-chan string, <-chan error) {
	return stream(ctx, a.logger, func(ctx context.Context, emit emitFunc) error {
		contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}
		for resp, err := range a.client.Models.GenerateContentStream(ctx, a.cfg.Model, contents, a.config(p.System, a.cfg.MaxTokens)) {
			if err != nil {
				return fmt.Errorf("gemini stream: %w", err)
			}
			if !emit(resp.Text()) {
				return ctx.Err()
			}
		}
		return nil
	})
}

func (a *geminiAnalyst) Ping(ctx context.Context) error {
	contents := []*genai.Content{genai.NewContentFromText(pingPrompt, genai.RoleUser)}
	if _, err := a.client.Models.GenerateContent(ctx, a.cfg.Model, contents, a.config("", pingMaxTokens)); err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}
