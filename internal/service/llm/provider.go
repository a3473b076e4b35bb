package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FundFlow/internal/domain/service"
	"FundFlow/pkg/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"

	pingPrompt    = "Hello"
	pingMaxTokens = 10
)

// ErrNotConfigured is returned when required provider settings are missing.
var ErrNotConfigured = errors.New("llm not configured")

type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Missing lists the settings that keep the provider from being usable.
func (c Config) Missing() []string {
	var missing []string
	if c.APIKey == "" {
		switch c.Provider {
		case ProviderClaude:
			missing = append(missing, "ANTHROPIC_API_KEY")
		case ProviderGemini:
			missing = append(missing, "GEMINI_API_KEY")
		default:
			missing = append(missing, "OPENAI_API_KEY")
		}
	}
	if c.Model == "" {
		missing = append(missing, "model")
	}
	return missing
}

// NewAnalyst builds the analyst of cfg.Provider.
func NewAnalyst(ctx context.Context, cfg Config, log *logger.Logger) (service.Analyst, error) {
	if log == nil {
		log = logger.Nop()
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	log = log.With(logger.String("provider", cfg.Provider), logger.String("model", cfg.Model))

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return newOpenAIAnalyst(cfg, log), nil
	case ProviderClaude:
		return newClaudeAnalyst(cfg, log), nil
	case ProviderGemini:
		return newGeminiAnalyst(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// emitFunc hands one fragment to the consumer; false means stop.
type emitFunc func(string) bool

// stream runs produce in a goroutine and relays its fragments. The fragment
// channel is closed before the error, if any, is delivered.
func stream(ctx context.Context, log *logger.Logger, produce func(context.Context, emitFunc) error) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		start := time.Now()
		n := 0
		emit := func(s string) bool {
			if s == "" {
				return true
			}
			select {
			case out <- s:
				n++
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := produce(ctx, emit)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		close(out)

		if err != nil {
			log.Error("llm stream failed", logger.Int("fragments", n), logger.Error(err))
			errs <- err
			return
		}
		log.Info("llm stream finished", logger.Int("fragments", n), logger.Duration("took", time.Since(start)))
	}()

	return out, errs
}

// Collect drains a stream into one string.
func Collect(fragments <-chan string, errs <-chan error) (string, error) {
	var b strings.Builder
	for f := range fragments {
		b.WriteString(f)
	}
	if err := <-errs; err != nil {
		return b.String(), err
	}
	return b.String(), nil
}
