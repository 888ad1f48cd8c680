package inference

import (
	"context"
	"errors"
	"fmt"

	"pedidos/internal/config"
)

// ErrUnavailable covers every failure to obtain a completion: transport,
// auth, non-2xx status or an empty choice list.
var ErrUnavailable = errors.New("extraction unavailable")

// Client is a single-shot chat completion. Implementations never retry.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// New builds the client selected by cfg.Provider.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model, cfg.MaxTokens), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is not set")
		}
		return NewGeminiClient(context.Background(), GeminiOptions{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
