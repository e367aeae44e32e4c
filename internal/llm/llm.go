package llm

import (
	"context"
	"fmt"

	"github.com/savr-devTeam/savr.ai/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// Providers understood by New.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Options selects and configures a provider.
type Options struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
}

// New builds the TextGenerator named by opts.Provider. Gemini is the default.
func New(ctx context.Context, opts Options) (TextGenerator, error) {
	switch opts.Provider {
	case ProviderGroq:
		return NewGroqClient(opts.GroqAPIKey, opts.GroqModel), nil
	case "", ProviderGemini:
		c, err := NewGeminiClient(ctx, opts.GeminiAPIKey, opts.GeminiModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
