package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/haydenk/askpdf/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL

	CallTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// ChatEngine is a LanguageModel backed by an Ollama-served chat model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 700
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = 120 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryBaseDelay == 0 {
		config.RetryBaseDelay = time.Second
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Generate runs one completion for prompt, with bounded per-call timeouts and
// retries. Failures come back as ErrSynthesis (or ErrTimeout when the call
// exceeded its deadline on the final attempt).
func (ce *ChatEngine) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string

	err := withRetry(ctx, ce.config.MaxRetries, ce.config.RetryBaseDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, ce.config.CallTimeout)
		defer cancel()

		content := []llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeHuman, prompt),
		}

		response, err := ce.llm.GenerateContent(callCtx, content,
			llms.WithTemperature(ce.config.Temperature),
			llms.WithMaxTokens(ce.config.MaxTokens),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", classifyCallErr(err, models.ErrSynthesis), err)
		}
		if len(response.Choices) == 0 {
			return fmt.Errorf("%w: model returned no choices", models.ErrSynthesis)
		}
		answer = response.Choices[0].Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}
