package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/haydenk/askpdf/internal/models"
)

type EmbedderConfig struct {
	Model     string
	BaseURL   string // Ollama server URL
	Dimension int

	BatchSize      int     // texts per embedding request
	MaxConcurrency int     // in-flight embedding requests
	RequestsPerSec float64 // rate limit toward the provider
	CallTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Embedder produces fixed-dimension vectors via an Ollama embedding model.
// The same instance embeds both chunks and queries, which keeps index-time
// and query-time vectors in one embedding space.
type Embedder struct {
	config  EmbedderConfig
	client  *ollama.LLM
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dimension == 0 {
		config.Dimension = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 16
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.RequestsPerSec == 0 {
		config.RequestsPerSec = 5
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = 60 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryBaseDelay == 0 {
		config.RetryBaseDelay = 500 * time.Millisecond
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &Embedder{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1),
	}, nil
}

func (e *Embedder) Model() string {
	return e.config.Model
}

func (e *Embedder) Dimension() int {
	return e.config.Dimension
}

// EmbedTexts embeds texts in batches issued concurrently up to the configured
// limit. Results keep input order, and batching never changes a text's vector
// since each text is embedded independently by the model.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.MaxConcurrency)

	for start := 0; start < len(texts); start += e.config.BatchSize {
		start := start
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			vectors, err := e.embedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vectors [][]float32

	err := withRetry(ctx, e.config.MaxRetries, e.config.RetryBaseDelay, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
		defer cancel()

		result, err := e.client.CreateEmbedding(callCtx, batch)
		if err != nil {
			return fmt.Errorf("%w: %v", classifyCallErr(err, models.ErrEmbedding), err)
		}
		if len(result) != len(batch) {
			return fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbedding, len(result), len(batch))
		}
		for _, v := range result {
			if len(v) != e.config.Dimension {
				return fmt.Errorf("%w: model %s returned %d dims, expected %d",
					models.ErrDimensionMismatch, e.config.Model, len(v), e.config.Dimension)
			}
		}
		vectors = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
