package retriever

import (
	"context"
	"fmt"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/internal/types"
)

type RetrieverConfig struct {
	// MinSimilarity is the relevance floor: hits scoring below it are dropped.
	// A search can come back non-empty and still retrieve nothing, which is
	// the expected "no relevant context" path rather than an error.
	MinSimilarity float32
	DefaultTopK   int
}

// Retriever embeds a query with the same model used at index time and runs
// nearest-neighbour search over the index.
type Retriever struct {
	config   RetrieverConfig
	embedder types.Embedder
	index    types.VectorIndex
}

func NewWithConfig(config RetrieverConfig, embedder types.Embedder, index types.VectorIndex) *Retriever {
	if config.DefaultTopK == 0 {
		config.DefaultTopK = 20
	}
	return &Retriever{
		config:   config,
		embedder: embedder,
		index:    index,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = r.config.DefaultTopK
	}

	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := hits[:0]
	for _, h := range hits {
		if h.Score >= r.config.MinSimilarity {
			results = append(results, h)
		}
	}
	return results, nil
}
