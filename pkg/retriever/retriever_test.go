package retriever_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/pkg/retriever"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Dimension() int { return len(f.vec) }

type fakeIndex struct {
	hits  []models.ScoredChunk
	gotK  int
	err   error
	query []float32
}

func (f *fakeIndex) Upsert(context.Context, string, []models.IndexEntry) error { return nil }
func (f *fakeIndex) Delete(context.Context, string) error                      { return nil }
func (f *fakeIndex) Close()                                                    {}

func (f *fakeIndex) Search(_ context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	f.query = embedding
	f.gotK = k
	return f.hits, f.err
}

func hit(text string, score float32) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.Chunk{ID: models.ChunkID{DocumentID: "d", Page: 1}, Text: text},
		Score: score,
	}
}

func TestRetrieve_FiltersBelowFloor(t *testing.T) {
	index := &fakeIndex{hits: []models.ScoredChunk{
		hit("relevant", 0.82),
		hit("borderline", 0.35),
		hit("noise", 0.12),
	}}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{MinSimilarity: 0.35},
		&fakeEmbedder{vec: []float32{1, 0}}, index)

	results, err := r.Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "relevant", results[0].Chunk.Text)
	assert.Equal(t, "borderline", results[1].Chunk.Text)
	assert.Equal(t, []float32{1, 0}, index.query)
}

func TestRetrieve_NothingClearsFloor(t *testing.T) {
	index := &fakeIndex{hits: []models.ScoredChunk{hit("noise", 0.05)}}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{MinSimilarity: 0.5},
		&fakeEmbedder{vec: []float32{1}}, index)

	results, err := r.Retrieve(context.Background(), "unrelated nonsense query", 5)
	require.NoError(t, err, "an empty retrieval is not an error")
	assert.Empty(t, results)
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	index := &fakeIndex{}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{},
		&fakeEmbedder{vec: []float32{1}}, index)

	_, err := r.Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, 20, index.gotK)
}

func TestRetrieve_EmbedFailure(t *testing.T) {
	r := retriever.NewWithConfig(retriever.RetrieverConfig{},
		&fakeEmbedder{err: models.ErrEmbedding}, &fakeIndex{})

	_, err := r.Retrieve(context.Background(), "q", 5)
	assert.ErrorIs(t, err, models.ErrEmbedding)
}

func TestRetrieve_SearchFailure(t *testing.T) {
	r := retriever.NewWithConfig(retriever.RetrieverConfig{},
		&fakeEmbedder{vec: []float32{1}}, &fakeIndex{err: errors.New("index down")})

	_, err := r.Retrieve(context.Background(), "q", 5)
	assert.Error(t, err)
}
