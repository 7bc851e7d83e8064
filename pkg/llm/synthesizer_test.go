package llm_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/pkg/llm"
)

type fakeModel struct {
	answer  string
	err     error
	calls   int
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func scored(doc string, page int, text string, score float32) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.Chunk{
			ID:   models.ChunkID{DocumentID: doc, Page: page, Seq: 0},
			Text: text,
		},
		Score: score,
	}
}

func TestSynthesize_EmptyRetrievalSkipsModel(t *testing.T) {
	model := &fakeModel{answer: "should never be produced"}
	s := llm.NewSynthesizer(llm.SynthesizerConfig{}, model)

	record, err := s.Synthesize(context.Background(), "unrelated nonsense query", nil)
	require.NoError(t, err)

	assert.True(t, record.NoAnswer)
	assert.NotEmpty(t, record.Answer)
	assert.Empty(t, record.Sources)
	assert.Zero(t, model.calls, "the model must not be invoked with no grounding")
}

func TestSynthesize_GroundedAnswer(t *testing.T) {
	model := &fakeModel{answer: "Page 1 says hello world."}
	s := llm.NewSynthesizer(llm.SynthesizerConfig{}, model)

	results := []models.ScoredChunk{
		scored("doc-1", 1, "Hello world", 0.92),
		scored("doc-1", 2, "Scanned content here", 0.71),
	}

	record, err := s.Synthesize(context.Background(), "What does page 1 say?", results)
	require.NoError(t, err)

	assert.False(t, record.NoAnswer)
	assert.Equal(t, "Page 1 says hello world.", record.Answer, "model output is returned verbatim")
	assert.Equal(t, results, record.Sources)
	assert.Equal(t, 1, model.calls)

	prompt := model.prompts[0]
	assert.Contains(t, prompt, "[1] Document doc-1 | Page 1:\nHello world")
	assert.Contains(t, prompt, "[2] Document doc-1 | Page 2:\nScanned content here")
	assert.Contains(t, prompt, "Question: What does page 1 say?")
}

func TestSynthesize_ModelFailureSurfaced(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("%w: model offline", models.ErrSynthesis)}
	s := llm.NewSynthesizer(llm.SynthesizerConfig{}, model)

	_, err := s.Synthesize(context.Background(), "q", []models.ScoredChunk{scored("d", 1, "text", 0.9)})
	assert.ErrorIs(t, err, models.ErrSynthesis, "failures are surfaced, never answered around")
}

func TestSynthesize_CustomTemplates(t *testing.T) {
	model := &fakeModel{}
	s := llm.NewSynthesizer(llm.SynthesizerConfig{
		SystemTemplate: "Answer as a building code consultant.",
		NoAnswerText:   "No relevant context found for your query.",
	}, model)

	record, err := s.Synthesize(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "No relevant context found for your query.", record.Answer)

	_, err = s.Synthesize(context.Background(), "q", []models.ScoredChunk{scored("d", 1, "text", 0.9)})
	require.NoError(t, err)
	assert.Contains(t, model.prompts[0], "building code consultant")
}
