package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/pkg/extractor"
	"github.com/haydenk/askpdf/pkg/llm"
	"github.com/haydenk/askpdf/pkg/pipeline"
	"github.com/haydenk/askpdf/pkg/processor"
	"github.com/haydenk/askpdf/pkg/retriever"
	"github.com/haydenk/askpdf/pkg/store"
)

// pageSource fakes the PDF text layer per document.
type pageSource struct {
	pages map[string][]string // keyed by the raw document bytes
}

func (s *pageSource) ReadPages(_ context.Context, data []byte) ([]string, error) {
	pages, ok := s.pages[string(data)]
	if !ok {
		return nil, errors.New("unparseable document")
	}
	return pages, nil
}

type scanOCR struct {
	text string
	err  error
}

func (o *scanOCR) RecognizePage(_ context.Context, _ []byte, _ int) (string, error) {
	return o.text, o.err
}

// keywordEmbedder maps texts onto axes by keyword so similarity is
// controllable from the test: "hello" -> x, "scanned" -> y, rest -> z.
type keywordEmbedder struct{}

func (keywordEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "hello") || strings.Contains(lower, "page 1"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(lower, "scanned"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (keywordEmbedder) Model() string  { return "keyword-test" }
func (keywordEmbedder) Dimension() int { return 3 }

type countingModel struct {
	calls  int
	answer string
}

func (m *countingModel) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.answer, nil
}

type fixture struct {
	pipeline *pipeline.Pipeline
	index    *store.Memory
	model    *countingModel
	ocr      *scanOCR
}

func newFixture(t *testing.T, source *pageSource) *fixture {
	t.Helper()

	ocr := &scanOCR{text: "Scanned content here"}
	ext, err := extractor.NewWithConfig(extractor.ExtractorConfig{MinNativeChars: 20}, source, ocr)
	require.NoError(t, err)

	chunker := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 20})
	embedder := keywordEmbedder{}
	index := store.NewMemory(3)
	ret := retriever.NewWithConfig(retriever.RetrieverConfig{MinSimilarity: 0.5}, embedder, index)
	model := &countingModel{answer: "Page 1 says hello world."}
	synth := llm.NewSynthesizer(llm.SynthesizerConfig{}, model)

	return &fixture{
		pipeline: pipeline.New(pipeline.PipelineConfig{}, ext, &chunker, embedder, index, ret, synth),
		index:    index,
		model:    model,
		ocr:      ocr,
	}
}

func TestIngest_TwoPageScenario(t *testing.T) {
	// Page 1 has native text; page 2 is a scan that OCR recognises.
	source := &pageSource{pages: map[string][]string{
		"doc-bytes": {
			"Hello world, this page has a healthy native text layer.",
			"",
		},
	}}
	f := newFixture(t, source)

	result, err := f.pipeline.Ingest(context.Background(), []byte("doc-bytes"), "doc-1", "a.pdf")
	require.NoError(t, err)

	assert.Equal(t, 2, result.ChunksIndexed)
	assert.Equal(t, 0, result.PagesFailed)
	assert.Equal(t, 2, f.index.Len())
}

func TestIngest_FailedPageCounted(t *testing.T) {
	source := &pageSource{pages: map[string][]string{
		"doc-bytes": {
			"Plenty of native text on the first page of this file.",
			"", // OCR will fail on this one
		},
	}}
	f := newFixture(t, source)
	f.ocr.err = errors.New("tesseract missing")

	result, err := f.pipeline.Ingest(context.Background(), []byte("doc-bytes"), "doc-1", "a.pdf")
	require.NoError(t, err, "one bad page must not fail the document")

	assert.Equal(t, 1, result.ChunksIndexed)
	assert.Equal(t, 1, result.PagesFailed)
}

func TestIngest_CorruptDocumentRejected(t *testing.T) {
	f := newFixture(t, &pageSource{pages: map[string][]string{}})

	_, err := f.pipeline.Ingest(context.Background(), []byte("garbage"), "doc-1", "a.pdf")
	assert.ErrorIs(t, err, models.ErrExtraction)
	assert.Zero(t, f.index.Len(), "a rejected document must not touch the index")
}

func TestAsk_CitesRelevantChunk(t *testing.T) {
	source := &pageSource{pages: map[string][]string{
		"doc-bytes": {
			"Hello world, this page has a healthy native text layer.",
			"",
		},
	}}
	f := newFixture(t, source)

	_, err := f.pipeline.Ingest(context.Background(), []byte("doc-bytes"), "doc-1", "a.pdf")
	require.NoError(t, err)

	record, err := f.pipeline.Ask(context.Background(), "What does page 1 say?", 3)
	require.NoError(t, err)

	assert.False(t, record.NoAnswer)
	assert.NotEmpty(t, record.Answer)
	require.NotEmpty(t, record.Sources)
	assert.Equal(t, 1, record.Sources[0].Chunk.ID.Page)
	assert.Equal(t, 1, f.model.calls)
}

func TestAsk_UnrelatedQueryNoModelCall(t *testing.T) {
	source := &pageSource{pages: map[string][]string{
		"doc-bytes": {"Hello world, this page has a healthy native text layer.", ""},
	}}
	f := newFixture(t, source)

	_, err := f.pipeline.Ingest(context.Background(), []byte("doc-bytes"), "doc-1", "a.pdf")
	require.NoError(t, err)

	record, err := f.pipeline.Ask(context.Background(), "unrelated nonsense query", 5)
	require.NoError(t, err)

	assert.True(t, record.NoAnswer)
	assert.Zero(t, f.model.calls, "no grounding means zero language-model calls")
}

func TestRemove_DeleteCompleteness(t *testing.T) {
	source := &pageSource{pages: map[string][]string{
		"doc-bytes": {"Hello world, this page has a healthy native text layer.", ""},
	}}
	f := newFixture(t, source)

	_, err := f.pipeline.Ingest(context.Background(), []byte("doc-bytes"), "doc-1", "a.pdf")
	require.NoError(t, err)

	require.NoError(t, f.pipeline.Remove(context.Background(), "doc-1"))

	record, err := f.pipeline.Ask(context.Background(), "What does page 1 say?", 5)
	require.NoError(t, err)
	assert.True(t, record.NoAnswer)
	assert.Zero(t, f.index.Len())
}

func TestReingest_ReplacesNotDuplicates(t *testing.T) {
	source := &pageSource{pages: map[string][]string{
		"doc-bytes": {"Hello world, this page has a healthy native text layer.", ""},
	}}
	f := newFixture(t, source)

	for i := 0; i < 3; i++ {
		_, err := f.pipeline.Ingest(context.Background(), []byte("doc-bytes"), "doc-1", "a.pdf")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.index.Len(), "re-ingestion replaces, never duplicates")
}

func TestIngestAll_IsolatesFailures(t *testing.T) {
	source := &pageSource{pages: map[string][]string{
		"good-bytes": {"Hello world, this page has a healthy native text layer."},
	}}
	f := newFixture(t, source)

	results, failures := f.pipeline.IngestAll(context.Background(), map[string][]byte{
		"good-doc": []byte("good-bytes"),
		"bad-doc":  []byte("not-parseable"),
	})

	require.Contains(t, results, "good-doc")
	assert.Equal(t, 1, results["good-doc"].ChunksIndexed)
	require.Contains(t, failures, "bad-doc")
	assert.ErrorIs(t, failures["bad-doc"], models.ErrExtraction)
}
