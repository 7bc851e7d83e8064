package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/internal/types"
)

type PipelineConfig struct {
	// MaxConcurrentIngests bounds how many documents ingest in parallel.
	MaxConcurrentIngests int
}

// Synthesizer is the answer-composition half of the query path.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, results []models.ScoredChunk) (*models.AnswerRecord, error)
}

// Chunker splits a page into bounded, overlapping chunks.
type Chunker interface {
	ChunkPage(docID string, page models.Page) []models.Chunk
}

// Pipeline wires extractor, chunker, embedder, index, retriever and
// synthesizer into the three core operations: Ingest, Ask and Remove.
// It is the single explicit context object holding shared clients; construct
// it once at process start and tear it down with Close.
type Pipeline struct {
	config      PipelineConfig
	extractor   types.Extractor
	chunker     Chunker
	embedder    types.Embedder
	index       types.VectorIndex
	retriever   types.Retriever
	synthesizer Synthesizer

	// docLocks serializes ingestion per document id so re-ingesting the same
	// document is a clean replace rather than an interleaved merge. Different
	// documents ingest concurrently.
	mu       sync.Mutex
	docLocks map[string]*sync.Mutex
}

func New(config PipelineConfig, extractor types.Extractor, chunker Chunker,
	embedder types.Embedder, index types.VectorIndex,
	retriever types.Retriever, synthesizer Synthesizer) *Pipeline {

	if config.MaxConcurrentIngests == 0 {
		config.MaxConcurrentIngests = 4
	}

	return &Pipeline{
		config:      config,
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		retriever:   retriever,
		synthesizer: synthesizer,
		docLocks:    make(map[string]*sync.Mutex),
	}
}

// Ingest runs the full ingestion path for one document: extract pages (OCR
// where needed), chunk, embed and atomically index. A failed page degrades
// and is counted; a failed document returns an error without touching the
// index.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, docID, filename string) (*models.IngestResult, error) {
	lock := p.docLock(docID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := p.extractor.Extract(ctx, data, docID, filename)
	if err != nil {
		return nil, err
	}

	result := &models.IngestResult{DocumentID: docID}

	var chunks []models.Chunk
	for _, page := range doc.Pages {
		if page.Failed {
			result.PagesFailed++
			continue
		}
		chunks = append(chunks, p.chunker.ChunkPage(docID, page)...)
	}

	if len(chunks) == 0 {
		log.Printf("document %s produced no chunks (%d pages, %d failed)",
			docID, len(doc.Pages), result.PagesFailed)
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", docID, err)
	}

	entries := make([]models.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = models.IndexEntry{Chunk: c, Embedding: vectors[i]}
	}

	if err := p.index.Upsert(ctx, docID, entries); err != nil {
		return nil, fmt.Errorf("document %s: %w", docID, err)
	}

	result.ChunksIndexed = len(entries)
	return result, nil
}

// IngestAll ingests independent documents concurrently up to the configured
// limit. One failed document never aborts the rest; per-document errors come
// back keyed by document id.
func (p *Pipeline) IngestAll(ctx context.Context, docs map[string][]byte) (map[string]*models.IngestResult, map[string]error) {
	results := make(map[string]*models.IngestResult, len(docs))
	failures := make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxConcurrentIngests)

	for docID, data := range docs {
		docID, data := docID, data
		g.Go(func() error {
			result, err := p.Ingest(gctx, data, docID, docID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[docID] = err
			} else {
				results[docID] = result
			}
			return nil
		})
	}

	g.Wait()
	return results, failures
}

// Ask answers a question grounded on the index. An empty retrieval yields the
// explicit no-answer record without invoking the language model.
func (p *Pipeline) Ask(ctx context.Context, query string, k int) (*models.AnswerRecord, error) {
	results, err := p.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return p.synthesizer.Synthesize(ctx, query, results)
}

// Remove deletes every indexed chunk of the document.
func (p *Pipeline) Remove(ctx context.Context, docID string) error {
	lock := p.docLock(docID)
	lock.Lock()
	defer lock.Unlock()
	return p.index.Delete(ctx, docID)
}

// Close tears down shared clients. Call once at process shutdown.
func (p *Pipeline) Close() {
	p.index.Close()
}

func (p *Pipeline) docLock(docID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.docLocks[docID]
	if !ok {
		lock = &sync.Mutex{}
		p.docLocks[docID] = lock
	}
	return lock
}
