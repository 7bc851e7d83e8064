package types

import (
	"context"

	"github.com/haydenk/askpdf/internal/models"
)

// Core interfaces. Each external capability (PDF text layer, OCR engine,
// embedding provider, language model, vector index) sits behind one of these
// so the pipeline can run against fakes in tests and swap providers without
// touching orchestration code.

// PageReader extracts the native text layer of a document, one string per
// page in page order.
type PageReader interface {
	ReadPages(ctx context.Context, data []byte) ([]string, error)
}

// OCREngine recognises text on a single rendered page of a PDF.
// Page numbers are 1-indexed.
type OCREngine interface {
	RecognizePage(ctx context.Context, pdf []byte, page int) (string, error)
}

// Extractor turns raw document bytes into an ordered sequence of pages,
// falling back to OCR where the native text layer is too thin.
type Extractor interface {
	Extract(ctx context.Context, data []byte, docID, filename string) (models.Document, error)
}

// Embedder maps texts into fixed-dimension vectors. The same model must be
// used for chunks and queries; Model and Dimension identify it so the index
// can enforce that.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

// LanguageModel produces a completion for a fully composed prompt.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorIndex is the durable store of chunk embeddings.
//
// Upsert atomically replaces every entry for documentID: a reader never
// observes a half-replaced document. Search returns at most k entries in
// descending cosine similarity, ties broken by earliest insertion.
type VectorIndex interface {
	Upsert(ctx context.Context, documentID string, entries []models.IndexEntry) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error)
	Delete(ctx context.Context, documentID string) error
	Close()
}

// Retriever embeds a query, searches the index and drops hits below the
// relevance floor. An empty result is the "no relevant context" path, not
// an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

// Chunker splits a page into bounded, overlapping chunks with provenance.
type Chunker interface {
	ChunkPage(docID string, page models.Page) []models.Chunk
}
