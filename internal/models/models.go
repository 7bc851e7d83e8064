package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractionMethod records how a page's text was obtained.
type ExtractionMethod string

const (
	ExtractionNative ExtractionMethod = "native"
	ExtractionOCR    ExtractionMethod = "ocr"
)

// Page is one page of an extracted document. OCR text carries no confidence
// score, so LowConfidence marks it as lower-trust. Failed means OCR was
// attempted and broke; the page text is empty but the document continues.
type Page struct {
	Number        int // 1-indexed
	Text          string
	Method        ExtractionMethod
	LowConfidence bool
	Failed        bool
}

type Document struct {
	ID       string
	Filename string
	Pages    []Page
}

// ChunkID identifies a chunk by its position in the source document.
// The tuple form prevents the key collisions free-form string IDs allow.
type ChunkID struct {
	DocumentID string
	Page       int
	Seq        int
}

func (id ChunkID) String() string {
	return fmt.Sprintf("%s:%d:%d", id.DocumentID, id.Page, id.Seq)
}

func ParseChunkID(s string) (ChunkID, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q", s)
	}
	j := strings.LastIndexByte(s[:i], ':')
	if j < 0 {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q", s)
	}
	page, err := strconv.Atoi(s[j+1 : i])
	if err != nil {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q: %v", s, err)
	}
	seq, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q: %v", s, err)
	}
	return ChunkID{DocumentID: s[:j], Page: page, Seq: seq}, nil
}

// Chunk is the atomic unit indexed and retrieved. Start and End are rune
// offsets into the source page text. Chunks are immutable once created.
type Chunk struct {
	ID    ChunkID
	Text  string
	Start int
	End   int
}

// IndexEntry pairs a chunk with its embedding; owned by the vector index
// once upserted.
type IndexEntry struct {
	Chunk     Chunk
	Embedding []float32
}

// ScoredChunk is one retrieval hit. Score is cosine similarity in [-1, 1].
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// AnswerRecord is the result of a question. NoAnswer marks the explicit
// "insufficient context" path; Sources are the chunks the answer was
// grounded on, in descending similarity order.
type AnswerRecord struct {
	Query    string
	Answer   string
	NoAnswer bool
	Sources  []ScoredChunk
}

type IngestResult struct {
	DocumentID    string
	ChunksIndexed int
	PagesFailed   int
}
