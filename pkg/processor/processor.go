package processor

import (
	"github.com/haydenk/askpdf/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int // runes per chunk
	ChunkOverlap int // runes shared between consecutive chunks
}

// Processor splits page text into fixed-size overlapping chunks. Offsets are
// rune offsets into the page text, so concatenating the chunks minus the
// overlaps reconstructs the page exactly.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}

	return Processor{
		config: config,
	}
}

// ChunkPage produces the ordered chunks covering page.Text. Empty text yields
// no chunks; trailing text shorter than one chunk still becomes a final,
// smaller chunk.
func (p *Processor) ChunkPage(docID string, page models.Page) []models.Chunk {
	runes := []rune(page.Text)
	if len(runes) == 0 {
		return nil
	}

	size := p.config.ChunkSize
	step := size - p.config.ChunkOverlap

	var chunks []models.Chunk
	for start, seq := 0, 0; start < len(runes); start, seq = start+step, seq+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			ID:    models.ChunkID{DocumentID: docID, Page: page.Number, Seq: seq},
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// ChunkDocument chunks every page of doc in page order. Pages whose
// extraction failed contribute nothing.
func (p *Processor) ChunkDocument(doc models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range doc.Pages {
		chunks = append(chunks, p.ChunkPage(doc.ID, page)...)
	}
	return chunks
}
