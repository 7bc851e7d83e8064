package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/haydenk/askpdf/internal/models"
)

type memoryEntry struct {
	chunk models.Chunk
	vec   []float32
	pos   int64
}

// Memory is an in-process vector index with brute-force cosine search. It
// honours the same contract as the Postgres store (atomic per-document
// replace, dimension guard, stable tie ordering) and backs tests and local
// development where no database is available.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	nextPos int64
	entries []memoryEntry
}

func NewMemory(dim int) *Memory {
	return &Memory{dim: dim}
}

func (m *Memory) Upsert(_ context.Context, documentID string, entries []models.IndexEntry) error {
	for _, e := range entries {
		if len(e.Embedding) != m.dim {
			return fmt.Errorf("%w: chunk %s has %d dims, index has %d",
				models.ErrDimensionMismatch, e.Chunk.ID, len(e.Embedding), m.dim)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropLocked(documentID)
	for _, e := range entries {
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		m.entries = append(m.entries, memoryEntry{chunk: e.Chunk, vec: vec, pos: m.nextPos})
		m.nextPos++
	}
	return nil
}

func (m *Memory) Search(_ context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	if len(embedding) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d",
			models.ErrDimensionMismatch, len(embedding), m.dim)
	}
	if k <= 0 {
		k = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		entry memoryEntry
		score float32
	}
	hits := make([]hit, 0, len(m.entries))
	for _, e := range m.entries {
		hits = append(hits, hit{entry: e, score: cosine(embedding, e.vec)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.pos < hits[j].entry.pos
	})

	if k > len(hits) {
		k = len(hits)
	}
	results := make([]models.ScoredChunk, 0, k)
	for _, h := range hits[:k] {
		results = append(results, models.ScoredChunk{Chunk: h.entry.chunk, Score: h.score})
	}
	return results, nil
}

func (m *Memory) Delete(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(documentID)
	return nil
}

func (m *Memory) Close() {}

// Len reports the number of indexed entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) dropLocked(documentID string) {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.chunk.ID.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
