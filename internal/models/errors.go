package models

import "errors"

// Error kinds for the pipeline. Callers match with errors.Is; the concrete
// cause is wrapped alongside via fmt.Errorf("%w: ...").
var (
	// ErrExtraction: the document could not be parsed at all. Not retryable,
	// the whole document is rejected.
	ErrExtraction = errors.New("document extraction failed")

	// ErrEmbedding: the embedding service failed after the retry budget.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch: an embedding's dimensionality does not match the
	// index. Configuration or model-version inconsistency; never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch: the index was built with a different embedding model.
	// Mixing model versions silently produces meaningless rankings.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrTimeout: an external call exceeded its per-call deadline. Retryable.
	ErrTimeout = errors.New("call timed out")

	// ErrSynthesis: the language model failed after the retry budget. Surfaced
	// to the caller, never converted into a fabricated answer.
	ErrSynthesis = errors.New("answer synthesis failed")
)
