package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/internal/types"
)

const defaultSystemTemplate = `You are a document assistant. Answer the question using only the provided context. Do not guess, assume, or fabricate information. Reference the page numbers your answer is drawn from. If the context does not contain the answer, say so explicitly.`

const defaultNoAnswerText = "The indexed documents do not contain information relevant to this question."

type SynthesizerConfig struct {
	SystemTemplate string
	NoAnswerText   string
}

// Synthesizer composes a grounded prompt from retrieved chunks and invokes
// the language model once per question. An empty retrieval never reaches the
// model: the explicit no-answer record is returned instead.
type Synthesizer struct {
	config SynthesizerConfig
	model  types.LanguageModel
}

func NewSynthesizer(config SynthesizerConfig, model types.LanguageModel) *Synthesizer {
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}
	if config.NoAnswerText == "" {
		config.NoAnswerText = defaultNoAnswerText
	}
	return &Synthesizer{config: config, model: model}
}

func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []models.ScoredChunk) (*models.AnswerRecord, error) {
	if len(results) == 0 {
		return &models.AnswerRecord{
			Query:    query,
			Answer:   s.config.NoAnswerText,
			NoAnswer: true,
		}, nil
	}

	answer, err := s.model.Generate(ctx, s.buildPrompt(query, results))
	if err != nil {
		return nil, err
	}

	return &models.AnswerRecord{
		Query:   query,
		Answer:  answer,
		Sources: results,
	}, nil
}

// buildPrompt lays out the retrieved chunks as numbered context blocks in
// descending similarity order, each tagged with its provenance.
func (s *Synthesizer) buildPrompt(query string, results []models.ScoredChunk) string {
	var b strings.Builder
	b.WriteString(s.config.SystemTemplate)
	b.WriteString("\n\nContext:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] Document %s | Page %d:\n%s\n\n",
			i+1, r.Chunk.ID.DocumentID, r.Chunk.ID.Page, strings.TrimSpace(r.Chunk.Text))
	}
	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}
