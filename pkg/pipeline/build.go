package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/haydenk/askpdf/internal/types"
	"github.com/haydenk/askpdf/pkg/config"
	"github.com/haydenk/askpdf/pkg/extractor"
	"github.com/haydenk/askpdf/pkg/llm"
	"github.com/haydenk/askpdf/pkg/processor"
	"github.com/haydenk/askpdf/pkg/retriever"
	"github.com/haydenk/askpdf/pkg/store"
)

// BuildFromConfig assembles the whole pipeline from configuration: Ollama
// clients, the pgvector index (or the in-memory index when no database URL
// is configured) and the extraction chain.
func BuildFromConfig(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:          cfg.LLM.EmbedModel,
		BaseURL:        cfg.LLM.BaseURL,
		Dimension:      cfg.Database.VectorDim,
		BatchSize:      cfg.Ingest.BatchSize,
		MaxConcurrency: cfg.Ingest.MaxConcurrency,
		RequestsPerSec: cfg.Ingest.RequestsPerSec,
		CallTimeout:    time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		MaxRetries:     cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	chat, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		CallTimeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		MaxRetries:  cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	var index types.VectorIndex
	if cfg.Database.URL != "" {
		index, err = store.NewWithConfig(ctx, store.VectorStoreConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
			EmbedModel: cfg.LLM.EmbedModel,
		})
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("no database URL configured, using in-memory index (not durable)")
		index = store.NewMemory(cfg.Database.VectorDim)
	}

	var ocr types.OCREngine
	if cfg.Extractor.OCREnabled {
		ocr = extractor.NewTesseract(extractor.TesseractConfig{
			PdftoppmPath:  cfg.Extractor.PdftoppmPath,
			TesseractPath: cfg.Extractor.TesseractPath,
			DPI:           cfg.Extractor.OCRDPI,
			Language:      cfg.Extractor.OCRLanguage,
		})
	}

	ext, err := extractor.NewWithConfig(extractor.ExtractorConfig{
		MinNativeChars: cfg.Extractor.MinNativeChars,
		ScrubPatterns:  cfg.Extractor.ScrubPatterns,
	}, extractor.NewAutoReader(), ocr)
	if err != nil {
		index.Close()
		return nil, err
	}

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	ret := retriever.NewWithConfig(retriever.RetrieverConfig{
		MinSimilarity: cfg.Retrieval.MinSimilarity,
		DefaultTopK:   cfg.Retrieval.TopK,
	}, embedder, index)

	synth := llm.NewSynthesizer(llm.SynthesizerConfig{}, chat)

	return New(PipelineConfig{MaxConcurrentIngests: cfg.Ingest.MaxConcurrency},
		ext, &chunker, embedder, index, ret, synth), nil
}
