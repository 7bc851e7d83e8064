package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydenk/askpdf/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := config.LoadConfig(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, "nomic-embed-text:latest", cfg.LLM.EmbedModel)
	assert.Equal(t, 700, cfg.LLM.MaxTokens)
	assert.Equal(t, 768, cfg.Database.VectorDim)
	assert.Equal(t, "chunks", cfg.Database.TableName)
	assert.Equal(t, 20, cfg.Extractor.MinNativeChars)
	assert.Equal(t, 300, cfg.Extractor.OCRDPI)
	assert.Equal(t, 1000, cfg.Processor.ChunkSize)
	assert.Equal(t, 200, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 20, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.35, float64(cfg.Retrieval.MinSimilarity), 1e-6)
	assert.Empty(t, cfg.Validate())
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: llama3
  embed_model: bge-large
  temperature: 0.7
processor:
  chunk_size: 500
  chunk_overlap: 100
retrieval:
  top_k: 5
  min_similarity: 0.5
extractor:
  min_native_chars: 40
  ocr_enabled: true
  scrub_patterns:
    - "Supply Bureau.*valid upto"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "bge-large", cfg.LLM.EmbedModel)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 500, cfg.Processor.ChunkSize)
	assert.Equal(t, 100, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.True(t, cfg.Extractor.OCREnabled)
	assert.Len(t, cfg.Extractor.ScrubPatterns, 1)
	assert.Empty(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434")
	t.Setenv("DATABASE_URL", "postgresql://user:pass@db:5432/askpdf")

	cfg, err := config.LoadConfig(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "http://ollama.internal:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "postgresql://user:pass@db:5432/askpdf", cfg.Database.URL)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	_, err := config.LoadConfig(writeConfig(t, "llm: ["))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{
			name:   "overlap at least chunk size",
			mutate: func(c *config.Config) { c.Processor.ChunkOverlap = c.Processor.ChunkSize },
			field:  "processor.chunk_overlap",
		},
		{
			name:   "zero vector dim",
			mutate: func(c *config.Config) { c.Database.VectorDim = 0 },
			field:  "database.vector_dim",
		},
		{
			name:   "similarity out of range",
			mutate: func(c *config.Config) { c.Retrieval.MinSimilarity = 1.5 },
			field:  "retrieval.min_similarity",
		},
		{
			name:   "max tokens too large",
			mutate: func(c *config.Config) { c.LLM.MaxTokens = 10000 },
			field:  "llm.max_tokens",
		},
		{
			name:   "dpi too small",
			mutate: func(c *config.Config) { c.Extractor.OCRDPI = 50 },
			field:  "extractor.ocr_dpi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadConfig(writeConfig(t, "{}"))
			require.NoError(t, err)
			require.Empty(t, cfg.Validate())

			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}
