package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		EmbedModel  string  `yaml:"embed_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		TimeoutSecs int     `yaml:"timeout_secs"`
		MaxRetries  int     `yaml:"max_retries"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Extractor struct {
		MinNativeChars int      `yaml:"min_native_chars"`
		OCREnabled     bool     `yaml:"ocr_enabled"`
		OCRDPI         int      `yaml:"ocr_dpi"`
		OCRLanguage    string   `yaml:"ocr_language"`
		PdftoppmPath   string   `yaml:"pdftoppm_path"`
		TesseractPath  string   `yaml:"tesseract_path"`
		ScrubPatterns  []string `yaml:"scrub_patterns"`
	} `yaml:"extractor"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Retrieval struct {
		TopK          int     `yaml:"top_k"`
		MinSimilarity float32 `yaml:"min_similarity"`
	} `yaml:"retrieval"`

	Ingest struct {
		BatchSize      int     `yaml:"batch_size"`
		MaxConcurrency int     `yaml:"max_concurrency"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
	} `yaml:"ingest"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/askpdf/config.yaml"),
			"/etc/askpdf/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// Defaults are operational choices, not facts: every one of these is a
// tunable and the right value depends on the corpus and models in use.
func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 700
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.TimeoutSecs == 0 {
		config.LLM.TimeoutSecs = 60
	}
	if config.LLM.MaxRetries == 0 {
		config.LLM.MaxRetries = 3
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.Extractor.MinNativeChars == 0 {
		config.Extractor.MinNativeChars = 20
	}
	if config.Extractor.OCRDPI == 0 {
		config.Extractor.OCRDPI = 300
	}
	if config.Extractor.OCRLanguage == "" {
		config.Extractor.OCRLanguage = "eng"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 20
	}
	if config.Retrieval.MinSimilarity == 0 {
		config.Retrieval.MinSimilarity = 0.35
	}

	if config.Ingest.BatchSize == 0 {
		config.Ingest.BatchSize = 16
	}
	if config.Ingest.MaxConcurrency == 0 {
		config.Ingest.MaxConcurrency = 4
	}
	if config.Ingest.RequestsPerSec == 0 {
		config.Ingest.RequestsPerSec = 5
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
