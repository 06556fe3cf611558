package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature float64  `yaml:"temperature"`
	TopP        float64  `yaml:"top_p"`
	Stop        []string `yaml:"stop"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

type VisionConfig struct {
	Model string `yaml:"model"`
}

type AudioConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
	Metric     string `yaml:"metric"`
	BatchSize  int    `yaml:"batch_size"`
}

type ProcessorConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
	Categories   []string `yaml:"categories"`
}

type ExtractorConfig struct {
	TempDir    string `yaml:"temp_dir"`
	ExtractDir string `yaml:"extract_dir"`
}

type ChatConfig struct {
	MemoryWindow int    `yaml:"memory_window"`
	TopK         int    `yaml:"top_k"`
	HistoryPath  string `yaml:"history_path"`
}

type ScraperConfig struct {
	MaxDepth          int      `yaml:"max_depth"`
	RateLimit         float64  `yaml:"rate_limit"`
	IgnorePatterns    []string `yaml:"ignore_patterns"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vision    VisionConfig    `yaml:"vision"`
	Audio     AudioConfig     `yaml:"audio"`
	Store     StoreConfig     `yaml:"store"`
	Processor ProcessorConfig `yaml:"processor"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Chat      ChatConfig      `yaml:"chat"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Server    ServerConfig    `yaml:"server"`
}

// LLMTimeout returns the configured model request timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docchat/config.yaml"),
			"/etc/docchat/config.yaml",
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

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if len(config.LLM.Stop) == 0 {
		config.LLM.Stop = []string{"Human:"}
	}
	if config.LLM.TimeoutSecs == 0 {
		config.LLM.TimeoutSecs = 120
	}

	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.Dimensions == 0 {
		config.Embedding.Dimensions = 768
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 32
	}

	if config.Vision.Model == "" {
		config.Vision.Model = "llava"
	}

	if config.Audio.Model == "" {
		config.Audio.Model = "whisper-1"
	}
	if config.Audio.TimeoutSecs == 0 {
		config.Audio.TimeoutSecs = 300
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "sqlite"
	}
	if config.Store.Path == "" {
		config.Store.Path = "vector_db"
	}
	if config.Store.Collection == "" {
		config.Store.Collection = "documents"
	}
	if config.Store.Metric == "" {
		config.Store.Metric = "cosine"
	}
	if config.Store.BatchSize == 0 {
		config.Store.BatchSize = 100
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 2000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 50
	}
	if len(config.Processor.Separators) == 0 {
		config.Processor.Separators = []string{"\n\n", "\n"}
	}
	if len(config.Processor.Categories) == 0 {
		config.Processor.Categories = []string{"texts", "titles", "headers", "footers", "tables"}
	}

	if config.Chat.MemoryWindow == 0 {
		config.Chat.MemoryWindow = 4
	}
	if config.Chat.TopK == 0 {
		config.Chat.TopK = 4
	}
	if config.Chat.HistoryPath == "" {
		config.Chat.HistoryPath = "chat_sessions"
	}

	if config.Scraper.MaxDepth == 0 {
		config.Scraper.MaxDepth = 3
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if len(config.Scraper.AllowedExtensions) == 0 {
		config.Scraper.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if storePath := os.Getenv("DOCCHAT_STORE_PATH"); storePath != "" {
		config.Store.Path = storePath
	}
	if audioURL := os.Getenv("WHISPER_URL"); audioURL != "" {
		config.Audio.URL = audioURL
	}
	if apiKey := os.Getenv("WHISPER_API_KEY"); apiKey != "" {
		config.Audio.APIKey = apiKey
	}
}
