package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xhad/docchat/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.top_p",
			Message: "top_p must be between 0 and 1",
		})
	}

	// Validate Embedding config
	if c.Embedding.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}

	if c.Embedding.Dimensions < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimensions",
			Message: "dimensions must be positive",
		})
	}

	// Validate Store config
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "store.path",
				Message: "path is required for the sqlite backend",
			})
		}
	case "postgres":
		if c.Store.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "url is required for the postgres backend",
			})
		} else if _, err := url.Parse(c.Store.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "invalid database URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.Store.Backend),
		})
	}

	if c.Store.Metric != "cosine" && c.Store.Metric != "l2" {
		errors = append(errors, ValidationError{
			Field:   "store.metric",
			Message: "metric must be cosine or l2",
		})
	}

	if c.Store.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "store.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	for _, sep := range c.Processor.Separators {
		if sep == "" {
			errors = append(errors, ValidationError{
				Field:   "processor.separators",
				Message: "separators must not be empty strings",
			})
			break
		}
	}

	for _, name := range c.Processor.Categories {
		if _, ok := models.ParseCategory(name); !ok {
			errors = append(errors, ValidationError{
				Field:   "processor.categories",
				Message: fmt.Sprintf("unknown category: %s", name),
			})
		}
	}

	// Validate Chat config
	if c.Chat.MemoryWindow < 0 {
		errors = append(errors, ValidationError{
			Field:   "chat.memory_window",
			Message: "memory_window must not be negative",
		})
	}

	if c.Chat.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "chat.top_k",
			Message: "top_k must be positive",
		})
	}

	// Validate Scraper config
	if c.Scraper.MaxDepth < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.max_depth",
			Message: "max_depth must be positive",
		})
	}

	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate extensions format
	for _, ext := range c.Scraper.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") && ext != "" && ext != "/" {
			errors = append(errors, ValidationError{
				Field:   "scraper.allowed_extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	return errors
}
