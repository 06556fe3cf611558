package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/internal/types"
	"github.com/xhad/docchat/pkg/audio"
	"github.com/xhad/docchat/pkg/chat"
	"github.com/xhad/docchat/pkg/config"
	"github.com/xhad/docchat/pkg/extractor"
	"github.com/xhad/docchat/pkg/ingest"
	"github.com/xhad/docchat/pkg/llm"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/metrics"
	"github.com/xhad/docchat/pkg/processor"
	"github.com/xhad/docchat/pkg/session"
	"github.com/xhad/docchat/pkg/store"
)

// app holds every component built from one configuration.
type app struct {
	config    *config.Config
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	index     *store.Index
	extractor *extractor.Registry
	pipeline  *ingest.Pipeline
	chat      *chat.Service
	sessions  *session.Store
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(joined...))
	}
	return cfg, nil
}

func newApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	index, err := store.Open(ctx, store.Config{
		Backend:    cfg.Store.Backend,
		Path:       cfg.Store.Path,
		URL:        cfg.Store.URL,
		Collection: cfg.Store.Collection,
		Metric:     cfg.Store.Metric,
		BatchSize:  cfg.Store.BatchSize,
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	categories := make([]models.Category, 0, len(cfg.Processor.Categories))
	for _, name := range cfg.Processor.Categories {
		c, _ := models.ParseCategory(name)
		categories = append(categories, c)
	}
	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
		Separators:   cfg.Processor.Separators,
		Categories:   categories,
	})

	ext := extractor.NewWithConfig(extractor.ExtractorConfig{
		TempDir:    cfg.Extractor.TempDir,
		ExtractDir: cfg.Extractor.ExtractDir,
	})

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TopP:        cfg.LLM.TopP,
		Stop:        cfg.LLM.Stop,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	vision, err := llm.NewVisionWithConfig(llm.VisionConfig{
		Model:   cfg.Vision.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to initialize vision model: %w", err)
	}

	var transcriber types.Transcriber
	if cfg.Audio.URL != "" {
		w, err := audio.NewWithConfig(audio.WhisperConfig{
			URL:      cfg.Audio.URL,
			APIKey:   cfg.Audio.APIKey,
			Model:    cfg.Audio.Model,
			Language: cfg.Audio.Language,
			Timeout:  time.Duration(cfg.Audio.TimeoutSecs) * time.Second,
		})
		if err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to initialize transcriber: %w", err)
		}
		transcriber = w
	} else {
		logger.Debug("audio.url not set; audio input disabled")
	}

	svc, err := chat.NewWithConfig(chat.ServiceConfig{
		TopK: cfg.Chat.TopK,
		Stop: cfg.LLM.Stop,
	}, chat.Dependencies{
		Model:       chatEngine,
		Index:       index,
		Transcriber: transcriber,
		Vision:      vision,
		Metrics:     m,
	})
	if err != nil {
		index.Close()
		return nil, err
	}

	sessions, err := session.NewStore(cfg.Chat.HistoryPath, cfg.Chat.MemoryWindow)
	if err != nil {
		index.Close()
		return nil, err
	}

	logger.Debug("using %s index %q, model %s", cfg.Store.Backend, cfg.Store.Collection, chatEngine.Model())

	return &app{
		config:    cfg,
		registry:  registry,
		metrics:   m,
		index:     index,
		extractor: ext,
		pipeline:  ingest.New(ext, proc, index, m),
		chat:      svc,
		sessions:  sessions,
	}, nil
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		logger.Warn("failed to close index: %v", err)
	}
}

// turnContext bounds one model call by the configured timeout.
func (a *app) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.LLMTimeout())
}
