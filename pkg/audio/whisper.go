package audio

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xhad/docchat/pkg/logger"
)

const transcriptionsPath = "/audio/transcriptions"

// WhisperConfig points at an OpenAI-compatible API, for example
// http://localhost:8000/v1. A URL ending in /audio/transcriptions is
// accepted too.
type WhisperConfig struct {
	URL      string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Whisper transcribes speech through a Whisper server.
type Whisper struct {
	config WhisperConfig
	client *openai.Client
}

func NewWithConfig(config WhisperConfig) (*Whisper, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("whisper url is required")
	}
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(strings.TrimRight(config.URL, "/"), transcriptionsPath)
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Whisper{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Transcribe uploads the audio and returns the recognized text.
func (w *Whisper) Transcribe(ctx context.Context, name string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio in %s", name)
	}
	if name == "" {
		name = "recording.wav"
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.config.Model,
		FilePath: filepath.Base(name),
		Reader:   bytes.NewReader(audio),
		Language: w.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe %s: %w", name, err)
	}

	logger.Debug("transcribed %s in %s", name, time.Since(start).Round(time.Millisecond))
	return strings.TrimSpace(resp.Text), nil
}
