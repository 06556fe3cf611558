package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/internal/types"
	"github.com/xhad/docchat/pkg/llm"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/metrics"
	"github.com/xhad/docchat/pkg/session"
)

// AudioPrompt prefixes the transcript of an uploaded audio file.
const AudioPrompt = "Summarize this audio: "

type ServiceConfig struct {
	TopK int
	Stop []string
}

// Dependencies are the collaborators a Service talks to. Model is required;
// the rest may be nil.
type Dependencies struct {
	Model       types.LanguageModel
	Index       types.Searcher
	Transcriber types.Transcriber
	Vision      types.ImageDescriber
	Metrics     *metrics.Metrics
}

// Service answers questions for a session, retrieving context from the index
// when the session is grounded.
type Service struct {
	config ServiceConfig
	deps   Dependencies
}

// Reply is the answer to one turn. Warning is set when a grounded turn had to
// be answered without retrieved context.
type Reply struct {
	Text    string
	Warning string
	Sources []models.SearchResult
}

func NewWithConfig(config ServiceConfig, deps Dependencies) (*Service, error) {
	if deps.Model == nil {
		return nil, fmt.Errorf("a language model is required")
	}
	if config.TopK <= 0 {
		config.TopK = 4
	}
	if len(config.Stop) == 0 {
		config.Stop = []string{"Human:"}
	}
	return &Service{config: config, deps: deps}, nil
}

// Answer runs one turn. The question and answer are added to the session's
// memory only when the model succeeds.
func (s *Service) Answer(ctx context.Context, sess *session.Session, question string) (*Reply, error) {
	reply := &Reply{}
	history, err := sess.Memory.Format()
	if err != nil {
		return nil, err
	}
	mode := sess.Mode()

	var prompt string
	if mode == session.ModeGrounded {
		var results []models.SearchResult
		results, reply.Warning = s.retrieve(ctx, question)
		if len(results) > 0 {
			reply.Sources = results
			prompt, err = llm.RetrievalPrompt(formatContext(results), history, question)
		} else {
			prompt, err = llm.ConversationPrompt(history, question)
		}
	} else {
		prompt, err = llm.ConversationPrompt(history, question)
	}
	if err != nil {
		return nil, err
	}

	answer, err := s.deps.Model.Complete(ctx, prompt, s.config.Stop)
	s.deps.Metrics.ObserveModelCall(string(mode), err)
	if err != nil {
		var me *models.ModelError
		if !errors.As(err, &me) {
			err = &models.ModelError{Err: err}
		}
		logger.Error("model call failed: %v", err)
		return nil, err
	}

	if err := sess.Memory.Append(question, answer); err != nil {
		return nil, err
	}
	reply.Text = answer
	return reply, nil
}

// retrieve searches the index. Failures and an empty index produce a warning
// instead of an error so the turn can fall back to memory alone.
func (s *Service) retrieve(ctx context.Context, question string) ([]models.SearchResult, string) {
	if s.deps.Index == nil {
		return nil, s.degrade(&models.RetrievalError{Err: errors.New("no document index configured")})
	}

	start := time.Now()
	results, err := s.deps.Index.SimilaritySearch(ctx, question, s.config.TopK)
	s.deps.Metrics.ObserveSearch(time.Since(start))
	if err != nil {
		return nil, s.degrade(err)
	}
	if len(results) == 0 {
		return nil, s.degrade(&models.RetrievalError{Err: models.ErrEmptyIndex})
	}

	logger.Debug("retrieved %d chunks for question", len(results))
	return results, ""
}

func (s *Service) degrade(err error) string {
	s.deps.Metrics.ObserveDegraded()
	logger.Warn("answering from memory only: %v", err)
	return fmt.Sprintf("Document search unavailable (%v); answering from conversation memory only.", err)
}

// AnswerAudio transcribes an uploaded recording and asks for a summary.
func (s *Service) AnswerAudio(ctx context.Context, sess *session.Session, name string, audio []byte) (*Reply, error) {
	transcript, err := s.Transcribe(ctx, name, audio)
	if err != nil {
		return nil, err
	}
	return s.Answer(ctx, sess, AudioPrompt+transcript)
}

// Transcribe turns speech into text, for voice input sent as a question.
func (s *Service) Transcribe(ctx context.Context, name string, audio []byte) (string, error) {
	if s.deps.Transcriber == nil {
		return "", fmt.Errorf("audio transcription is not configured")
	}
	transcript, err := s.deps.Transcriber.Transcribe(ctx, name, audio)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe %s: %w", name, err)
	}
	return strings.TrimSpace(transcript), nil
}

// DescribeImage asks the vision model about an image and records the
// exchange in the session's memory.
func (s *Service) DescribeImage(ctx context.Context, sess *session.Session, image []byte, mimeType, question string) (*Reply, error) {
	if s.deps.Vision == nil {
		return nil, fmt.Errorf("image description is not configured")
	}
	if question == "" {
		question = llm.DefaultImageQuestion
	}

	answer, err := s.deps.Vision.Describe(ctx, image, mimeType, question)
	s.deps.Metrics.ObserveModelCall("vision", err)
	if err != nil {
		return nil, err
	}

	if err := sess.Memory.Append(question, answer); err != nil {
		return nil, err
	}
	return &Reply{Text: answer}, nil
}

func formatContext(results []models.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n")
}
