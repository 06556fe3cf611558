package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/llm"
)

// fakeModel records every request and answers with a fixed response.
type fakeModel struct {
	response string
	err      error
	options  []llms.CallOptions
	messages [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	f.options = append(f.options, opts)
	f.messages = append(f.messages, messages)

	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func promptOf(t *testing.T, messages []llms.MessageContent) string {
	t.Helper()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Parts, 1)
	text, ok := messages[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  llm.ChatConfig
		wantErr bool
	}{
		{
			name:   "defaults",
			config: llm.ChatConfig{},
		},
		{
			name: "explicit",
			config: llm.ChatConfig{
				Model:       "testmodel",
				Temperature: 0.5,
				MaxTokens:   1000,
				BaseURL:     "http://localhost:1234",
			},
		},
		{
			name:    "bad temperature",
			config:  llm.ChatConfig{Temperature: 3},
			wantErr: true,
		},
		{
			name:    "negative max tokens",
			config:  llm.ChatConfig{MaxTokens: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := llm.NewWithConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, engine)
		})
	}
}

func TestComplete(t *testing.T) {
	model := &fakeModel{response: "  Paris.\nHuman:"}
	engine, err := llm.NewWithModel(llm.ChatConfig{
		Model:       "mistral",
		Temperature: 0.2,
		MaxTokens:   128,
		TopP:        0.9,
		Stop:        []string{"Human:"},
	}, model)
	require.NoError(t, err)

	answer, err := engine.Complete(context.Background(), "Human: capital of France?\nAI:", nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)

	require.Len(t, model.options, 1)
	opts := model.options[0]
	assert.Equal(t, []string{"Human:"}, opts.StopWords)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, 128, opts.MaxTokens)
	assert.Equal(t, 0.9, opts.TopP)
	assert.True(t, strings.HasPrefix(promptOf(t, model.messages[0]), "Human: capital"))
}

func TestCompleteExplicitStop(t *testing.T) {
	model := &fakeModel{response: "ok"}
	engine, err := llm.NewWithModel(llm.ChatConfig{Stop: []string{"Human:"}}, model)
	require.NoError(t, err)

	_, err = engine.Complete(context.Background(), "hi", []string{"User:"})
	require.NoError(t, err)
	assert.Equal(t, []string{"User:"}, model.options[0].StopWords)
}

func TestCompleteModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	engine, err := llm.NewWithModel(llm.ChatConfig{Model: "mistral"}, model)
	require.NoError(t, err)

	_, err = engine.Complete(context.Background(), "hi", nil)
	require.Error(t, err)

	var me *models.ModelError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "mistral", me.Model)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDescribe(t *testing.T) {
	model := &fakeModel{response: " A cat on a sofa. "}
	vision := llm.NewVisionWithModel(llm.VisionConfig{}, model)

	answer, err := vision.Describe(context.Background(), []byte{0xff, 0xd8}, "image/png", "")
	require.NoError(t, err)
	assert.Equal(t, "A cat on a sofa.", answer)

	require.Len(t, model.messages, 1)
	parts := model.messages[0][0].Parts
	require.Len(t, parts, 2)

	image, ok := parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.Equal(t, []byte{0xff, 0xd8}, image.Data)
	assert.Equal(t, llms.TextContent{Text: llm.DefaultImageQuestion}, parts[1])
}

func TestDescribeError(t *testing.T) {
	vision := llm.NewVisionWithModel(llm.VisionConfig{Model: "llava"}, &fakeModel{err: errors.New("boom")})

	_, err := vision.Describe(context.Background(), []byte("img"), "", "What is this?")
	var me *models.ModelError
	assert.True(t, errors.As(err, &me))
	assert.Equal(t, "llava", me.Model)
}

func TestPrompts(t *testing.T) {
	p, err := llm.ConversationPrompt("Human: hi\nAI: hello", "how are you?")
	require.NoError(t, err)
	assert.Contains(t, p, "Current conversation:\nHuman: hi\nAI: hello\nHuman: how are you?\nAI:")

	p, err = llm.RetrievalPrompt("Intro\n\nHello world.", "", "What does it say?")
	require.NoError(t, err)
	assert.Contains(t, p, "Context:\nIntro\n\nHello world.\n")
	assert.True(t, strings.HasSuffix(p, "Human: What does it say?\nAI:"))
}
