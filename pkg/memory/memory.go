package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcmemory "github.com/tmc/langchaingo/memory"
	"github.com/xhad/docchat/internal/models"
)

// Memory is the turn history of one conversation. Prompts see only the last
// window exchanges; the full history is kept for display and persistence.
// Messages live in a langchaingo chat history read through a conversation
// window buffer; turn times are kept alongside since the history has none.
type Memory struct {
	mu      sync.RWMutex
	window  int
	history *lcmemory.ChatMessageHistory
	buffer  *lcmemory.ConversationWindowBuffer
	times   []time.Time
}

// New creates a Memory that exposes the last window exchanges, each exchange
// being one human turn and one AI turn.
func New(window int) *Memory {
	return newMemory(window, nil)
}

// Restore creates a Memory holding previously saved turns.
func Restore(window int, turns []models.Turn) *Memory {
	messages := make([]llms.ChatMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, toMessage(t))
	}
	m := newMemory(window, messages)
	for _, t := range turns {
		m.times = append(m.times, t.Time)
	}
	return m
}

func newMemory(window int, messages []llms.ChatMessage) *Memory {
	if window < 0 {
		window = 0
	}
	history := lcmemory.NewChatMessageHistory(lcmemory.WithPreviousMessages(messages))
	return &Memory{
		window:  window,
		history: history,
		// The buffer treats a zero size as its own default; Format handles zero.
		buffer: lcmemory.NewConversationWindowBuffer(max(window, 1), lcmemory.WithChatHistory(history)),
	}
}

// Append records a question and its answer.
func (m *Memory) Append(question, answer string) error {
	ctx := context.Background()
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.buffer.SaveContext(ctx,
		map[string]any{"question": question},
		map[string]any{"answer": answer},
	)
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	m.times = append(m.times, now, now)
	return nil
}

// Window returns the turns a prompt may see, oldest first.
func (m *Memory) Window() []models.Turn {
	turns := m.History()
	if n := 2 * m.window; len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

// History returns every turn, oldest first.
func (m *Memory) History() []models.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages, err := m.history.Messages(context.Background())
	if err != nil {
		return nil
	}
	turns := make([]models.Turn, len(messages))
	for i, msg := range messages {
		turns[i] = models.Turn{Role: roleOf(msg), Content: msg.GetContent()}
		if i < len(m.times) {
			turns[i].Time = m.times[i]
		}
	}
	return turns
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.times)
}

// Format renders the window as a transcript, one "Human: " or "AI: " line
// per turn.
func (m *Memory) Format() (string, error) {
	if m.window == 0 {
		return "", nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	vars, err := m.buffer.LoadMemoryVariables(context.Background(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation memory: %w", err)
	}
	history, _ := vars[m.buffer.MemoryKey].(string)
	return history, nil
}

func toMessage(t models.Turn) llms.ChatMessage {
	if t.Role == models.RoleHuman {
		return llms.HumanChatMessage{Content: t.Content}
	}
	return llms.AIChatMessage{Content: t.Content}
}

func roleOf(msg llms.ChatMessage) models.Role {
	if msg.GetType() == llms.ChatMessageTypeHuman {
		return models.RoleHuman
	}
	return models.RoleAI
}
