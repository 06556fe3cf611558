package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

const conversationTemplate = `The following is a friendly conversation between a human and an AI. The AI is talkative and provides lots of specific details from its context. If the AI does not know the answer to a question, it truthfully says it does not know.

Current conversation:
{{.history}}
Human: {{.input}}
AI:`

const retrievalTemplate = `Use the following pieces of context and the conversation so far to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

Context:
{{.context}}

Current conversation:
{{.history}}
Human: {{.input}}
AI:`

var (
	conversationPrompt = prompts.NewPromptTemplate(conversationTemplate, []string{"history", "input"})
	retrievalPrompt    = prompts.NewPromptTemplate(retrievalTemplate, []string{"context", "history", "input"})
)

// ConversationPrompt renders a plain chat turn.
func ConversationPrompt(history, input string) (string, error) {
	p, err := conversationPrompt.Format(map[string]any{
		"history": history,
		"input":   input,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}
	return p, nil
}

// RetrievalPrompt renders a turn grounded in retrieved context.
func RetrievalPrompt(context, history, input string) (string, error) {
	p, err := retrievalPrompt.Format(map[string]any{
		"context": context,
		"history": history,
		"input":   input,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}
	return p, nil
}
