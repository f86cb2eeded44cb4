// Package llm is the contract to the external chat completion service.
package llm

import (
	"context"
	"strings"

	"github.com/closerflow/whatsapp-agent/internal/domain"
)

// RoleSystem marks the leading instruction message of a request.
const RoleSystem = "system"

// Message is one entry of the conversation context sent to the model.
type Message struct {
	Role    string
	Content string
}

// Request describes a single completion call.
type Request struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	Messages         []Message
}

// Candidate is one generated alternative. Text is empty when the model returned no content.
type Candidate struct {
	Text string
}

// Response holds the candidates returned by the service, in order.
type Response struct {
	Candidates []Candidate
}

// FirstText returns the trimmed text of the first candidate, or "" when the
// response carries no candidate or no content.
func (r *Response) FirstText() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Candidates[0].Text)
}

// Gateway sends completion requests to a language model.
// Implementations return a *domain.GenerationError on failure.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Conversation builds the message list: the system prompt followed by the turns, oldest first.
func Conversation(systemPrompt string, turns []domain.Turn) []Message {
	messages := make([]Message, 0, len(turns)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, Message{Role: string(t.Role), Content: t.Content})
	}
	return messages
}
