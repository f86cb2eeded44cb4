// Package domain holds the conversation types shared across the service.
package domain

// MaxSessionTurns is the number of most recent turns a session retains.
const MaxSessionTurns = 20

// Role identifies who authored a turn.
type Role string

const (
	// RoleUser marks a turn sent by the prospect.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the agent.
	RoleAssistant Role = "assistant"
)

// Turn is a single message inside a conversation.
type Turn struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// UserTurn builds a turn authored by the prospect.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds a turn authored by the agent.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Session is the bounded conversation history of one sender, oldest turn first.
type Session struct {
	SenderID string
	Turns    []Turn
}

// NewSession creates a session seeded with a single assistant greeting.
func NewSession(senderID, greeting string) *Session {
	return &Session{
		SenderID: senderID,
		Turns:    []Turn{AssistantTurn(greeting)},
	}
}

// Append adds turns in order and drops the oldest ones beyond MaxSessionTurns.
func (s *Session) Append(turns ...Turn) {
	s.Turns = Window(append(s.Turns, turns...), MaxSessionTurns)
}

// Window returns a copy of the last n turns.
func Window(turns []Turn, n int) []Turn {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
