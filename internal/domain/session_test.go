package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewSessionSeedsGreeting(t *testing.T) {
	t.Parallel()

	s := NewSession("whatsapp:+33600000000", "Bonjour !")
	if len(s.Turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(s.Turns))
	}
	if s.Turns[0] != AssistantTurn("Bonjour !") {
		t.Fatalf("unexpected greeting turn: %+v", s.Turns[0])
	}
}

func TestSessionAppendKeepsMostRecentTurns(t *testing.T) {
	t.Parallel()

	s := NewSession("x", "greeting")
	for i := 0; i < 30; i++ {
		s.Append(UserTurn(fmt.Sprintf("u%d", i)), AssistantTurn(fmt.Sprintf("a%d", i)))
		if len(s.Turns) > MaxSessionTurns {
			t.Fatalf("session grew to %d turns", len(s.Turns))
		}
	}

	if len(s.Turns) != MaxSessionTurns {
		t.Fatalf("expected %d turns, got %d", MaxSessionTurns, len(s.Turns))
	}
	first := s.Turns[0]
	if first.Content != "u20" {
		t.Fatalf("expected oldest retained turn u20, got %q", first.Content)
	}
	last := s.Turns[len(s.Turns)-1]
	if last.Content != "a29" {
		t.Fatalf("expected newest turn a29, got %q", last.Content)
	}
}

func TestGenerationErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("timeout")
	var err error = &GenerationError{Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
}
